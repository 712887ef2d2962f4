// Package config handles configuration loading, validation, and management for keyremapd.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// isLegacyDocument reports whether doc uses the original flat JSON layout:
//
//	{"TargetApplication": "notepad", "KeyMappings": {"A": "LeftArrow"}}
func isLegacyDocument(doc map[string]interface{}) bool {
	_, hasMappings := doc["KeyMappings"]
	_, hasTarget := doc["TargetApplication"]
	return hasMappings || hasTarget
}

// MigrateLegacyConfig converts a legacy key_mappings.json document to the
// current format. The legacy mapping object is unordered, so mappings are
// sorted by source key name.
func MigrateLegacyConfig(data map[string]interface{}) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Mappings = nil

	if target, ok := data["TargetApplication"]; ok {
		s, ok := target.(string)
		if !ok {
			return nil, &ValidationError{Field: "TargetApplication", Message: "must be a string"}
		}
		cfg.TargetApplication = s
	}

	if raw, ok := data["KeyMappings"]; ok && raw != nil {
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, &ValidationError{Field: "KeyMappings", Message: "must be an object"}
		}
		from := make([]string, 0, len(m))
		for k := range m {
			from = append(from, k)
		}
		sort.Strings(from)
		for _, k := range from {
			to, ok := m[k].(string)
			if !ok {
				return nil, &ValidationError{Field: "KeyMappings." + k, Message: "must be a string"}
			}
			cfg.Mappings = append(cfg.Mappings, Mapping{From: k, To: to})
		}
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a file in the format implied by
// its extension. TOML is the default.
func SaveConfig(cfg *Config, path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err = json.MarshalIndent(cfg, "", "  ")
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = encodeToTOML(cfg)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

const tomlHeader = `# keyremapd configuration
#
# target_application is matched against the foreground process name
# (case-insensitive, without .exe). Key names are listed by "keyremapd keys".

`

func encodeToTOML(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(tomlHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Package config handles configuration loading, validation, and management for keyremapd.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user configuration and log directories.
const AppName = "keyremapd"

// Config file names looked up next to the executable and in the config
// directory, in order. key_mappings.json is the legacy file name.
var configFileNames = []string{
	"config.toml",
	"config.yaml",
	"config.yml",
	"config.json",
	"key_mappings.json",
}

// PlatformConfigDir returns the platform-specific configuration directory.
func PlatformConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			homeDir, _ := os.UserHomeDir()
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		return filepath.Join(appData, AppName)
	case "darwin":
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "Library", "Application Support", AppName)
	default:
		configHome := os.Getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			homeDir, _ := os.UserHomeDir()
			configHome = filepath.Join(homeDir, ".config")
		}
		return filepath.Join(configHome, AppName)
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// SupportedConfigFormats returns the list of supported configuration file formats.
func SupportedConfigFormats() []string {
	return []string{".toml", ".json", ".yaml", ".yml"}
}

// FindConfigFile resolves the configuration path. An explicit path wins,
// then KEYREMAPD_CONFIG, then a config file next to the executable, then
// one in the config directory. When nothing exists it returns ConfigPath.
func FindConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("KEYREMAPD_CONFIG"); env != "" {
		return env
	}

	var dirs []string
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	dirs = append(dirs, PlatformConfigDir())

	for _, dir := range dirs {
		for _, name := range configFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ConfigPath()
}

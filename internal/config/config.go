// Package config handles configuration loading, validation, and management for keyremapd.
package config

import (
	"os"
	"strings"
	"time"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete remapper configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// TargetApplication is matched case-insensitively as a substring of
	// the foreground process name, without ".exe".
	TargetApplication string `toml:"target_application" json:"target_application" yaml:"target_application"`

	// TargetWindowTitle names the window that receives directed arrow
	// key messages. Empty means the foreground window.
	TargetWindowTitle string `toml:"target_window_title" json:"target_window_title" yaml:"target_window_title"`

	// FocusIntervalMs is how often the foreground process is checked.
	FocusIntervalMs int `toml:"focus_interval_ms" json:"focus_interval_ms" yaml:"focus_interval_ms"`

	// ReleaseOnFocusLoss releases held remapped keys when the target
	// application loses focus.
	ReleaseOnFocusLoss bool `toml:"release_on_focus_loss" json:"release_on_focus_loss" yaml:"release_on_focus_loss"`

	// Notifications enables desktop notifications.
	Notifications bool `toml:"notifications" json:"notifications" yaml:"notifications"`

	// ToggleHotkey pauses and resumes remapping, e.g. "ctrl+alt+f12".
	ToggleHotkey string `toml:"toggle_hotkey" json:"toggle_hotkey" yaml:"toggle_hotkey"`

	// Mappings are applied in order.
	Mappings []Mapping `toml:"mappings" json:"mappings" yaml:"mappings"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// Mapping rewrites one source key into one destination key.
type Mapping struct {
	From string `toml:"from" json:"from" yaml:"from"`
	To   string `toml:"to" json:"to" yaml:"to"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level      string `toml:"level" json:"level" yaml:"level"`
	Format     string `toml:"format" json:"format" yaml:"format"`
	Output     string `toml:"output" json:"output" yaml:"output"`
	FilePath   string `toml:"file_path" json:"file_path" yaml:"file_path"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" yaml:"max_backups"`
	Compress   bool   `toml:"compress" json:"compress" yaml:"compress"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		Version:            Version,
		TargetApplication:  "notepad",
		FocusIntervalMs:    2000,
		ReleaseOnFocusLoss: false,
		Notifications:      true,
		Mappings: []Mapping{
			{From: "A", To: "LEFTARROW"},
			{From: "D", To: "RIGHTARROW"},
			{From: "W", To: "UPARROW"},
			{From: "S", To: "DOWNARROW"},
			{From: "1", To: "E"},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "file",
			MaxSizeMB:  10,
			MaxBackups: 5,
			Compress:   true,
		},
	}
}

// FocusInterval returns the focus polling period.
func (c *Config) FocusInterval() time.Duration {
	if c.FocusIntervalMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(c.FocusIntervalMs) * time.Millisecond
}

// Normalize trims and upper-cases key names and trims the target.
func (c *Config) Normalize() {
	c.TargetApplication = strings.TrimSpace(c.TargetApplication)
	c.TargetWindowTitle = strings.TrimSpace(c.TargetWindowTitle)
	c.ToggleHotkey = strings.ToLower(strings.TrimSpace(c.ToggleHotkey))
	for i := range c.Mappings {
		c.Mappings[i].From = strings.ToUpper(strings.TrimSpace(c.Mappings[i].From))
		c.Mappings[i].To = strings.ToUpper(strings.TrimSpace(c.Mappings[i].To))
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Output = strings.ToLower(strings.TrimSpace(c.Logging.Output))
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with KEYREMAPD_.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KEYREMAPD_TARGET"); v != "" {
		c.TargetApplication = v
	}
	if v := os.Getenv("KEYREMAPD_WINDOW_TITLE"); v != "" {
		c.TargetWindowTitle = v
	}
	if v := os.Getenv("KEYREMAPD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KEYREMAPD_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Mappings = append([]Mapping(nil), c.Mappings...)
	return &clone
}

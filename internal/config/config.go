package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/harun/idesession/pkg/settings"
)

// Config represents the main idesession configuration
type Config struct {
	// Data directory, holds preferences, logs and the default sessions directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Sessions
	Sessions SessionsConfig `json:"sessions" mapstructure:"sessions"`

	// Preferences file holding the last-session record
	PrefsFile string `json:"prefs_file" mapstructure:"prefs_file"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Audit
	Audit AuditConfig `json:"audit" mapstructure:"audit"`
}

// SessionsConfig holds session storage configuration
type SessionsConfig struct {
	Dir             string `json:"dir" mapstructure:"dir"`
	Format          string `json:"format" mapstructure:"format"`                       // toml, yaml
	WatchDebounceMs int    `json:"watch_debounce_ms" mapstructure:"watch_debounce_ms"` // directory watcher
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"` // mask home dir and secrets
}

// MetricsConfig holds the metrics endpoint configuration
type MetricsConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool   `json:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" mapstructure:"service_name"`
}

// AuditConfig holds audit log configuration
type AuditConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	File    string `json:"file" mapstructure:"file"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Sessions: SessionsConfig{
			Format:          "toml",
			WatchDebounceMs: 100,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   10,
			MaxAge:    7,
			Compress:  true,
			Pretty:    true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "idesession",
		},
		Audit: AuditConfig{
			Enabled: false,
		},
	}
}

// applyPathDefaults fills paths derived from DataDir
func (c *Config) applyPathDefaults() {
	if c.Sessions.Dir == "" {
		c.Sessions.Dir = filepath.Join(c.DataDir, "sessions")
	}
	if c.PrefsFile == "" {
		c.PrefsFile = filepath.Join(c.DataDir, "preferences.yaml")
	}
	if c.Audit.File == "" {
		c.Audit.File = filepath.Join(c.DataDir, "audit.log")
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Sessions.Dir == "" {
		return fmt.Errorf("sessions directory is required")
	}

	if _, err := settings.CodecFor(c.Sessions.Format); err != nil {
		return fmt.Errorf("sessions: %w", err)
	}

	if c.Sessions.WatchDebounceMs < 0 {
		return fmt.Errorf("sessions.watch_debounce_ms must be >= 0")
	}

	if c.PrefsFile == "" {
		return fmt.Errorf("prefs file is required")
	}

	if c.Audit.Enabled && c.Audit.File == "" {
		return fmt.Errorf("audit file is required when audit is enabled")
	}

	return nil
}

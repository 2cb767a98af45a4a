package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader handles configuration loading
type Loader struct {
	configPath string
}

// NewLoader creates a new config loader
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
	}
}

// defaultDataDir returns ~/.idesession
func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".idesession"), nil
}

// newViper sets up defaults and IDESESSION_ environment overrides.
// Nested keys map to variables like IDESESSION_SESSIONS_DIR.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("IDESESSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultConfig()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("prefs_file", def.PrefsFile)
	v.SetDefault("sessions.dir", def.Sessions.Dir)
	v.SetDefault("sessions.format", def.Sessions.Format)
	v.SetDefault("sessions.watch_debounce_ms", def.Sessions.WatchDebounceMs)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.file", def.Logging.File)
	v.SetDefault("logging.max_size", def.Logging.MaxSize)
	v.SetDefault("logging.max_age", def.Logging.MaxAge)
	v.SetDefault("logging.compress", def.Logging.Compress)
	v.SetDefault("logging.pretty", def.Logging.Pretty)
	v.SetDefault("logging.redaction", def.Logging.Redaction)
	v.SetDefault("metrics.addr", def.Metrics.Addr)
	v.SetDefault("tracing.enabled", def.Tracing.Enabled)
	v.SetDefault("tracing.service_name", def.Tracing.ServiceName)
	v.SetDefault("audit.enabled", def.Audit.Enabled)
	v.SetDefault("audit.file", def.Audit.File)
	return v
}

// Load loads the configuration from file. A missing file yields the
// defaults, still subject to environment overrides.
func (l *Loader) Load() (*Config, error) {
	configPath, err := l.resolvePath()
	if err != nil {
		return nil, err
	}

	v := newViper()

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set data directory if not specified
	if cfg.DataDir == "" {
		dataDir, err := defaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dataDir
	}

	cfg.applyPathDefaults()

	return cfg, nil
}

// Save saves the configuration to file
func (l *Loader) Save(cfg *Config) error {
	configPath, err := l.resolvePath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("data_dir", cfg.DataDir)
	v.Set("prefs_file", cfg.PrefsFile)
	v.Set("sessions.dir", cfg.Sessions.Dir)
	v.Set("sessions.format", cfg.Sessions.Format)
	v.Set("sessions.watch_debounce_ms", cfg.Sessions.WatchDebounceMs)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.max_size", cfg.Logging.MaxSize)
	v.Set("logging.max_age", cfg.Logging.MaxAge)
	v.Set("logging.compress", cfg.Logging.Compress)
	v.Set("logging.pretty", cfg.Logging.Pretty)
	v.Set("logging.redaction", cfg.Logging.Redaction)
	v.Set("metrics.addr", cfg.Metrics.Addr)
	v.Set("tracing.enabled", cfg.Tracing.Enabled)
	v.Set("tracing.service_name", cfg.Tracing.ServiceName)
	v.Set("audit.enabled", cfg.Audit.Enabled)
	v.Set("audit.file", cfg.Audit.File)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the config file path
func (l *Loader) GetConfigPath() string {
	path, err := l.resolvePath()
	if err != nil {
		return ""
	}
	return path
}

func (l *Loader) resolvePath() (string, error) {
	if l.configPath != "" {
		return l.configPath, nil
	}
	dataDir, err := defaultDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "idesession.yaml"), nil
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}

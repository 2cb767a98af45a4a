package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/harun/idesession/pkg/settings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateFormat validates the session file format
func (v *Validator) ValidateFormat(format string) error {
	if _, err := settings.CodecFor(format); err != nil {
		return fmt.Errorf("invalid session format: %s (must be one of: %s)", format, strings.Join(settings.Formats(), ", "))
	}
	return nil
}

// ValidateSessionsDir checks that dir is usable as a sessions directory.
// A missing directory is fine, it is created on first access.
func (v *Validator) ValidateSessionsDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("sessions directory cannot be empty")
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("sessions directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("sessions directory %s is not a directory", dir)
	}
	return nil
}

// ValidateAddr validates a host:port listen address
func (v *Validator) ValidateAddr(addr string) error {
	if addr == "" {
		return nil // Metrics endpoint disabled
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid metrics address %q: %w", addr, err)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateSessionsDir(cfg.Sessions.Dir); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateFormat(cfg.Sessions.Format); err != nil {
		errors = append(errors, err)
	}
	if cfg.Sessions.WatchDebounceMs < 0 {
		errors = append(errors, fmt.Errorf("sessions.watch_debounce_ms must be >= 0"))
	}

	// Validate logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}
	if cfg.Logging.MaxSize < 0 {
		errors = append(errors, fmt.Errorf("logging.max_size must be >= 0"))
	}
	if cfg.Logging.MaxAge < 0 {
		errors = append(errors, fmt.Errorf("logging.max_age must be >= 0"))
	}

	if err := v.ValidateAddr(cfg.Metrics.Addr); err != nil {
		errors = append(errors, err)
	}

	if cfg.Tracing.Enabled && strings.TrimSpace(cfg.Tracing.ServiceName) == "" {
		errors = append(errors, fmt.Errorf("tracing.service_name is required when tracing is enabled"))
	}

	return errors
}

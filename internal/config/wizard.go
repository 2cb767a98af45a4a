package config

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizardIO creates a wizard reading answers from in and printing prompts to out
func NewWizardIO(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run runs the interactive configuration wizard. Empty answers keep the
// value from base, or the defaults when base is nil.
func (w *Wizard) Run(base *Config) (*Config, error) {
	fmt.Fprintln(w.out, "=== idesession Configuration Wizard ===")
	fmt.Fprintln(w.out)

	cfg := base
	if cfg == nil {
		cfg = DefaultConfig()
	}
	validator := NewValidator()

	// Data directory
	if cfg.DataDir == "" {
		dataDir, err := defaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dataDir
	}
	fmt.Fprintf(w.out, "Data directory [%s]: ", cfg.DataDir)
	dataDir, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if dataDir != "" && dataDir != cfg.DataDir {
		cfg.DataDir = dataDir
		// Re-derive paths that followed the old data directory
		cfg.Sessions.Dir = ""
		cfg.PrefsFile = ""
		cfg.Audit.File = ""
	}
	cfg.applyPathDefaults()

	// Sessions directory
	for {
		fmt.Fprintf(w.out, "Sessions directory [%s]: ", cfg.Sessions.Dir)
		dir, err := w.readLine()
		if err != nil {
			return nil, err
		}
		if dir == "" {
			break
		}
		dir = filepath.Clean(dir)
		if err := validator.ValidateSessionsDir(dir); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Sessions.Dir = dir
		break
	}

	// Session format
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Session file format:")
	fmt.Fprintln(w.out, "  toml - TOML documents (default)")
	fmt.Fprintln(w.out, "  yaml - YAML documents")
	fmt.Fprintf(w.out, "Format [%s]: ", cfg.Sessions.Format)
	format, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if format != "" {
		format = strings.ToLower(format)
		if err := validator.ValidateFormat(format); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Sessions.Format)
		} else {
			cfg.Sessions.Format = format
		}
	}

	fmt.Fprintln(w.out)

	// Log Level
	fmt.Fprintln(w.out, "Logging:")
	fmt.Fprintf(w.out, "Log level (debug/info/warn/error) [%s]: ", cfg.Logging.Level)
	level, err := w.readLine()
	if err != nil {
		return nil, err
	}
	if level != "" {
		if err := validator.ValidateLogLevel(level); err != nil {
			fmt.Fprintf(w.out, "Warning: %v, keeping %s\n", err, cfg.Logging.Level)
		} else {
			cfg.Logging.Level = level
		}
	}

	fmt.Fprint(w.out, "Enable audit log? (y/n) [n]: ")
	audit, err := w.readLine()
	if err != nil {
		return nil, err
	}
	cfg.Audit.Enabled = strings.ToLower(audit) == "y"

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

// readLine returns the trimmed next line. EOF after a partial line is
// treated as the final answer.
func (w *Wizard) readLine() (string, error) {
	line, err := w.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

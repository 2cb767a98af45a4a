package logger

import (
	"io"
	"os"
	"regexp"
	"strings"
)

// Redactor masks the user's home directory and secret-looking values that
// collaborators may store in session settings.
type Redactor struct {
	home     string
	patterns []*regexp.Regexp
}

// NewRedactor creates a new redactor with default patterns
func NewRedactor() *Redactor {
	home, _ := os.UserHomeDir()
	return NewRedactorWithHome(home)
}

// NewRedactorWithHome creates a redactor that replaces home with "~".
// An empty or root home disables path masking.
func NewRedactorWithHome(home string) *Redactor {
	if home == "/" {
		home = ""
	}
	return &Redactor{
		home: strings.TrimSuffix(home, "/"),
		patterns: []*regexp.Regexp{
			// Bearer tokens
			regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]+`),

			// Passwords
			regexp.MustCompile(`password["\s:=]+[^\s"]+`),

			// Auth tokens
			regexp.MustCompile(`token["\s:=]+[a-zA-Z0-9._-]{20,}`),

			// Generic secrets
			regexp.MustCompile(`secret["\s:=]+[^\s"]+`),
		},
	}
}

// Redact masks sensitive information in s
func (r *Redactor) Redact(s string) string {
	result := s
	if r.home != "" {
		result = strings.ReplaceAll(result, r.home, "~")
	}
	for _, pattern := range r.patterns {
		result = pattern.ReplaceAllString(result, "[REDACTED]")
	}
	return result
}

// Wrap wraps an io.Writer to redact sensitive information
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success so callers do not see a short write when
// redaction changes the length.
func (w *redactingWriter) Write(p []byte) (int, error) {
	redacted := w.redactor.Redact(string(p))
	if _, err := w.writer.Write([]byte(redacted)); err != nil {
		return 0, err
	}
	return len(p), nil
}

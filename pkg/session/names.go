package session

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxNameLength bounds session names so "<name><ext>" stays a valid file name.
const MaxNameLength = 200

// ValidateName reports whether name can be mapped to a file in the sessions
// directory without escaping it or colliding with hidden/temp files.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("session name must be valid UTF-8")
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("session name longer than %d bytes", MaxNameLength)
	}
	if strings.TrimSpace(name) != name {
		return fmt.Errorf("session name cannot have leading or trailing spaces")
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("session name cannot start with '.'")
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("session name cannot contain '..'")
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("session name cannot contain path separators")
	}
	if strings.ContainsAny(name, `<>:"|?*`) {
		return fmt.Errorf("session name cannot contain any of <>:\"|?*")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("session name cannot contain control characters")
		}
	}
	return nil
}

package session

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the Manager wraps exactly one of them.
var (
	// ErrNotFound is returned when the named session file does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrIO is returned when a session file cannot be read, parsed or written.
	ErrIO = errors.New("session i/o error")
	// ErrInvalidName is returned when a name cannot map to a safe file path.
	ErrInvalidName = errors.New("invalid session name")
	// ErrNoCurrentSession is returned when saving with no session open.
	ErrNoCurrentSession = errors.New("no current session")
	// ErrSessionInUse is returned when deleting the current session.
	ErrSessionInUse = errors.New("session is current")
)

// Error describes a failed Manager operation.
type Error struct {
	Op   string // open, save, save_as, info, delete
	Name string // session name, empty for save with nothing open
	Kind error  // one of the Err* kinds above
	Err  error  // underlying cause, may be nil
}

func newError(op, name string, kind, cause error) *Error {
	return &Error{Op: op, Name: name, Kind: kind, Err: cause}
}

func (e *Error) Error() string {
	msg := "session " + e.Op
	if e.Name != "" {
		msg += fmt.Sprintf(" %q", e.Name)
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

package session

import "github.com/harun/idesession/pkg/settings"

// Session is one named, file-backed settings store. Collaborators read and
// write it through the embedded settings.Store; the Manager decides when it
// is flushed.
type Session struct {
	settings.Store
	name string
}

func newSession(name string, store settings.Store) *Session {
	return &Session{Store: store, name: name}
}

// Name returns the session name.
func (s *Session) Name() string {
	return s.name
}

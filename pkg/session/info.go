package session

import (
	"context"
	"os"
	"time"

	"github.com/harun/idesession/internal/observability"
	"github.com/harun/idesession/internal/tracing"
	"github.com/harun/idesession/pkg/settings"
)

// Info describes a session file on disk.
type Info struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	Current bool
	Keys    []string
}

// SessionInfo reads the named session file without making it current.
func (m *Manager) SessionInfo(name string) (*Info, error) {
	ctx, span := tracing.StartSessionSpan(context.Background(), opInfo, name)
	defer span.End()
	start := time.Now()

	info, err := m.sessionInfo(name)
	m.finish(ctx, span, opInfo, name, start, err)
	return info, err
}

func (m *Manager) sessionInfo(name string) (*Info, error) {
	if err := ValidateName(name); err != nil {
		return nil, newError(opInfo, name, ErrInvalidName, err)
	}

	path := m.SessionPath(name)
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(opInfo, name, ErrNotFound, nil)
		}
		return nil, newError(opInfo, name, ErrIO, err)
	}

	store, err := settings.Open(path, m.codec)
	if err != nil {
		return nil, newError(opInfo, name, ErrIO, err)
	}

	return &Info{
		Name:    name,
		Path:    path,
		Size:    stat.Size(),
		ModTime: stat.ModTime(),
		Current: name == m.currentName,
		Keys:    store.Keys(),
	}, nil
}

// DeleteSession removes the named session file. The current session cannot
// be deleted; close it first. If name was the last session the record is
// cleared.
func (m *Manager) DeleteSession(name string) error {
	ctx, span := tracing.StartSessionSpan(context.Background(), opDelete, name)
	defer span.End()
	start := time.Now()

	err := m.deleteSession(name)
	m.finish(ctx, span, opDelete, name, start, err)
	if err != nil {
		return err
	}

	observability.SetAvailableSessions(len(listSessions(m.dir, m.codec.Extension())))
	logger := tracing.LoggerFromContext(ctx, m.logger)
	logger.Info().Msg("Session deleted")
	return nil
}

func (m *Manager) deleteSession(name string) error {
	if err := ValidateName(name); err != nil {
		return newError(opDelete, name, ErrInvalidName, err)
	}
	if name == m.currentName {
		return newError(opDelete, name, ErrSessionInUse, nil)
	}

	if err := os.Remove(m.SessionPath(name)); err != nil {
		if os.IsNotExist(err) {
			return newError(opDelete, name, ErrNotFound, nil)
		}
		return newError(opDelete, name, ErrIO, err)
	}

	if m.prefs.GetString(LastSessionKey) == name {
		m.recordLastSession("")
	}
	return nil
}

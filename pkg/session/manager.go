package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/harun/idesession/internal/observability"
	"github.com/harun/idesession/internal/tracing"
	"github.com/harun/idesession/pkg/prefs"
	"github.com/harun/idesession/pkg/settings"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LastSessionKey is the preference key holding the last saved or opened session name.
const LastSessionKey = "session.last"

const (
	opOpen   = "open"
	opSave   = "save"
	opSaveAs = "save_as"
	opClose  = "close"
	opInfo   = "info"
	opDelete = "delete"
)

// Options configures a Manager.
type Options struct {
	// Dir is the sessions directory. Defaults to ~/.idesession/sessions.
	Dir string
	// Format selects the session file codec ("toml" or "yaml"). Ignored when Codec is set.
	Format string
	// Codec overrides Format.
	Codec settings.Codec
	// Prefs stores the last-session record. Defaults to an in-memory store.
	Prefs prefs.Store
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Manager tracks the current session and mediates open/save/close.
type Manager struct {
	dir    string
	codec  settings.Codec
	prefs  prefs.Store
	logger zerolog.Logger

	current     *Session
	currentName string

	loadHooks  hookList
	saveHooks  hookList
	nextHookID HookID
}

// DefaultDir returns ~/.idesession/sessions.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".idesession", "sessions"), nil
}

// New creates a Manager. The sessions directory is resolved here and
// created lazily by SessionsDir.
func New(opts Options) (*Manager, error) {
	observability.EnsureRegistered()

	dir := opts.Dir
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sessions directory: %w", err)
	}

	codec := opts.Codec
	if codec == nil {
		if codec, err = settings.CodecFor(opts.Format); err != nil {
			return nil, err
		}
	}

	store := opts.Prefs
	if store == nil {
		store = prefs.NewMemoryStore()
	}

	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	m := &Manager{
		dir:    dir,
		codec:  codec,
		prefs:  store,
		logger: logger.With().Str("component", "session").Logger(),
	}

	m.logger.Debug().
		Str("dir", dir).
		Str("format", codec.Name()).
		Msg("Session manager initialized")

	return m, nil
}

// SessionsDir returns the sessions directory, creating it if missing.
// Creation failures are logged; later file operations report them.
func (m *Manager) SessionsDir() string {
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		m.logger.Warn().Err(err).Str("dir", m.dir).Msg("Failed to create sessions directory")
	}
	return m.dir
}

// Codec returns the codec used for session files.
func (m *Manager) Codec() settings.Codec {
	return m.codec
}

// Extension returns the session file extension, including the dot.
func (m *Manager) Extension() string {
	return m.codec.Extension()
}

// SessionPath returns the file backing the named session.
func (m *Manager) SessionPath(name string) string {
	return filepath.Join(m.dir, name+m.codec.Extension())
}

// AvailableSessions lists session names in lexicographic order.
func (m *Manager) AvailableSessions() []string {
	names := listSessions(m.SessionsDir(), m.codec.Extension())
	observability.SetAvailableSessions(len(names))
	return names
}

// listSessions never fails: an unreadable or absent directory has no sessions.
func listSessions(dir, ext string) []string {
	names := []string{}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return names
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		fileName := entry.Name()
		if strings.HasPrefix(fileName, ".") || !strings.HasSuffix(fileName, ext) {
			continue
		}
		name := strings.TrimSuffix(fileName, ext)
		if ValidateName(name) != nil {
			continue
		}
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// LastSession returns the most recently saved or opened session name, or ""
// if none is recorded or its file no longer exists.
func (m *Manager) LastSession() string {
	name := m.prefs.GetString(LastSessionKey)
	if name == "" || ValidateName(name) != nil {
		return ""
	}
	if !m.exists(name) {
		return ""
	}
	return name
}

// CurrentSession returns the open session or nil.
func (m *Manager) CurrentSession() *Session {
	return m.current
}

// CurrentSessionName returns the open session's name or "".
func (m *Manager) CurrentSessionName() string {
	return m.currentName
}

// OpenSession makes the named session current.
func (m *Manager) OpenSession(name string) (*Session, error) {
	return m.OpenSessionWithContext(context.Background(), name)
}

// OpenSessionWithContext makes the named session current with tracing context.
// The previous session is dropped without saving. Load hooks run before
// returning.
func (m *Manager) OpenSessionWithContext(ctx context.Context, name string) (*Session, error) {
	ctx, span := tracing.StartSessionSpan(ctx, opOpen, name)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, m.logger)
	start := time.Now()

	sess, err := m.openSession(name)
	m.finish(ctx, span, opOpen, name, start, err)
	if err != nil {
		return nil, err
	}

	calls := publish(m.loadHooks, sess)
	observability.RecordHookCalls("load", calls)

	logger.Info().
		Str("path", sess.Path()).
		Int("hooks", calls).
		Msg("Session opened")

	return sess, nil
}

func (m *Manager) openSession(name string) (*Session, error) {
	if err := ValidateName(name); err != nil {
		return nil, newError(opOpen, name, ErrInvalidName, err)
	}

	path := m.SessionPath(name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, newError(opOpen, name, ErrNotFound, nil)
		}
		return nil, newError(opOpen, name, ErrIO, err)
	}
	if !info.Mode().IsRegular() {
		return nil, newError(opOpen, name, ErrIO, fmt.Errorf("%s is not a regular file", path))
	}

	store, err := settings.Open(path, m.codec)
	if err != nil {
		return nil, newError(opOpen, name, ErrIO, err)
	}

	sess := newSession(name, store)
	m.replaceCurrent(sess)
	m.recordLastSession(name)

	return sess, nil
}

// SaveSession flushes the current session.
func (m *Manager) SaveSession() error {
	return m.SaveSessionWithContext(context.Background())
}

// SaveSessionWithContext runs the save hooks, flushes the current session
// and records it as the last session.
func (m *Manager) SaveSessionWithContext(ctx context.Context) error {
	ctx, span := tracing.StartSessionSpan(ctx, opSave, m.currentName)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, m.logger)
	start := time.Now()

	sess := m.current
	if sess == nil {
		err := newError(opSave, "", ErrNoCurrentSession, nil)
		m.finish(ctx, span, opSave, "", start, err)
		return err
	}

	calls := publish(m.saveHooks, sess)
	observability.RecordHookCalls("save", calls)

	err := m.flush(sess)
	m.finish(ctx, span, opSave, sess.Name(), start, err)
	if err != nil {
		return newError(opSave, sess.Name(), ErrIO, err)
	}

	m.recordLastSession(sess.Name())

	logger.Info().
		Str("path", sess.Path()).
		Int("hooks", calls).
		Msg("Session saved")

	return nil
}

// SaveSessionAs writes the current content (or an empty session) to name.
func (m *Manager) SaveSessionAs(name string) (*Session, error) {
	return m.SaveSessionAsWithContext(context.Background(), name)
}

// SaveSessionAsWithContext creates the named session from the current
// content, runs the save hooks on it, flushes it and makes it current. An
// existing file under name is overwritten. The previous session's file is
// left on disk as last saved.
func (m *Manager) SaveSessionAsWithContext(ctx context.Context, name string) (*Session, error) {
	ctx, span := tracing.StartSessionSpan(ctx, opSaveAs, name)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, m.logger)
	start := time.Now()

	if err := ValidateName(name); err != nil {
		wrapped := newError(opSaveAs, name, ErrInvalidName, err)
		m.finish(ctx, span, opSaveAs, name, start, wrapped)
		return nil, wrapped
	}

	store := settings.New(m.SessionPath(name), m.codec)
	from := m.currentName
	if m.current != nil {
		store.Replace(m.current.AllSettings())
	}
	sess := newSession(name, store)

	calls := publish(m.saveHooks, sess)
	observability.RecordHookCalls("save", calls)

	if err := m.flush(sess); err != nil {
		wrapped := newError(opSaveAs, name, ErrIO, err)
		m.finish(ctx, span, opSaveAs, name, start, wrapped)
		return nil, wrapped
	}
	m.finish(ctx, span, opSaveAs, name, start, nil)

	m.replaceCurrent(sess)
	m.recordLastSession(name)

	logger.Info().
		Str("from", from).
		Str("path", sess.Path()).
		Int("hooks", calls).
		Msg("Session saved as")

	return sess, nil
}

// CloseSession drops the current session without saving. No-op if none is open.
func (m *Manager) CloseSession() {
	if m.current == nil {
		return
	}

	name := m.currentName
	m.replaceCurrent(nil)

	observability.RecordSessionAudit(context.Background(), opClose, name, nil)
	m.logger.Info().Str("session", name).Msg("Session closed")
}

func (m *Manager) replaceCurrent(sess *Session) {
	m.current = sess
	m.currentName = ""
	if sess != nil {
		m.currentName = sess.Name()
	}
	observability.SetCurrentSessionOpen(sess != nil)
}

func (m *Manager) flush(sess *Session) error {
	if err := sess.Flush(); err != nil {
		return err
	}
	if info, err := os.Stat(sess.Path()); err == nil {
		observability.RecordFlushSize(info.Size())
	}
	return nil
}

// recordLastSession is advisory: a failure is logged and does not fail the
// operation that triggered it.
func (m *Manager) recordLastSession(name string) {
	if err := m.prefs.SetString(LastSessionKey, name); err != nil {
		m.logger.Warn().Err(err).Str("session", name).Msg("Failed to record last session")
	}
}

func (m *Manager) exists(name string) bool {
	info, err := os.Stat(m.SessionPath(name))
	return err == nil && info.Mode().IsRegular()
}

// finish records metrics, audit and span status for one operation. A save
// without a current session writes nothing, not even an audit entry.
func (m *Manager) finish(ctx context.Context, span trace.Span, op, name string, start time.Time, err error) {
	observability.RecordSessionOperation(op, time.Since(start), err == nil)
	if !errors.Is(err, ErrNoCurrentSession) {
		observability.RecordSessionAudit(ctx, op, name, err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger := tracing.LoggerFromContext(ctx, m.logger)
		logger.Debug().Err(err).Msg("Session operation failed")
	}
}

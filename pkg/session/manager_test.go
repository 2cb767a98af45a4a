package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/idesession/internal/observability"
	"github.com/harun/idesession/pkg/prefs"
	"github.com/harun/idesession/pkg/settings"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCodec struct {
	settings.TOMLCodec
}

func (failingCodec) Marshal(map[string]any) ([]byte, error) {
	return nil, errors.New("disk full")
}

func setupTestManager(t *testing.T) (*Manager, string) {
	return setupTestManagerWith(t, Options{})
}

func setupTestManagerWith(t *testing.T, opts Options) (*Manager, string) {
	t.Helper()
	if opts.Dir == "" {
		opts.Dir = filepath.Join(t.TempDir(), "sessions")
	}
	if opts.Prefs == nil {
		opts.Prefs = prefs.NewMemoryStore()
	}
	logger := zerolog.Nop()
	opts.Logger = &logger

	m, err := New(opts)
	require.NoError(t, err)
	return m, opts.Dir
}

func TestManager_SessionsDirCreated(t *testing.T) {
	m, dir := setupTestManager(t)

	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))

	assert.Equal(t, dir, m.SessionsDir())
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestManager_NewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Options{Dir: t.TempDir(), Format: "ini"})
	assert.Error(t, err)
}

func TestManager_Scenario(t *testing.T) {
	m, _ := setupTestManager(t)

	var loaded []string
	m.OnSessionWillLoad(func(s *Session) {
		loaded = append(loaded, s.Name())
	})

	assert.Empty(t, m.AvailableSessions())

	_, err := m.SaveSessionAs("demo")
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, m.AvailableSessions())

	m.CloseSession()
	assert.Nil(t, m.CurrentSession())
	assert.Empty(t, m.CurrentSessionName())

	sess, err := m.OpenSession("demo")
	require.NoError(t, err)
	assert.Equal(t, "demo", sess.Name())
	assert.Equal(t, []string{"demo"}, loaded)

	_, err = m.OpenSession("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "demo", m.CurrentSessionName())
	assert.Same(t, sess, m.CurrentSession())
}

func TestManager_RoundTrip(t *testing.T) {
	for _, format := range settings.Formats() {
		t.Run(format, func(t *testing.T) {
			m, _ := setupTestManagerWith(t, Options{Format: format})

			sess, err := m.SaveSessionAs("work")
			require.NoError(t, err)

			sess.Set("documents/open", []string{"main.scd", "synth.scd"})
			sess.Set("documents/active", 1)
			sess.Set("window/geometry/width", 1280)
			sess.Set("window/maximized", true)
			sess.Set("editor/font", "Monaco")
			sess.Set("editor/zoom", 1.25)
			sess.Set("colors", map[string]string{"background": "#000000"})
			require.NoError(t, m.SaveSession())

			want := sess.AllSettings()
			wantKeys := sess.Keys()

			m.CloseSession()

			reopened, err := m.OpenSession("work")
			require.NoError(t, err)
			assert.NotSame(t, sess, reopened)
			assert.Equal(t, wantKeys, reopened.Keys())
			assert.Equal(t, []string{"main.scd", "synth.scd"}, reopened.GetStringSlice("documents/open"))
			assert.Equal(t, 1, reopened.GetInt("documents/active"))
			assert.Equal(t, 1280, reopened.GetInt("window/geometry/width"))
			assert.True(t, reopened.GetBool("window/maximized"))
			assert.Equal(t, "Monaco", reopened.GetString("editor/font"))
			assert.Equal(t, want, reopened.AllSettings())
		})
	}
}

func TestManager_AvailableSessionsSortedAndUnique(t *testing.T) {
	m, dir := setupTestManager(t)

	for _, name := range []string{"zeta", "alpha", "Mid", "alpha"} {
		_, err := m.SaveSessionAs(name)
		require.NoError(t, err)
	}

	// Entries that are not sessions are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.toml"), []byte(""), 0600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.toml"), 0700))

	assert.Equal(t, []string{"Mid", "alpha", "zeta"}, m.AvailableSessions())
}

func TestManager_AvailableSessionsMissingDir(t *testing.T) {
	names := listSessions(filepath.Join(t.TempDir(), "nope"), ".toml")
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestManager_OpenNotFoundKeepsCurrent(t *testing.T) {
	m, _ := setupTestManager(t)

	_, err := m.OpenSession("ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, m.CurrentSessionName())
	assert.Nil(t, m.CurrentSession())

	var sessErr *Error
	require.ErrorAs(t, err, &sessErr)
	assert.Equal(t, "open", sessErr.Op)
	assert.Equal(t, "ghost", sessErr.Name)
}

func TestManager_OpenMalformedIsIOError(t *testing.T) {
	m, _ := setupTestManager(t)

	_, err := m.SaveSessionAs("good")
	require.NoError(t, err)

	path := m.SessionPath("broken")
	require.NoError(t, os.WriteFile(path, []byte("= = [ not toml"), 0600))

	_, err = m.OpenSession("broken")
	assert.ErrorIs(t, err, ErrIO)
	assert.Equal(t, "good", m.CurrentSessionName())
}

func TestManager_OpenReplacesCurrentWithoutSaving(t *testing.T) {
	m, _ := setupTestManager(t)

	_, err := m.SaveSessionAs("a")
	require.NoError(t, err)
	_, err = m.SaveSessionAs("b")
	require.NoError(t, err)

	a, err := m.OpenSession("a")
	require.NoError(t, err)
	a.Set("dirty", "yes")

	_, err = m.OpenSession("b")
	require.NoError(t, err)
	assert.Equal(t, "b", m.CurrentSessionName())

	reopened, err := m.OpenSession("a")
	require.NoError(t, err)
	assert.False(t, reopened.Contains("dirty"))
}

func TestManager_LastSession(t *testing.T) {
	store := prefs.NewMemoryStore()
	m, _ := setupTestManagerWith(t, Options{Prefs: store})

	assert.Empty(t, m.LastSession())

	_, err := m.SaveSessionAs("first")
	require.NoError(t, err)
	assert.Equal(t, "first", m.LastSession())

	_, err = m.SaveSessionAs("second")
	require.NoError(t, err)
	assert.Equal(t, "second", m.LastSession())

	_, err = m.OpenSession("first")
	require.NoError(t, err)
	assert.Equal(t, "first", m.LastSession())

	require.NoError(t, m.SaveSession())
	assert.Equal(t, "first", m.LastSession())

	// Closing does not touch the record
	m.CloseSession()
	assert.Equal(t, "first", m.LastSession())
	assert.Equal(t, "first", store.GetString(LastSessionKey))

	// A removed file makes the record stale
	require.NoError(t, os.Remove(m.SessionPath("first")))
	assert.Empty(t, m.LastSession())
}

func TestManager_LastSessionSurvivesRestart(t *testing.T) {
	root := t.TempDir()
	prefsPath := filepath.Join(root, "prefs.yaml")
	dir := filepath.Join(root, "sessions")

	store, err := prefs.NewFileStore(prefsPath)
	require.NoError(t, err)
	m, _ := setupTestManagerWith(t, Options{Dir: dir, Prefs: store})
	_, err = m.SaveSessionAs("persisted")
	require.NoError(t, err)

	store2, err := prefs.NewFileStore(prefsPath)
	require.NoError(t, err)
	m2, _ := setupTestManagerWith(t, Options{Dir: dir, Prefs: store2})
	assert.Equal(t, "persisted", m2.LastSession())
	assert.Empty(t, m2.CurrentSessionName())
}

func TestManager_SaveWithoutCurrentSession(t *testing.T) {
	m, dir := setupTestManager(t)
	m.SessionsDir()

	called := false
	m.OnSessionWillSave(func(*Session) { called = true })

	err := m.SaveSession()
	assert.ErrorIs(t, err, ErrNoCurrentSession)
	assert.False(t, called)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManager_SaveWithoutCurrentSessionNotAudited(t *testing.T) {
	m, _ := setupTestManager(t)

	auditPath := filepath.Join(t.TempDir(), "audit.log")
	require.NoError(t, observability.InitAuditLogger(auditPath))
	t.Cleanup(func() {
		_ = observability.ResetAuditLogger()
	})

	assert.ErrorIs(t, m.SaveSession(), ErrNoCurrentSession)

	raw, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	assert.Empty(t, raw)

	// Real operations are still audited
	_, err = m.SaveSessionAs("demo")
	require.NoError(t, err)

	raw, err = os.ReadFile(auditPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"action":"save_as"`)
}

func TestManager_SaveAsCopiesCurrentContent(t *testing.T) {
	m, _ := setupTestManager(t)

	orig, err := m.SaveSessionAs("orig")
	require.NoError(t, err)
	orig.Set("editor/font", "Monaco")
	require.NoError(t, m.SaveSession())

	orig.Set("editor/font", "Unsaved")

	copied, err := m.SaveSessionAs("copy")
	require.NoError(t, err)
	assert.Equal(t, "copy", m.CurrentSessionName())
	assert.Equal(t, "Unsaved", copied.GetString("editor/font"))

	// The copy does not alias the previous session's data
	copied.Set("editor/font", "Menlo")
	assert.Equal(t, "Unsaved", orig.GetString("editor/font"))

	// The previous file keeps what was last saved
	reopened, err := m.OpenSession("orig")
	require.NoError(t, err)
	assert.Equal(t, "Monaco", reopened.GetString("editor/font"))
}

func TestManager_SaveAsOverwritesExisting(t *testing.T) {
	m, _ := setupTestManager(t)

	s, err := m.SaveSessionAs("target")
	require.NoError(t, err)
	s.Set("old", "value")
	require.NoError(t, m.SaveSession())
	m.CloseSession()

	fresh, err := m.SaveSessionAs("target")
	require.NoError(t, err)
	assert.False(t, fresh.Contains("old"))

	m.CloseSession()
	reopened, err := m.OpenSession("target")
	require.NoError(t, err)
	assert.Empty(t, reopened.Keys())
}

func TestManager_SaveFailureKeepsState(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")
	good, _ := setupTestManagerWith(t, Options{Dir: dir})

	s, err := good.SaveSessionAs("stable")
	require.NoError(t, err)
	s.Set("k", "v1")
	require.NoError(t, good.SaveSession())

	before, err := os.ReadFile(good.SessionPath("stable"))
	require.NoError(t, err)

	m, _ := setupTestManagerWith(t, Options{Dir: dir, Codec: failingCodec{}})
	_, err = m.OpenSession("stable")
	require.NoError(t, err)
	m.CurrentSession().Set("k", "v2")

	err = m.SaveSession()
	assert.ErrorIs(t, err, ErrIO)
	assert.Equal(t, "stable", m.CurrentSessionName())

	after, err := os.ReadFile(m.SessionPath("stable"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// A failed save-as does not switch sessions or create the file
	_, err = m.SaveSessionAs("other")
	assert.ErrorIs(t, err, ErrIO)
	assert.Equal(t, "stable", m.CurrentSessionName())
	assert.Equal(t, "v2", m.CurrentSession().GetString("k"))
	_, err = os.Stat(m.SessionPath("other"))
	assert.True(t, os.IsNotExist(err))
}

func TestManager_InvalidNames(t *testing.T) {
	m, _ := setupTestManager(t)

	tests := []struct {
		name    string
		session string
	}{
		{"empty", ""},
		{"path traversal", "../etc/passwd"},
		{"forward slash", "a/b"},
		{"backslash", `a\b`},
		{"dot prefix", ".hidden"},
		{"double dot", "a..b"},
		{"null byte", "a\x00b"},
		{"newline", "a\nb"},
		{"reserved char", "a:b"},
		{"wildcard", "a*"},
		{"leading space", " a"},
		{"trailing space", "a "},
		{"invalid utf8", "a\xffb"},
		{"too long", string(make([]byte, MaxNameLength+1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.SaveSessionAs(tt.session)
			assert.ErrorIs(t, err, ErrInvalidName)

			_, err = m.OpenSession(tt.session)
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}

	assert.Empty(t, m.AvailableSessions())
	assert.Empty(t, m.CurrentSessionName())
}

func TestValidateName_Accepts(t *testing.T) {
	for _, name := range []string{"demo", "My Project", "live-coding_2024", "ünïcødé", "v1.2"} {
		assert.NoError(t, ValidateName(name), name)
	}
}

func TestManager_CloseSessionNoop(t *testing.T) {
	m, _ := setupTestManager(t)
	m.CloseSession()
	assert.Nil(t, m.CurrentSession())
}

func TestError_Message(t *testing.T) {
	err := newError("open", "demo", ErrNotFound, nil)
	assert.Equal(t, `session open "demo": session not found`, err.Error())

	cause := errors.New("boom")
	err = newError("save", "", ErrIO, cause)
	assert.Equal(t, "session save: session i/o error: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrIO)
	assert.NotErrorIs(t, err, ErrNotFound)
}

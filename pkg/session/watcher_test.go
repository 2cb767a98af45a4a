package session

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirWatcher_RequiresConfig(t *testing.T) {
	_, err := NewDirWatcher(WatcherConfig{Extension: ".toml"})
	assert.Error(t, err)

	_, err = NewDirWatcher(WatcherConfig{Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestDirWatcher_StartStop(t *testing.T) {
	w, err := NewDirWatcher(WatcherConfig{
		Dir:       t.TempDir(),
		Extension: ".toml",
		Debounce:  20 * time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, w.Start())
	assert.NoError(t, w.Stop())
	// Second stop is a no-op
	assert.NoError(t, w.Stop())
}

func TestDirWatcher_ReportsExternalChanges(t *testing.T) {
	m, _ := setupTestManager(t)

	var mu sync.Mutex
	var lists [][]string
	w, err := m.NewWatcher(30*time.Millisecond, func(names []string) {
		mu.Lock()
		defer mu.Unlock()
		lists = append(lists, names)
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	// Another process drops a session file in
	require.NoError(t, os.WriteFile(filepath.Join(m.SessionsDir(), "external.toml"), []byte("a = 1\n"), 0600))
	// Files of another format are ignored
	require.NoError(t, os.WriteFile(filepath.Join(m.SessionsDir(), "readme.md"), []byte("x"), 0600))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(lists) > 0 && assert.ObjectsAreEqual([]string{"external"}, lists[len(lists)-1])
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(m.SessionsDir(), "external.toml")))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(lists[len(lists)-1]) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDirWatcher_StopWaitsForDelivery(t *testing.T) {
	dir := t.TempDir()
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	w, err := NewDirWatcher(WatcherConfig{
		Dir:       dir,
		Extension: ".toml",
		Debounce:  10 * time.Millisecond,
		OnChange: func([]string) {
			if calls.Add(1) == 1 {
				close(entered)
				<-release
			}
		},
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.toml"), []byte("a = 1\n"), 0600))

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange was not called")
	}

	stopped := make(chan struct{})
	go func() {
		_ = w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while OnChange was running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after OnChange finished")
	}

	// Nothing is delivered after Stop
	calledBefore := calls.Load()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.toml"), []byte("b = 1\n"), 0600))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, calledBefore, calls.Load())
}

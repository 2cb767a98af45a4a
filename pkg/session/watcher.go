package session

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ListCallback receives the full, sorted session list after a change.
type ListCallback func(names []string)

// WatcherConfig holds configuration for a DirWatcher.
type WatcherConfig struct {
	Dir       string
	Extension string
	// Debounce coalesces bursts of events. Defaults to 100ms.
	Debounce time.Duration
	OnChange ListCallback
}

// DirWatcher reports changes to the set of sessions in a directory, such as
// files written by another process.
type DirWatcher struct {
	watcher  *fsnotify.Watcher
	dir      string
	ext      string
	debounce time.Duration
	onChange ListCallback

	done     chan struct{}
	mu       sync.Mutex
	timer    *time.Timer
	stopOnce sync.Once

	// deliverMu is held while OnChange runs so Stop can wait for it
	deliverMu sync.Mutex
}

// NewDirWatcher creates a watcher. Call Start to begin delivering events.
func NewDirWatcher(config WatcherConfig) (*DirWatcher, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("watcher directory is required")
	}
	if config.Extension == "" {
		return nil, fmt.Errorf("watcher extension is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if config.Debounce == 0 {
		config.Debounce = 100 * time.Millisecond
	}

	return &DirWatcher{
		watcher:  watcher,
		dir:      config.Dir,
		ext:      config.Extension,
		debounce: config.Debounce,
		onChange: config.OnChange,
		done:     make(chan struct{}),
	}, nil
}

// NewWatcher returns a DirWatcher over this manager's sessions directory.
func (m *Manager) NewWatcher(debounce time.Duration, onChange ListCallback) (*DirWatcher, error) {
	return NewDirWatcher(WatcherConfig{
		Dir:       m.SessionsDir(),
		Extension: m.codec.Extension(),
		Debounce:  debounce,
		OnChange:  onChange,
	})
}

// Start begins watching the directory.
func (w *DirWatcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch sessions directory: %w", err)
	}

	go w.eventLoop()

	log.Info().
		Str("path", w.dir).
		Msg("Session watcher started")

	return nil
}

// Stop stops the watcher and waits for an OnChange call in progress to
// return. No OnChange call starts after Stop returns, so OnChange must not
// call Stop itself. It is safe to call Stop more than once.
func (w *DirWatcher) Stop() error {
	var closeErr error
	w.stopOnce.Do(func() {
		close(w.done)

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.mu.Unlock()

		// Wait out a delivery in progress
		w.deliverMu.Lock()
		w.deliverMu.Unlock()

		if err := w.watcher.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close watcher: %w", err)
			return
		}
		log.Info().Msg("Session watcher stopped")
	})
	return closeErr
}

func (w *DirWatcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.schedule()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Session watcher error")

		case <-w.done:
			return
		}
	}
}

// relevant filters out chmod noise, hidden files (including the temp files
// of an atomic write) and files of another format.
func (w *DirWatcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.HasSuffix(base, w.ext)
}

func (w *DirWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.deliver)
}

func (w *DirWatcher) deliver() {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()

	select {
	case <-w.done:
		return
	default:
	}

	names := listSessions(w.dir, w.ext)
	log.Debug().
		Str("path", w.dir).
		Int("sessions", len(names)).
		Msg("Sessions directory changed")

	if w.onChange != nil {
		w.onChange(names)
	}
}

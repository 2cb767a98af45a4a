// Package prefs holds process-wide preferences that outlive any single
// session file, such as the name of the last used session.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// Store reads and writes string preferences.
type Store interface {
	GetString(key string) string
	SetString(key, value string) error
}

// FileStore persists preferences to a YAML file through a private viper
// instance. Keys are case-insensitive and "." separated.
type FileStore struct {
	path string
	v    *viper.Viper
}

// NewFileStore loads preferences from path. A missing file is not an error.
func NewFileStore(path string) (*FileStore, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read preferences file: %w", err)
		}
	}

	return &FileStore{path: path, v: v}, nil
}

// Path returns the preferences file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) GetString(key string) string {
	return s.v.GetString(key)
}

// SetString updates key and rewrites the preferences file.
func (s *FileStore) SetString(key, value string) error {
	s.v.Set(key, value)

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}
	return nil
}

// MemoryStore keeps preferences in memory only.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) GetString(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key]
}

func (s *MemoryStore) SetString(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

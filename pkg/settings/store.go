package settings

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Store is a typed key/value store bound to a single file.
type Store interface {
	Path() string
	Get(key string) (any, bool)
	Set(key string, value any)
	Remove(key string)
	Contains(key string) bool
	// Keys returns the full "/"-joined paths of all leaf values, sorted.
	Keys() []string
	// AllSettings returns a deep copy of the whole content.
	AllSettings() map[string]any
	// Replace discards the current content and installs a deep copy of data.
	Replace(data map[string]any)

	GetString(key string) string
	GetInt(key string) int
	GetFloat64(key string) float64
	GetBool(key string) bool
	GetStringSlice(key string) []string
	GetStringMap(key string) map[string]any

	Flush() error
}

// FileStore is the file-backed Store implementation.
type FileStore struct {
	path  string
	codec Codec
	data  map[string]any
}

var _ Store = (*FileStore)(nil)

// New returns an empty store bound to path without reading it.
// Nothing is written until Flush.
func New(path string, codec Codec) *FileStore {
	if codec == nil {
		codec = TOMLCodec{}
	}
	return &FileStore{
		path:  path,
		codec: codec,
		data:  make(map[string]any),
	}
}

// Open binds a store to path and loads its content. A missing file yields
// an empty store; an unreadable or malformed file is an error.
func Open(path string, codec Codec) (*FileStore, error) {
	st := New(path, codec)

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	data, err := st.codec.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", filepath.Base(path), err)
	}
	st.data = normalizeMap(data)

	return st, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Codec returns the codec used for Flush.
func (s *FileStore) Codec() Codec {
	return s.codec
}

func (s *FileStore) Get(key string) (any, bool) {
	parts := splitKey(key)
	if len(parts) == 0 {
		return nil, false
	}

	node := s.data
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			return nil, false
		}
		node = child
	}

	value, ok := node[parts[len(parts)-1]]
	return value, ok
}

// Set stores value under key, creating intermediate groups as needed.
// A non-group value sitting on the path is replaced by a group.
// Setting nil removes the key. Values are stored in the form the codecs
// decode them to: maps become groups, slices become []any, integers int64
// and floats float64.
func (s *FileStore) Set(key string, value any) {
	value = normalizeValue(value)
	if value == nil {
		s.Remove(key)
		return
	}

	parts := splitKey(key)
	if len(parts) == 0 {
		return
	}

	node := s.data
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value
}

func (s *FileStore) Remove(key string) {
	parts := splitKey(key)
	if len(parts) == 0 {
		return
	}

	node := s.data
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			return
		}
		node = child
	}
	delete(node, parts[len(parts)-1])
}

func (s *FileStore) Contains(key string) bool {
	_, ok := s.Get(key)
	return ok
}

func (s *FileStore) Keys() []string {
	var keys []string
	collectKeys(s.data, "", &keys)
	sort.Strings(keys)
	return keys
}

func (s *FileStore) AllSettings() map[string]any {
	return normalizeMap(s.data)
}

func (s *FileStore) Replace(data map[string]any) {
	s.data = normalizeMap(data)
}

func (s *FileStore) GetString(key string) string {
	v, _ := s.Get(key)
	return cast.ToString(v)
}

func (s *FileStore) GetInt(key string) int {
	v, _ := s.Get(key)
	return cast.ToInt(v)
}

func (s *FileStore) GetFloat64(key string) float64 {
	v, _ := s.Get(key)
	return cast.ToFloat64(v)
}

func (s *FileStore) GetBool(key string) bool {
	v, _ := s.Get(key)
	return cast.ToBool(v)
}

func (s *FileStore) GetStringSlice(key string) []string {
	v, _ := s.Get(key)
	return cast.ToStringSlice(v)
}

func (s *FileStore) GetStringMap(key string) map[string]any {
	v, _ := s.Get(key)
	return cast.ToStringMap(v)
}

// Flush encodes the content and atomically replaces the backing file.
func (s *FileStore) Flush() error {
	raw, err := s.codec.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	return writeFileAtomic(s.path, raw)
}

// writeFileAtomic writes to a temp file in the target directory, syncs it
// and renames it over path.
func writeFileAtomic(path string, raw []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace settings file: %w", err)
	}

	return nil
}

func splitKey(key string) []string {
	raw := strings.Split(key, "/")
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func collectKeys(node map[string]any, prefix string, out *[]string) {
	for k, v := range node {
		path := k
		if prefix != "" {
			path = prefix + "/" + k
		}
		if child, ok := v.(map[string]any); ok && len(child) > 0 {
			collectKeys(child, path, out)
			continue
		}
		*out = append(*out, path)
	}
}

// normalizeMap returns a deep copy of src with every value in the form
// the codecs decode to, so memory and disk agree for every codec.
func normalizeMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = normalizeValue(v)
	}
	return dst
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string, bool, int64, float64, time.Time:
		return t
	case map[string]any:
		return normalizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	case []byte:
		return string(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u <= math.MaxInt64 {
			return int64(u)
		}
		return v
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalizeValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[fmt.Sprint(iter.Key().Interface())] = normalizeValue(iter.Value().Interface())
		}
		return m
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalizeValue(rv.Elem().Interface())
	default:
		return v
	}
}

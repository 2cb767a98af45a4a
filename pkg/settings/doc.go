// Package settings is a file-bound key/value store with nested groups.
//
// Invariants:
// - A Store is bound to exactly one file path for its lifetime.
// - Keys use "/" to address nested groups ("editor/documents").
// - Flush replaces the file atomically; a failed flush leaves the previous
//   file content untouched.
//
// Usage:
//
//	st, _ := settings.Open("/tmp/demo.toml", settings.TOMLCodec{})
//	st.Set("editor/font", "Monaco")
//	_ = st.Flush()
package settings

// Package session manages named, file-backed workspace sessions.
//
// A session is a settings file in the sessions directory, one file per
// session, named "<name><ext>". The Manager owns at most one open session
// (the current session), switches between sessions atomically and lets
// collaborators restore and persist their own state through load and save
// hooks.
//
// Invariants:
// - CurrentSession() != nil iff CurrentSessionName() != "".
// - A failed open or save-as leaves the current session unchanged.
// - Save hooks run before the flush; the flush replaces the file atomically.
// - The Manager is not safe for concurrent use; hooks run inline.
//
// Usage:
//
//	mgr, _ := session.New(session.Options{Dir: "/tmp/ide/sessions", Prefs: prefs.NewMemoryStore()})
//	mgr.OnSessionWillSave(func(s *session.Session) { s.Set("documents/open", docs) })
//	_, _ = mgr.SaveSessionAs("demo")
//	mgr.CloseSession()
//	_, _ = mgr.OpenSession("demo")
package session

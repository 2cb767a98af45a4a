package session

// HookID identifies a registered hook for RemoveHook.
type HookID uint64

// Hook receives the live session during a load or save notification. It may
// read and write the session's settings but must not keep the pointer after
// returning.
type Hook func(*Session)

type hookEntry struct {
	id HookID
	fn Hook
}

// hookList keeps handlers in registration order.
type hookList []hookEntry

func (l hookList) remove(id HookID) (hookList, bool) {
	for i, h := range l {
		if h.id == id {
			return append(l[:i:i], l[i+1:]...), true
		}
	}
	return l, false
}

// OnSessionWillLoad registers fn to run after a session is opened and made
// current, before OpenSession returns.
func (m *Manager) OnSessionWillLoad(fn Hook) HookID {
	m.nextHookID++
	m.loadHooks = append(m.loadHooks, hookEntry{id: m.nextHookID, fn: fn})
	return m.nextHookID
}

// OnSessionWillSave registers fn to run before a session is flushed to disk.
func (m *Manager) OnSessionWillSave(fn Hook) HookID {
	m.nextHookID++
	m.saveHooks = append(m.saveHooks, hookEntry{id: m.nextHookID, fn: fn})
	return m.nextHookID
}

// RemoveHook unregisters a load or save hook. It reports whether id was found.
func (m *Manager) RemoveHook(id HookID) bool {
	var ok bool
	if m.loadHooks, ok = m.loadHooks.remove(id); ok {
		return true
	}
	m.saveHooks, ok = m.saveHooks.remove(id)
	return ok
}

// publish runs every hook in l synchronously, in registration order. The
// list is copied first so a hook may register or remove hooks safely.
func publish(l hookList, s *Session) int {
	snapshot := append(hookList(nil), l...)
	for _, h := range snapshot {
		h.fn(s)
	}
	return len(snapshot)
}

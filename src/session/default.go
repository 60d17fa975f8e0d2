package session

import "sync"

// defaultSession is the process-wide default session handle. It
// replaces the original engine's class-level static back-references
// (Task.session, Scheduler.session, ...) with an explicit, lockable
// package-level pointer: callers that want the "current" session call
// Default(), and anything standing up a new session calls SetDefault
// to publish it. This keeps concurrent sessions (e.g. in tests, which
// construct a fresh Session per test) from stepping on each other the
// way a static class attribute would.
var (
	defaultMu      sync.RWMutex
	defaultSession *Session
)

// SetDefault publishes s as the session returned by Default.
func SetDefault(s *Session) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultSession = s
}

// Default returns the process-wide default session, or nil if none has
// been set yet.
func Default() *Session {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultSession
}

// SetAsDefault publishes s as the default session. It is the method
// form of SetDefault, for call sites that already hold a *Session.
func (s *Session) SetAsDefault() {
	SetDefault(s)
}

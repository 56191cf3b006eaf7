package services

import "sync"

// SessionGuard serializes mutations per session ID. Every service
// read-modify-write on a session runs under its lock, so a polling
// success never races a navigation on the same session.
type SessionGuard struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionGuard creates an empty guard.
func NewSessionGuard() *SessionGuard {
	return &SessionGuard{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the session's lock and returns the release function.
func (g *SessionGuard) Lock(sessionID string) func() {
	g.mu.Lock()
	lock, ok := g.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[sessionID] = lock
	}
	g.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// Forget drops a session's lock entry once the session is deleted.
func (g *SessionGuard) Forget(sessionID string) {
	g.mu.Lock()
	delete(g.locks, sessionID)
	g.mu.Unlock()
}

// ABOUTME: In-memory session store keyed by user identifier
// ABOUTME: Sessions are created lazily and live for the process lifetime

package flow

import "sync"

// Sessions holds one conversation Session per user identifier. Sessions are
// created lazily by Get and are never evicted; unbounded growth over the
// process lifetime is an accepted tradeoff.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewSessions creates an empty session store.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]Session)}
}

// Get returns the session for the given user identifier, or a default
// session (step start) if none exists yet. Get does not insert; the caller
// persists the advanced session with Put.
func (s *Sessions) Get(userID string) Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[userID]; ok {
		return sess
	}
	return Session{Step: StepStart}
}

// Put stores the session for the given user identifier.
func (s *Sessions) Put(userID string, sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = sess
}

// Len reports the number of tracked sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

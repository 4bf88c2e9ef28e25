package session

import (
	"sync"
	"time"
)

// InMemoryStore is a volatile Store keeping sessions in a process-local
// map. It is safe for concurrent access and suited to the CLI and web
// servers, which hold conversations only for the process lifetime.
// Sessions are cloned on the way in and out so callers never share
// mutable state with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

// Get returns a clone of the stored session, creating an empty one if the
// id is new.
func (s *InMemoryStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = NewSession(id)
		s.sessions[id] = sess
	}
	return sess.Clone(), nil
}

// Save stores a clone of the session snapshot and stamps UpdatedAt.
func (s *InMemoryStore) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := sess.Clone()
	clone.UpdatedAt = time.Now().UTC()
	if prev, ok := s.sessions[sess.ID]; ok {
		clone.CreatedAt = prev.CreatedAt
	}
	s.sessions[sess.ID] = clone
	return nil
}

// Delete removes the session if present.
func (s *InMemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len reports the number of stored sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

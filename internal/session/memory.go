package session

import (
	"sync"
	"time"
)

// MemoryStore keeps session history in process memory. History lives
// for the process lifetime; there is no size cap or expiry, which is an
// accepted scaling limit for a single-user desktop gateway. Use
// SQLiteStore when persistence across restarts matters.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

// entry holds one session's turns behind its own lock, so appends to
// different sessions never contend with each other.
type entry struct {
	mu    sync.Mutex
	turns []Turn
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*entry)}
}

// get returns the session entry, creating it if absent.
func (s *MemoryStore) get(sessionID string) *entry {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.sessions[sessionID]; !ok {
		e = &entry{}
		s.sessions[sessionID] = e
	}
	return e
}

// Append adds a turn to the session, creating it if absent.
func (s *MemoryStore) Append(sessionID string, role Role, content string) error {
	e := s.get(sessionID)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.turns = append(e.turns, Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	return nil
}

// Turns returns a copy of the session's turns in order.
func (s *MemoryStore) Turns(sessionID string) ([]Turn, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return []Turn{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	turns := make([]Turn, len(e.turns))
	copy(turns, e.turns)
	return turns, nil
}

// Stats returns store-level counters.
func (s *MemoryStore) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totalTurns := 0
	for _, e := range s.sessions {
		e.mu.Lock()
		totalTurns += len(e.turns)
		e.mu.Unlock()
	}

	return map[string]any{
		"backend":  "memory",
		"sessions": len(s.sessions),
		"turns":    totalTurns,
	}
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

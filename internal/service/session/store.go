package session

import (
	"context"
	"sync"

	"github.com/kasaops/kasa-backend/internal/model/ussd"
)

// Store keeps transient USSD session state between gateway callbacks. A
// session that is not present behaves exactly like one at the menu root.
type Store interface {
	Get(ctx context.Context, sessionID string) (ussd.SessionState, bool, error)
	Set(ctx context.Context, sessionID string, state ussd.SessionState) error
	Clear(ctx context.Context, sessionID string) error
}

// MemoryStore implements Store with a mutex-guarded map, the default for
// single-process deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]ussd.SessionState
}

// NewMemoryStore bootstraps an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]ussd.SessionState),
	}
}

// Get retrieves the stored state for a session, if any.
func (s *MemoryStore) Get(_ context.Context, sessionID string) (ussd.SessionState, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[sessionID]
	return state, ok, nil
}

// Set stores state for a session, creating it if absent.
func (s *MemoryStore) Set(_ context.Context, sessionID string, state ussd.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[sessionID] = state
	return nil
}

// Clear removes a session. Clearing an absent session is a no-op.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
	return nil
}

package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/grantlab/grantlab-core/internal/core/domain"
	"github.com/grantlab/grantlab-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FlowSessionStore = (*FlowSessionStore)(nil)

// FlowSessionStore keeps sessions in process memory. It is the default
// store; everything is lost on restart, which for a practice tool is a
// feature as much as a limitation. Clones cross the boundary in both
// directions so callers never share state with the store.
type FlowSessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.FlowSession
}

// NewFlowSessionStore creates an empty in-memory session store.
func NewFlowSessionStore() *FlowSessionStore {
	return &FlowSessionStore{sessions: make(map[string]*domain.FlowSession)}
}

// Save stores a session, overwriting any previous version.
func (s *FlowSessionStore) Save(_ context.Context, session *domain.FlowSession) error {
	clone, err := cloneSession(session)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = clone
	return nil
}

// Get retrieves a session by ID.
func (s *FlowSessionStore) Get(_ context.Context, id string) (*domain.FlowSession, error) {
	s.mu.RLock()
	stored, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(stored)
}

// Delete removes a session; deleting an absent session is not an error.
func (s *FlowSessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// List returns every stored session, expired ones included.
func (s *FlowSessionStore) List(_ context.Context) ([]*domain.FlowSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*domain.FlowSession, 0, len(s.sessions))
	for _, stored := range s.sessions {
		clone, err := cloneSession(stored)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, clone)
	}
	return sessions, nil
}

// DeleteExpired removes sessions past their expiry and returns their IDs.
func (s *FlowSessionStore) DeleteExpired(_ context.Context) ([]string, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, stored := range s.sessions {
		if stored.IsExpired(now) {
			delete(s.sessions, id)
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// cloneSession deep-copies a session. Serialization strips the secret
// fields by design, so they are carried across by hand.
func cloneSession(session *domain.FlowSession) (*domain.FlowSession, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("clone session: %w", err)
	}
	var clone domain.FlowSession
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, fmt.Errorf("clone session: %w", err)
	}
	clone.Credentials.ClientSecret = session.Credentials.ClientSecret
	clone.Credentials.ManagementToken = session.Credentials.ManagementToken
	return &clone, nil
}

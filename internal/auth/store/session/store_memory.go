package session

import (
	"context"
	"sync"

	"custodia/internal/auth/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

// InMemoryStore keeps sessions in process memory. Suitable for single-node
// deployments and tests; distributed deployments use the redis store.
type InMemoryStore struct {
	mu        sync.RWMutex
	sessions  map[id.SessionID]*models.Session
	byAccount map[id.AccountID][]id.SessionID
}

// NewInMemory constructs an empty in-memory session store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		sessions:  make(map[id.SessionID]*models.Session),
		byAccount: make(map[id.AccountID][]id.SessionID),
	}
}

func (s *InMemoryStore) Save(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	cp := *session
	s.sessions[session.ID] = &cp
	s.byAccount[session.Account] = append(s.byAccount[session.Account], session.ID)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *session
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

// ListByAccount returns every stored session for the account, live or not;
// the service filters by validity.
func (s *InMemoryStore) ListByAccount(_ context.Context, account id.AccountID) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byAccount[account]
	sessions := make([]*models.Session, 0, len(ids))
	for _, sessionID := range ids {
		if session, ok := s.sessions[sessionID]; ok {
			cp := *session
			sessions = append(sessions, &cp)
		}
	}
	return sessions, nil
}

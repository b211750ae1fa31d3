package store

import (
	"context"
	"sync"
	"time"

	"custodia/internal/identity/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested entity does not exist
// - Return sentinel.ErrAlreadyExists on account or DID uniqueness violations
// - Return nil for successful operations

// InMemoryStore keeps identities, the DID index, and the verification queue
// in process memory. Reads return copies so callers cannot mutate state.
type InMemoryStore struct {
	mu         sync.RWMutex
	identities map[id.AccountID]*models.Identity
	dids       map[id.DID]id.AccountID
	queue      map[id.AccountID]time.Time
}

// New constructs an empty in-memory identity store.
func New() *InMemoryStore {
	return &InMemoryStore{
		identities: make(map[id.AccountID]*models.Identity),
		dids:       make(map[id.DID]id.AccountID),
		queue:      make(map[id.AccountID]time.Time),
	}
}

func (s *InMemoryStore) Save(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[identity.Owner]; ok {
		return sentinel.ErrAlreadyExists
	}
	if _, ok := s.dids[identity.DID]; ok {
		return sentinel.ErrAlreadyExists
	}
	cp := *identity
	s.identities[identity.Owner] = &cp
	s.dids[identity.DID] = identity.Owner
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, account id.AccountID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[account]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *identity
	return &cp, nil
}

func (s *InMemoryStore) GetByDID(_ context.Context, did id.DID) (*models.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.dids[did]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.identities[account]
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.identities[identity.Owner]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *identity
	s.identities[identity.Owner] = &cp
	return nil
}

// Enqueue adds the account to the verification queue. Idempotent: re-adding
// overwrites the requested-at timestamp.
func (s *InMemoryStore) Enqueue(_ context.Context, account id.AccountID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue[account] = at
	return nil
}

func (s *InMemoryStore) Dequeue(_ context.Context, account id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.queue, account)
	return nil
}

// PendingVerifications lists accounts currently awaiting auditor review.
func (s *InMemoryStore) PendingVerifications(_ context.Context) ([]id.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	accounts := make([]id.AccountID, 0, len(s.queue))
	for account := range s.queue {
		accounts = append(accounts, account)
	}
	return accounts, nil
}

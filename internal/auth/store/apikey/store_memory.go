package apikey

import (
	"context"
	"sync"

	"custodia/internal/auth/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

// InMemoryStore keeps API keys in process memory, indexed by key hash.
type InMemoryStore struct {
	mu   sync.RWMutex
	keys map[id.Hash32]*models.APIKey
}

// NewInMemory constructs an empty in-memory API key store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{keys: make(map[id.Hash32]*models.APIKey)}
}

func (s *InMemoryStore) Save(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key.KeyHash]; ok {
		return sentinel.ErrAlreadyExists
	}
	cp := *key
	s.keys[key.KeyHash] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, keyHash id.Hash32) (*models.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[keyHash]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *key
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key.KeyHash]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *key
	s.keys[key.KeyHash] = &cp
	return nil
}

package store

import (
	"context"
	"sync"

	"custodia/internal/consent/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested consent does not exist
// - Return sentinel.ErrAlreadyExists when saving a duplicate consent ID
// - Return nil for successful operations
//
// Capacity is a service concern: the store appends unconditionally and the
// service pre-checks index sizes before writing (validate-then-apply).

// InMemoryStore keeps consents, the append-only owner/consumer indices, the
// per-consent access logs, and the ID-derivation nonce in process memory.
type InMemoryStore struct {
	mu         sync.RWMutex
	consents   map[id.ConsentID]*models.Consent
	byOwner    map[id.AccountID][]id.ConsentID
	byConsumer map[id.AccountID][]id.ConsentID
	logs       map[id.ConsentID][]models.AccessLog
	nonce      uint64
}

// New constructs an empty in-memory consent store.
func New() *InMemoryStore {
	return &InMemoryStore{
		consents:   make(map[id.ConsentID]*models.Consent),
		byOwner:    make(map[id.AccountID][]id.ConsentID),
		byConsumer: make(map[id.AccountID][]id.ConsentID),
		logs:       make(map[id.ConsentID][]models.AccessLog),
	}
}

// Save stores a new consent and appends its ID to both indices.
func (s *InMemoryStore) Save(_ context.Context, consent *models.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consents[consent.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	cp := cloneConsent(consent)
	s.consents[consent.ID] = cp
	s.byOwner[consent.DataOwner] = append(s.byOwner[consent.DataOwner], consent.ID)
	s.byConsumer[consent.DataConsumer] = append(s.byConsumer[consent.DataConsumer], consent.ID)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, consentID id.ConsentID) (*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	consent, ok := s.consents[consentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneConsent(consent), nil
}

func (s *InMemoryStore) Update(_ context.Context, consent *models.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consents[consent.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.consents[consent.ID] = cloneConsent(consent)
	return nil
}

// OwnerIndex returns the append-only list of consent IDs ever created by the
// owner. Revoked and expired IDs remain; callers filter by loaded status.
func (s *InMemoryStore) OwnerIndex(_ context.Context, owner id.AccountID) ([]id.ConsentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]id.ConsentID{}, s.byOwner[owner]...), nil
}

// ConsumerIndex mirrors OwnerIndex for the consuming side.
func (s *InMemoryStore) ConsumerIndex(_ context.Context, consumer id.AccountID) ([]id.ConsentID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]id.ConsentID{}, s.byConsumer[consumer]...), nil
}

func (s *InMemoryStore) AppendAccessLog(_ context.Context, log models.AccessLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.consents[log.ConsentID]; !ok {
		return sentinel.ErrNotFound
	}
	s.logs[log.ConsentID] = append(s.logs[log.ConsentID], log)
	return nil
}

func (s *InMemoryStore) AccessLogs(_ context.Context, consentID id.ConsentID) ([]models.AccessLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AccessLog{}, s.logs[consentID]...), nil
}

// NextNonce advances the module's ID-derivation sequence.
func (s *InMemoryStore) NextNonce(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonce++
	return s.nonce, nil
}

func cloneConsent(c *models.Consent) *models.Consent {
	cp := *c
	cp.DataTypes = append([]models.DataType{}, c.DataTypes...)
	if c.RevokedAt != nil {
		t := *c.RevokedAt
		cp.RevokedAt = &t
	}
	if c.LastAccessed != nil {
		t := *c.LastAccessed
		cp.LastAccessed = &t
	}
	return &cp
}

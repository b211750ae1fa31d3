package store

import (
	"context"
	"sync"

	"custodia/internal/keys/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested entity does not exist
// - Return sentinel.ErrAlreadyExists on key ID collision
// - Return nil for successful operations

type accessKey struct {
	key     id.KeyID
	grantee id.AccountID
}

// InMemoryStore keeps key metadata, the per-owner key list, the record→key
// index, and access shares in process memory. The owner list is append-only;
// rotated and revoked keys stay listed.
type InMemoryStore struct {
	mu       sync.RWMutex
	keys     map[id.KeyID]*models.Key
	byOwner  map[id.AccountID][]id.KeyID
	byRecord map[id.RecordID]id.KeyID
	access   map[accessKey]*models.Access
	nonce    uint64
}

// New constructs an empty in-memory key store.
func New() *InMemoryStore {
	return &InMemoryStore{
		keys:     make(map[id.KeyID]*models.Key),
		byOwner:  make(map[id.AccountID][]id.KeyID),
		byRecord: make(map[id.RecordID]id.KeyID),
		access:   make(map[accessKey]*models.Access),
	}
}

func (s *InMemoryStore) Save(_ context.Context, key *models.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.keys[key.ID] = cloneKey(key)
	s.byOwner[key.Owner] = append(s.byOwner[key.Owner], key.ID)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, keyID id.KeyID) (*models.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[keyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneKey(key), nil
}

func (s *InMemoryStore) Update(_ context.Context, key *models.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.keys[key.ID] = cloneKey(key)
	return nil
}

// OwnerIndex returns the ids of every key the account ever generated.
func (s *InMemoryStore) OwnerIndex(_ context.Context, owner id.AccountID) ([]id.KeyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byOwner[owner]
	out := make([]id.KeyID, len(ids))
	copy(out, ids)
	return out, nil
}

// RecordKey returns the id of the record's current key.
func (s *InMemoryStore) RecordKey(_ context.Context, recordID id.RecordID) (id.KeyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keyID, ok := s.byRecord[recordID]
	if !ok {
		return id.KeyID{}, sentinel.ErrNotFound
	}
	return keyID, nil
}

// SetRecordKey points the record index at the key, replacing any previous
// entry (rotation repoints, generation inserts).
func (s *InMemoryStore) SetRecordKey(_ context.Context, recordID id.RecordID, keyID id.KeyID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byRecord[recordID] = keyID
	return nil
}

// SaveAccess upserts the (key, grantee) share.
func (s *InMemoryStore) SaveAccess(_ context.Context, access *models.Access) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *access
	s.access[accessKey{access.KeyID, access.Grantee}] = &cp
	return nil
}

func (s *InMemoryStore) GetAccess(_ context.Context, keyID id.KeyID, grantee id.AccountID) (*models.Access, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	access, ok := s.access[accessKey{keyID, grantee}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *access
	return &cp, nil
}

func (s *InMemoryStore) DeleteAccess(_ context.Context, keyID id.KeyID, grantee id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := accessKey{keyID, grantee}
	if _, ok := s.access[k]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.access, k)
	return nil
}

func (s *InMemoryStore) NextNonce(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonce++
	return s.nonce, nil
}

func cloneKey(key *models.Key) *models.Key {
	cp := *key
	if key.RecordID != nil {
		recordID := *key.RecordID
		cp.RecordID = &recordID
	}
	if key.RotatedTo != nil {
		rotatedTo := *key.RotatedTo
		cp.RotatedTo = &rotatedTo
	}
	return &cp
}

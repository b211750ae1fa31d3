package store

import (
	"context"
	"sync"

	"custodia/internal/access/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested entity does not exist
// - Return sentinel.ErrAlreadyExists on request ID collision
// - Return nil for successful operations

type grantKey struct {
	record    id.RecordID
	requester id.AccountID
}

// InMemoryStore keeps requests, the per-patient request index, and grants in
// process memory. The patient index is append-only; resolved requests stay
// listed.
type InMemoryStore struct {
	mu        sync.RWMutex
	requests  map[id.RequestID]*models.Request
	byPatient map[id.AccountID][]id.RequestID
	grants    map[grantKey]*models.Grant
	nonce     uint64
}

// New constructs an empty in-memory access store.
func New() *InMemoryStore {
	return &InMemoryStore{
		requests:  make(map[id.RequestID]*models.Request),
		byPatient: make(map[id.AccountID][]id.RequestID),
		grants:    make(map[grantKey]*models.Grant),
	}
}

func (s *InMemoryStore) SaveRequest(_ context.Context, request *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	cp := *request
	s.requests[request.ID] = &cp
	s.byPatient[request.Patient] = append(s.byPatient[request.Patient], request.ID)
	return nil
}

func (s *InMemoryStore) GetRequest(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *request
	return &cp, nil
}

func (s *InMemoryStore) UpdateRequest(_ context.Context, request *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *request
	s.requests[request.ID] = &cp
	return nil
}

// PatientIndex returns the ids of all requests ever addressed to the
// patient, in arrival order.
func (s *InMemoryStore) PatientIndex(_ context.Context, patient id.AccountID) ([]id.RequestID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPatient[patient]
	out := make([]id.RequestID, len(ids))
	copy(out, ids)
	return out, nil
}

// SaveGrant upserts the (record, requester) grant.
func (s *InMemoryStore) SaveGrant(_ context.Context, grant *models.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *grant
	s.grants[grantKey{grant.RecordID, grant.Requester}] = &cp
	return nil
}

func (s *InMemoryStore) GetGrant(_ context.Context, recordID id.RecordID, requester id.AccountID) (*models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	grant, ok := s.grants[grantKey{recordID, requester}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *grant
	return &cp, nil
}

func (s *InMemoryStore) DeleteGrant(_ context.Context, recordID id.RecordID, requester id.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := grantKey{recordID, requester}
	if _, ok := s.grants[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.grants, key)
	return nil
}

func (s *InMemoryStore) NextNonce(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonce++
	return s.nonce, nil
}

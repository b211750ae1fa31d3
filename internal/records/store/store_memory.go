package store

import (
	"context"
	"sync"

	"custodia/internal/records/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound when the requested entity does not exist
// - Return sentinel.ErrAlreadyExists on record ID collision
// - Return nil for successful operations

// InMemoryStore keeps records, the per-patient index, and per-record access
// logs in process memory. The patient index is append-only; deactivated
// records stay listed.
type InMemoryStore struct {
	mu        sync.RWMutex
	records   map[id.RecordID]*models.Record
	byPatient map[id.AccountID][]id.RecordID
	logs      map[id.RecordID][]models.AccessLog
	nonce     uint64
}

// New constructs an empty in-memory record store.
func New() *InMemoryStore {
	return &InMemoryStore{
		records:   make(map[id.RecordID]*models.Record),
		byPatient: make(map[id.AccountID][]id.RecordID),
		logs:      make(map[id.RecordID][]models.AccessLog),
	}
}

func (s *InMemoryStore) Save(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	s.records[record.ID] = cloneRecord(record)
	s.byPatient[record.Patient] = append(s.byPatient[record.Patient], record.ID)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, recordID id.RecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneRecord(record), nil
}

func (s *InMemoryStore) Update(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

// PatientIndex returns the ids of every record the patient ever uploaded.
func (s *InMemoryStore) PatientIndex(_ context.Context, patient id.AccountID) ([]id.RecordID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byPatient[patient]
	out := make([]id.RecordID, len(ids))
	copy(out, ids)
	return out, nil
}

func (s *InMemoryStore) AppendAccessLog(_ context.Context, log models.AccessLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[log.RecordID]; !ok {
		return sentinel.ErrNotFound
	}
	s.logs[log.RecordID] = append(s.logs[log.RecordID], log)
	return nil
}

func (s *InMemoryStore) AccessLogs(_ context.Context, recordID id.RecordID) ([]models.AccessLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := s.logs[recordID]
	out := make([]models.AccessLog, len(logs))
	copy(out, logs)
	return out, nil
}

func (s *InMemoryStore) NextNonce(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonce++
	return s.nonce, nil
}

func cloneRecord(record *models.Record) *models.Record {
	cp := *record
	if record.EncryptionKeyID != nil {
		keyID := *record.EncryptionKeyID
		cp.EncryptionKeyID = &keyID
	}
	if record.LastAccessed != nil {
		at := *record.LastAccessed
		cp.LastAccessed = &at
	}
	return &cp
}

package service

import (
	"context"
	"errors"
	"log/slog"

	"custodia/internal/audit"
	"custodia/internal/platform/clock"
	"custodia/internal/platform/metrics"
	"custodia/internal/records/models"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	platformsync "custodia/pkg/platform/sync"
	"custodia/pkg/platform/validation"
)

// Store defines the persistence interface for health record metadata.
// Error Contract:
// - Get returns sentinel.ErrNotFound when the record does not exist
// - Save returns sentinel.ErrAlreadyExists on record ID collision
// - AppendAccessLog returns sentinel.ErrNotFound for an unknown record
type Store interface {
	Save(ctx context.Context, record *models.Record) error
	Get(ctx context.Context, recordID id.RecordID) (*models.Record, error)
	Update(ctx context.Context, record *models.Record) error
	PatientIndex(ctx context.Context, patient id.AccountID) ([]id.RecordID, error)
	AppendAccessLog(ctx context.Context, log models.AccessLog) error
	AccessLogs(ctx context.Context, recordID id.RecordID) ([]models.AccessLog, error)
	NextNonce(ctx context.Context) (uint64, error)
}

type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service manages health record metadata. Payloads live off-chain in IPFS;
// the service tracks the content hash, classification, and the access trail.
type Service struct {
	store   Store
	auditor *audit.Publisher
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	mu      *platformsync.ShardedMutex
}

func NewService(store Store, auditor *audit.Publisher, clk clock.Clock, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		auditor: auditor,
		clock:   clk,
		logger:  logger,
		mu:      platformsync.NewShardedMutex(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Upload registers a new record for the caller. The record id is derived
// from the patient account and a store nonce, so retries of the same
// submission land on the same id.
func (s *Service) Upload(ctx context.Context, caller id.AccountID, ipfsHash string, category models.Category, format models.Format, title string, fileSize uint64, encryptionKeyID *id.KeyID) (*models.Record, error) {
	if ipfsHash == "" || len(ipfsHash) > validation.MaxIPFSHashLength {
		return nil, models.ErrInvalidIPFSHash
	}
	if title == "" || len(title) > validation.MaxTitleLength {
		return nil, models.ErrInvalidTitle
	}
	if !category.IsValid() {
		return nil, models.ErrInvalidCategory
	}
	if !format.IsValid() {
		return nil, models.ErrInvalidFormat
	}

	var record *models.Record
	err := s.mu.WithLock(caller.String(), func() error {
		index, err := s.store.PatientIndex(ctx, caller)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read record index")
		}
		if len(index) >= validation.MaxRecordsPerPatient {
			return models.ErrMaxRecordsReached
		}

		nonce, err := s.store.NextNonce(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to draw nonce")
		}
		record = &models.Record{
			ID:         id.RecordID(id.DeriveID([]byte(caller), id.Nonce(nonce))),
			Patient:    caller,
			IPFSHash:   ipfsHash,
			Category:   category,
			Format:     format,
			Title:      title,
			FileSize:   fileSize,
			UploadedAt: s.clock.Now(),
			Active:     true,
		}
		if encryptionKeyID != nil {
			keyID := *encryptionKeyID
			record.EncryptionKeyID = &keyID
		}
		if err := s.store.Save(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save record")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.ActionRecordUploaded, caller, record.ID.String(), string(category))
	if s.metrics != nil {
		s.metrics.IncrementRecordsUploaded(string(category))
	}
	s.logger.InfoContext(ctx, "record uploaded", "patient", caller, "record_id", record.ID, "category", category)
	return record, nil
}

// UpdateTitle renames a record. Only the owning patient may rename, and only
// while the record is active.
func (s *Service) UpdateTitle(ctx context.Context, caller id.AccountID, recordID id.RecordID, title string) error {
	if title == "" || len(title) > validation.MaxTitleLength {
		return models.ErrInvalidTitle
	}

	err := s.mu.WithLock(recordID.String(), func() error {
		record, err := s.loadRecord(ctx, recordID)
		if err != nil {
			return err
		}
		if record.Patient != caller {
			return models.ErrNotAuthorized
		}
		if !record.Active {
			return models.ErrRecordInactive
		}
		record.Title = title
		if err := s.store.Update(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update record")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionRecordUpdated, caller, recordID.String(), "title")
	s.logger.InfoContext(ctx, "record title updated", "patient", caller, "record_id", recordID)
	return nil
}

// Deactivate retires a record. Deactivation is terminal; the record stays
// readable but accepts no further updates or access logs.
func (s *Service) Deactivate(ctx context.Context, caller id.AccountID, recordID id.RecordID) error {
	err := s.mu.WithLock(recordID.String(), func() error {
		record, err := s.loadRecord(ctx, recordID)
		if err != nil {
			return err
		}
		if record.Patient != caller {
			return models.ErrNotAuthorized
		}
		if !record.Active {
			return models.ErrRecordInactive
		}
		record.Active = false
		if err := s.store.Update(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update record")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionRecordDeactivated, caller, recordID.String(), "")
	s.logger.InfoContext(ctx, "record deactivated", "patient", caller, "record_id", recordID)
	return nil
}

// LogAccess appends an access entry and bumps the record's usage counters.
// The log is bounded; a full log rejects further accesses rather than
// dropping old entries.
func (s *Service) LogAccess(ctx context.Context, caller id.AccountID, recordID id.RecordID, purpose string) error {
	if len(purpose) > validation.MaxPurposeLength {
		return dErrors.New(dErrors.CodeValidation, "purpose exceeds maximum length")
	}

	err := s.mu.WithLock(recordID.String(), func() error {
		record, err := s.loadRecord(ctx, recordID)
		if err != nil {
			return err
		}
		if !record.Active {
			return models.ErrRecordInactive
		}
		logs, err := s.store.AccessLogs(ctx, recordID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read access logs")
		}
		if len(logs) >= validation.MaxAccessLogs {
			return models.ErrMaxAccessLogs
		}

		now := s.clock.Now()
		if err := s.store.AppendAccessLog(ctx, models.AccessLog{
			RecordID:   recordID,
			Accessor:   caller,
			AccessedAt: now,
			Purpose:    purpose,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append access log")
		}
		record.AccessCount++
		record.LastAccessed = &now
		if err := s.store.Update(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update record")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionRecordAccessed, caller, recordID.String(), purpose)
	s.logger.InfoContext(ctx, "record access logged", "accessor", caller, "record_id", recordID)
	return nil
}

// Get returns a record by id.
func (s *Service) Get(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	return s.loadRecord(ctx, recordID)
}

// ForPatient returns every record the patient ever uploaded, active or not.
func (s *Service) ForPatient(ctx context.Context, patient id.AccountID) ([]*models.Record, error) {
	return s.listForPatient(ctx, patient, false)
}

// ActiveForPatient returns the patient's records that are still active.
func (s *Service) ActiveForPatient(ctx context.Context, patient id.AccountID) ([]*models.Record, error) {
	return s.listForPatient(ctx, patient, true)
}

// AccessLogs returns the access trail for a record. Only the owning patient
// may read the trail.
func (s *Service) AccessLogs(ctx context.Context, caller id.AccountID, recordID id.RecordID) ([]models.AccessLog, error) {
	record, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.Patient != caller {
		return nil, models.ErrNotAuthorized
	}
	logs, err := s.store.AccessLogs(ctx, recordID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read access logs")
	}
	return logs, nil
}

func (s *Service) listForPatient(ctx context.Context, patient id.AccountID, activeOnly bool) ([]*models.Record, error) {
	index, err := s.store.PatientIndex(ctx, patient)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read record index")
	}
	records := make([]*models.Record, 0, len(index))
	for _, recordID := range index {
		record, err := s.store.Get(ctx, recordID)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
		}
		if activeOnly && !record.Active {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *Service) loadRecord(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	record, err := s.store.Get(ctx, recordID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, models.ErrRecordNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}
	return record, nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, account id.AccountID, entity, detail string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Module:  audit.ModuleRecords,
		Action:  action,
		Account: account.String(),
		Entity:  entity,
		Detail:  detail,
	})
}

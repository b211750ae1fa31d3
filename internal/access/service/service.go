package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"custodia/internal/access/models"
	"custodia/internal/audit"
	"custodia/internal/platform/clock"
	"custodia/internal/platform/metrics"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	platformsync "custodia/pkg/platform/sync"
	"custodia/pkg/platform/validation"
)

// Store defines the persistence interface for access requests and grants.
// Error Contract:
// - GetRequest/GetGrant/DeleteGrant return sentinel.ErrNotFound when absent
// - SaveRequest returns sentinel.ErrAlreadyExists on ID collision
// - SaveGrant upserts; other methods return nil on success
type Store interface {
	SaveRequest(ctx context.Context, request *models.Request) error
	GetRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	UpdateRequest(ctx context.Context, request *models.Request) error
	PatientIndex(ctx context.Context, patient id.AccountID) ([]id.RequestID, error)
	SaveGrant(ctx context.Context, grant *models.Grant) error
	GetGrant(ctx context.Context, recordID id.RecordID, requester id.AccountID) (*models.Grant, error)
	DeleteGrant(ctx context.Context, recordID id.RecordID, requester id.AccountID) error
	NextNonce(ctx context.Context) (uint64, error)
}

type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service mediates record access: requests flow requester → patient, the
// patient's decision materializes or withholds a Grant, and HasAccess is the
// single predicate record readers gate on.
//
// The consent referenced by a request is stored untrusted here; the
// transport layer verifies it against the consent manager before Grant.
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

// RequestAccess files a Pending request from the caller for the record.
// The patient's inbox capacity is checked before the write.
func (s *Service) RequestAccess(ctx context.Context, caller id.AccountID, recordID id.RecordID, patient id.AccountID, consentID id.ConsentID) (*models.Request, error) {
	var request *models.Request
	err := s.mu.WithLock(patient.String(), func() error {
		index, err := s.store.PatientIndex(ctx, patient)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read request index")
		}
		if len(index) >= validation.MaxRequestsPerPatient {
			return models.ErrMaxRequestsReached
		}

		nonce, err := s.store.NextNonce(ctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to advance nonce")
		}
		request = &models.Request{
			ID:          id.RequestID(id.DeriveID([]byte(caller), id.Nonce(nonce))),
			RecordID:    recordID,
			Requester:   caller,
			Patient:     patient,
			ConsentID:   consentID,
			Status:      models.StatusPending,
			RequestedAt: s.clock.Now(),
		}
		if err := s.store.SaveRequest(ctx, request); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.ActionAccessRequested, caller, request.ID.String(), recordID.String())
	if s.metrics != nil {
		s.metrics.IncrementAccessRequests()
	}
	s.logger.InfoContext(ctx, "access requested",
		"requester", caller, "patient", patient, "record_id", recordID, "request_id", request.ID)
	return request, nil
}

// Grant approves a pending request and materializes the (record, requester)
// grant. Patient-only, and single-use: a resolved request cannot be granted
// again.
func (s *Service) Grant(ctx context.Context, caller id.AccountID, requestID id.RequestID, expiresAt time.Time) (*models.Grant, error) {
	var grant *models.Grant
	err := s.mu.WithLock(requestID.String(), func() error {
		request, err := s.loadRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if request.Patient != caller {
			return models.ErrNotAuthorized
		}
		if !request.IsPending() {
			return models.ErrRequestAlreadyResolved
		}
		now := s.clock.Now()
		if !expiresAt.After(now) {
			return models.ErrInvalidExpiryTime
		}

		request.Status = models.StatusGranted
		request.RespondedAt = &now
		if err := s.store.UpdateRequest(ctx, request); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update request")
		}
		grant = &models.Grant{
			RecordID:  request.RecordID,
			Requester: request.Requester,
			GrantedBy: caller,
			GrantedAt: now,
			ExpiresAt: expiresAt,
		}
		if err := s.store.SaveGrant(ctx, grant); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save grant")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.ActionAccessGranted, caller, requestID.String(), grant.Requester.String())
	if s.metrics != nil {
		s.metrics.IncrementAccessGrants()
	}
	return grant, nil
}

// Deny refuses a pending request. Patient-only, single-use.
func (s *Service) Deny(ctx context.Context, caller id.AccountID, requestID id.RequestID) error {
	err := s.mu.WithLock(requestID.String(), func() error {
		request, err := s.loadRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if request.Patient != caller {
			return models.ErrNotAuthorized
		}
		if !request.IsPending() {
			return models.ErrRequestAlreadyResolved
		}
		now := s.clock.Now()
		request.Status = models.StatusDenied
		request.RespondedAt = &now
		if err := s.store.UpdateRequest(ctx, request); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update request")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionAccessDenied, caller, requestID.String(), "")
	if s.metrics != nil {
		s.metrics.IncrementAccessDenials()
	}
	return nil
}

// Revoke deletes the (record, requester) grant. Only the account that issued
// the grant or the requester relinquishing their own may revoke; a missing
// grant fails rather than emitting a phantom revocation.
func (s *Service) Revoke(ctx context.Context, caller id.AccountID, recordID id.RecordID, requester id.AccountID) error {
	err := s.mu.WithLock(recordID.String(), func() error {
		grant, err := s.store.GetGrant(ctx, recordID, requester)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrGrantNotFound
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read grant")
		}
		if caller != grant.GrantedBy && caller != grant.Requester {
			return models.ErrNotAuthorized
		}
		if err := s.store.DeleteGrant(ctx, recordID, requester); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete grant")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionAccessRevoked, caller, recordID.String(), requester.String())
	if s.metrics != nil {
		s.metrics.IncrementGrantsRevoked()
	}
	return nil
}

// HasAccess is the pure predicate record readers consult: a grant exists
// and its expiry is strictly after now. Request state never matters here.
func (s *Service) HasAccess(ctx context.Context, recordID id.RecordID, requester id.AccountID, now time.Time) (bool, error) {
	grant, err := s.store.GetGrant(ctx, recordID, requester)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.observeGrantCheck("miss")
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read grant")
	}
	if !grant.ValidAt(now) {
		s.observeGrantCheck("expired")
		return false, nil
	}
	s.observeGrantCheck("hit")
	return true, nil
}

// GetRequest returns a request by ID.
func (s *Service) GetRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	return s.loadRequest(ctx, requestID)
}

// RequestsForPatient lists the caller's own inbox, newest state included.
func (s *Service) RequestsForPatient(ctx context.Context, caller id.AccountID) ([]*models.Request, error) {
	index, err := s.store.PatientIndex(ctx, caller)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read request index")
	}
	requests := make([]*models.Request, 0, len(index))
	for _, requestID := range index {
		request, err := s.store.GetRequest(ctx, requestID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read request")
		}
		requests = append(requests, request)
	}
	return requests, nil
}

func (s *Service) loadRequest(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrRequestNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read request")
	}
	return request, nil
}

func (s *Service) observeGrantCheck(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementGrantChecks(outcome)
	}
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, account id.AccountID, entity, detail string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Module:  audit.ModuleAccess,
		Action:  action,
		Account: account.String(),
		Entity:  entity,
		Detail:  detail,
	})
}

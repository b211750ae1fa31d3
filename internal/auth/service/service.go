package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"custodia/internal/audit"
	"custodia/internal/auth/models"
	"custodia/internal/platform/clock"
	"custodia/internal/platform/metrics"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	platformsync "custodia/pkg/platform/sync"
	"custodia/pkg/platform/validation"
)

// DefaultSessionTTL bounds a session's life when no override is configured.
const DefaultSessionTTL = 24 * time.Hour

// SessionStore defines the persistence interface for sessions.
// Error Contract:
// - Get returns sentinel.ErrNotFound when the session does not exist
// - Save returns sentinel.ErrAlreadyExists on ID collision
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	ListByAccount(ctx context.Context, account id.AccountID) ([]*models.Session, error)
}

// APIKeyStore defines the persistence interface for API keys, keyed by the
// hash of the secret.
type APIKeyStore interface {
	Save(ctx context.Context, key *models.APIKey) error
	Get(ctx context.Context, keyHash id.Hash32) (*models.APIKey, error)
	Update(ctx context.Context, key *models.APIKey) error
}

// IdentityOracle is the slice of the identity registry this module needs:
// credentials exist only for accounts with an active identity.
type IdentityOracle interface {
	IsActiveIdentity(ctx context.Context, account id.AccountID) (bool, error)
}

type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSessionTTL overrides the default session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) { s.sessionTTL = ttl }
}

// Service owns off-ledger authentication: bounded sessions and hashed API
// keys. Both require an active identity at creation time.
type Service struct {
	sessions   SessionStore
	apiKeys    APIKeyStore
	identities IdentityOracle
	auditor    *audit.Publisher
	clock      clock.Clock
	logger     *slog.Logger
	metrics    *metrics.Metrics
	sessionTTL time.Duration
	mu         *platformsync.ShardedMutex
}

func NewService(sessions SessionStore, apiKeys APIKeyStore, identities IdentityOracle, auditor *audit.Publisher, clk clock.Clock, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		sessions:   sessions,
		apiKeys:    apiKeys,
		identities: identities,
		auditor:    auditor,
		clock:      clk,
		logger:     logger,
		sessionTTL: DefaultSessionTTL,
		mu:         platformsync.NewShardedMutex(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateSession opens a session for the caller. The per-account live-session
// cap is checked before the write; expired and revoked sessions do not count
// against it.
func (s *Service) CreateSession(ctx context.Context, caller id.AccountID, deviceName string) (*models.Session, error) {
	if len(deviceName) > validation.MaxDeviceNameLength {
		deviceName = deviceName[:validation.MaxDeviceNameLength]
	}
	if err := s.requireActiveIdentity(ctx, caller); err != nil {
		return nil, err
	}

	var session *models.Session
	err := s.mu.WithLock(caller.String(), func() error {
		now := s.clock.Now()
		existing, err := s.sessions.ListByAccount(ctx, caller)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
		}
		live := 0
		for _, sess := range existing {
			if sess.ValidAt(now) {
				live++
			}
		}
		if live >= validation.MaxSessionsPerAccount {
			return models.ErrMaxSessionsReached
		}

		session = &models.Session{
			ID:         id.SessionID(id.DeriveID([]byte(caller), id.Nonce(uint64(now.UnixNano())))),
			Account:    caller,
			CreatedAt:  now,
			ExpiresAt:  now.Add(s.sessionTTL),
			Active:     true,
			DeviceName: deviceName,
		}
		if err := s.sessions.Save(ctx, session); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.ActionSessionCreated, caller, session.ID.String(), deviceName)
	if s.metrics != nil {
		s.metrics.IncrementActiveSessions(1)
	}
	s.logger.InfoContext(ctx, "session created", "account", caller, "session_id", session.ID)
	return session, nil
}

// RevokeSession turns a session off before its expiry. Own sessions only.
func (s *Service) RevokeSession(ctx context.Context, caller id.AccountID, sessionID id.SessionID) error {
	err := s.mu.WithLock(sessionID.String(), func() error {
		session, err := s.loadSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Account != caller {
			return models.ErrNotAuthorized
		}
		if !session.Active {
			return models.ErrSessionRevoked
		}
		session.Active = false
		if err := s.sessions.Update(ctx, session); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update session")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionSessionRevoked, caller, sessionID.String(), "")
	if s.metrics != nil {
		s.metrics.DecrementActiveSessions(1)
	}
	return nil
}

// IsSessionValid is the predicate the auth middleware consults on every
// request. Unknown sessions report false without error.
func (s *Service) IsSessionValid(ctx context.Context, sessionID id.SessionID, now time.Time) (bool, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read session")
	}
	return session.ValidAt(now), nil
}

// Sessions lists the caller's own sessions, live and dead.
func (s *Service) Sessions(ctx context.Context, caller id.AccountID) ([]*models.Session, error) {
	sessions, err := s.sessions.ListByAccount(ctx, caller)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sessions")
	}
	return sessions, nil
}

// CreateAPIKey registers a hashed API key under the caller's account.
func (s *Service) CreateAPIKey(ctx context.Context, caller id.AccountID, keyHash id.Hash32, name string) (*models.APIKey, error) {
	if name == "" || len(name) > validation.MaxAPIKeyNameLength {
		return nil, models.ErrInvalidName
	}
	if err := s.requireActiveIdentity(ctx, caller); err != nil {
		return nil, err
	}

	key := &models.APIKey{
		Account:   caller,
		KeyHash:   keyHash,
		Name:      name,
		CreatedAt: s.clock.Now(),
		Active:    true,
	}
	if err := s.apiKeys.Save(ctx, key); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, models.ErrAPIKeyAlreadyExists
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save api key")
	}

	s.emitAudit(ctx, audit.ActionAPIKeyCreated, caller, keyHash.String(), name)
	return key, nil
}

// RevokeAPIKey turns an API key off. Own keys only.
func (s *Service) RevokeAPIKey(ctx context.Context, caller id.AccountID, keyHash id.Hash32) error {
	err := s.mu.WithLock(keyHash.String(), func() error {
		key, err := s.loadAPIKey(ctx, keyHash)
		if err != nil {
			return err
		}
		if key.Account != caller {
			return models.ErrNotAuthorized
		}
		key.Active = false
		if err := s.apiKeys.Update(ctx, key); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update api key")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionAPIKeyRevoked, caller, keyHash.String(), "")
	return nil
}

// TouchAPIKey bumps LastUsed when the transport authenticates a key. A
// revoked key fails so callers stop honoring it.
func (s *Service) TouchAPIKey(ctx context.Context, keyHash id.Hash32, now time.Time) (*models.APIKey, error) {
	var key *models.APIKey
	err := s.mu.WithLock(keyHash.String(), func() error {
		loaded, err := s.loadAPIKey(ctx, keyHash)
		if err != nil {
			return err
		}
		if !loaded.Active {
			return models.ErrAPIKeyInactive
		}
		loaded.LastUsed = &now
		if err := s.apiKeys.Update(ctx, loaded); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update api key")
		}
		key = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

func (s *Service) requireActiveIdentity(ctx context.Context, account id.AccountID) error {
	active, err := s.identities.IsActiveIdentity(ctx, account)
	if err != nil {
		return err
	}
	if !active {
		return models.ErrInvalidIdentity
	}
	return nil
}

func (s *Service) loadSession(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrSessionNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read session")
	}
	return session, nil
}

func (s *Service) loadAPIKey(ctx context.Context, keyHash id.Hash32) (*models.APIKey, error) {
	key, err := s.apiKeys.Get(ctx, keyHash)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrAPIKeyNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read api key")
	}
	return key, nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, account id.AccountID, entity, detail string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Module:  audit.ModuleAuth,
		Action:  action,
		Account: account.String(),
		Entity:  entity,
		Detail:  detail,
	})
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"custodia/internal/audit"
	"custodia/internal/keys/models"
	"custodia/internal/keys/vault"
	"custodia/internal/platform/clock"
	"custodia/internal/platform/metrics"
	"custodia/internal/sentinel"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	platformsync "custodia/pkg/platform/sync"
	"custodia/pkg/platform/validation"
)

// Store defines the persistence interface for key metadata and shares.
// Error Contract:
// - Get/RecordKey/GetAccess/DeleteAccess return sentinel.ErrNotFound when absent
// - Save returns sentinel.ErrAlreadyExists on key ID collision
// - SaveAccess and SetRecordKey upsert
type Store interface {
	Save(ctx context.Context, key *models.Key) error
	Get(ctx context.Context, keyID id.KeyID) (*models.Key, error)
	Update(ctx context.Context, key *models.Key) error
	OwnerIndex(ctx context.Context, owner id.AccountID) ([]id.KeyID, error)
	RecordKey(ctx context.Context, recordID id.RecordID) (id.KeyID, error)
	SetRecordKey(ctx context.Context, recordID id.RecordID, keyID id.KeyID) error
	SaveAccess(ctx context.Context, access *models.Access) error
	GetAccess(ctx context.Context, keyID id.KeyID, grantee id.AccountID) (*models.Access, error)
	DeleteAccess(ctx context.Context, keyID id.KeyID, grantee id.AccountID) error
	NextNonce(ctx context.Context) (uint64, error)
}

type Option func(*Service)

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service manages encryption key lifecycles: generation, rotation chains,
// revocation, and per-grantee shares. Ledger records carry metadata only;
// material lives sealed in the vault.
type Service struct {
	store   Store
	vault   *vault.Vault
	auditor *audit.Publisher
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	mu      *platformsync.ShardedMutex
}

func NewService(store Store, keyVault *vault.Vault, auditor *audit.Publisher, clk clock.Clock, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:   store,
		vault:   keyVault,
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

// Generate creates a new active key for the caller and draws its material
// into the vault. The record-uniqueness check applies at generation only;
// rotation repoints the index deliberately.
func (s *Service) Generate(ctx context.Context, caller id.AccountID, algorithm models.Algorithm, purpose models.Purpose, recordID *id.RecordID, expiresAt time.Time) (*models.Key, error) {
	if !algorithm.IsValid() {
		return nil, models.ErrInvalidAlgorithm
	}
	if !purpose.IsValid() {
		return nil, models.ErrInvalidPurpose
	}

	var key *models.Key
	err := s.mu.WithLock(caller.String(), func() error {
		now := s.clock.Now()
		if !expiresAt.IsZero() && !expiresAt.After(now) {
			return models.ErrInvalidExpiryTime
		}
		index, err := s.store.OwnerIndex(ctx, caller)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read key index")
		}
		if len(index) >= validation.MaxKeysPerAccount {
			return models.ErrMaxKeysReached
		}
		if recordID != nil {
			if _, err := s.store.RecordKey(ctx, *recordID); err == nil {
				return models.ErrRecordAlreadyHasKey
			} else if !errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read record index")
			}
		}

		key, err = s.mint(ctx, caller, algorithm, purpose, recordID, now, expiresAt)
		if err != nil {
			return err
		}
		if recordID != nil {
			if err := s.store.SetRecordKey(ctx, *recordID, key.ID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to index record key")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.ActionKeyGenerated, caller, key.ID.String(), string(algorithm))
	if s.metrics != nil {
		s.metrics.IncrementKeysGenerated(string(algorithm))
	}
	s.logger.InfoContext(ctx, "key generated", "owner", caller, "key_id", key.ID, "algorithm", algorithm)
	return key, nil
}

// Rotate retires the record's current key and mints a successor with fresh
// material. Every precondition, including the owner's key-list capacity, is
// checked before the old key is touched; a failed rotation leaves the old
// key active and the record index unchanged.
func (s *Service) Rotate(ctx context.Context, caller id.AccountID, recordID id.RecordID, newAlgorithm models.Algorithm, expiresAt time.Time) (*models.Key, error) {
	if !newAlgorithm.IsValid() {
		return nil, models.ErrInvalidAlgorithm
	}

	var newKey *models.Key
	var oldID id.KeyID
	err := s.mu.WithLock(recordID.String(), func() error {
		currentID, err := s.store.RecordKey(ctx, recordID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrNoKeyForRecord
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read record index")
		}
		oldKey, err := s.load(ctx, currentID)
		if err != nil {
			return err
		}
		if oldKey.Owner != caller {
			return models.ErrNotAuthorized
		}
		now := s.clock.Now()
		if !expiresAt.IsZero() && !expiresAt.After(now) {
			return models.ErrInvalidExpiryTime
		}
		index, err := s.store.OwnerIndex(ctx, caller)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read key index")
		}
		if len(index) >= validation.MaxKeysPerAccount {
			return models.ErrMaxKeysReached
		}

		newKey, err = s.mint(ctx, caller, newAlgorithm, oldKey.Purpose, &recordID, now, expiresAt)
		if err != nil {
			return err
		}
		oldKey.Active = false
		oldKey.Rotated = true
		oldKey.RotatedTo = &newKey.ID
		if err := s.store.Update(ctx, oldKey); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to retire old key")
		}
		if err := s.store.SetRecordKey(ctx, recordID, newKey.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to repoint record index")
		}
		oldID = oldKey.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, audit.ActionKeyRotated, caller, newKey.ID.String(), oldID.String())
	if s.metrics != nil {
		s.metrics.IncrementKeysRotated()
	}
	return newKey, nil
}

// RevokeKey turns a key off and destroys its sealed material. Owner-only.
func (s *Service) RevokeKey(ctx context.Context, caller id.AccountID, keyID id.KeyID) error {
	err := s.mu.WithLock(keyID.String(), func() error {
		key, err := s.load(ctx, keyID)
		if err != nil {
			return err
		}
		if key.Owner != caller {
			return models.ErrNotAuthorized
		}
		if !key.Active {
			return models.ErrKeyAlreadyRevoked
		}
		key.Active = false
		if err := s.store.Update(ctx, key); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update key")
		}
		s.vault.Destroy(keyID)
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionKeyRevoked, caller, keyID.String(), "")
	if s.metrics != nil {
		s.metrics.IncrementKeysRevoked()
	}
	return nil
}

// GrantAccess shares the key with a grantee. Owner-only; re-granting
// overwrites the previous share's expiry.
func (s *Service) GrantAccess(ctx context.Context, caller id.AccountID, keyID id.KeyID, grantee id.AccountID, expiresAt time.Time) error {
	err := s.mu.WithLock(keyID.String(), func() error {
		key, err := s.load(ctx, keyID)
		if err != nil {
			return err
		}
		if key.Owner != caller {
			return models.ErrNotAuthorized
		}
		now := s.clock.Now()
		if !expiresAt.IsZero() && !expiresAt.After(now) {
			return models.ErrInvalidExpiryTime
		}
		if err := s.store.SaveAccess(ctx, &models.Access{
			KeyID:     keyID,
			Grantee:   grantee,
			GrantedAt: now,
			ExpiresAt: expiresAt,
		}); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save key access")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionKeyAccessGranted, caller, keyID.String(), grantee.String())
	return nil
}

// RevokeAccess removes a grantee's share. Owner-only; a missing share fails.
func (s *Service) RevokeAccess(ctx context.Context, caller id.AccountID, keyID id.KeyID, grantee id.AccountID) error {
	err := s.mu.WithLock(keyID.String(), func() error {
		key, err := s.load(ctx, keyID)
		if err != nil {
			return err
		}
		if key.Owner != caller {
			return models.ErrNotAuthorized
		}
		if err := s.store.DeleteAccess(ctx, keyID, grantee); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrAccessNotFound
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete key access")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emitAudit(ctx, audit.ActionKeyAccessRevoked, caller, keyID.String(), grantee.String())
	return nil
}

// HasAccess reports whether the account may use the key at the instant:
// the owner while the key is active and unexpired, or a grantee whose share
// has not expired.
func (s *Service) HasAccess(ctx context.Context, keyID id.KeyID, account id.AccountID, now time.Time) (bool, error) {
	key, err := s.store.Get(ctx, keyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read key")
	}
	if key.Owner == account {
		return key.UsableAt(now), nil
	}
	access, err := s.store.GetAccess(ctx, keyID, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return false, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read key access")
	}
	return access.ValidAt(now), nil
}

// Get returns key metadata by ID.
func (s *Service) Get(ctx context.Context, keyID id.KeyID) (*models.Key, error) {
	return s.load(ctx, keyID)
}

// RecordKey returns the record's current key id, following the newest link
// of the rotation chain.
func (s *Service) RecordKey(ctx context.Context, recordID id.RecordID) (id.KeyID, error) {
	keyID, err := s.store.RecordKey(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.KeyID{}, models.ErrNoKeyForRecord
		}
		return id.KeyID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read record index")
	}
	return keyID, nil
}

// KeysForOwner lists metadata for every key the caller ever generated,
// rotation chain included.
func (s *Service) KeysForOwner(ctx context.Context, caller id.AccountID) ([]*models.Key, error) {
	index, err := s.store.OwnerIndex(ctx, caller)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read key index")
	}
	keys := make([]*models.Key, 0, len(index))
	for _, keyID := range index {
		key, err := s.store.Get(ctx, keyID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read key")
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// mint creates and persists a fresh key with vaulted material. Callers hold
// the relevant lock and have already validated capacity.
func (s *Service) mint(ctx context.Context, owner id.AccountID, algorithm models.Algorithm, purpose models.Purpose, recordID *id.RecordID, now time.Time, expiresAt time.Time) (*models.Key, error) {
	nonce, err := s.store.NextNonce(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to advance nonce")
	}
	key := &models.Key{
		ID:        id.KeyID(id.DeriveID([]byte(owner), id.Nonce(nonce))),
		Owner:     owner,
		Algorithm: algorithm,
		Purpose:   purpose,
		RecordID:  recordID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		Active:    true,
	}
	if err := s.vault.Generate(key.ID); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to vault key material")
	}
	if err := s.store.Save(ctx, key); err != nil {
		s.vault.Destroy(key.ID)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save key")
	}
	return key, nil
}

func (s *Service) load(ctx context.Context, keyID id.KeyID) (*models.Key, error) {
	key, err := s.store.Get(ctx, keyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrKeyNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read key")
	}
	return key, nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.Action, account id.AccountID, entity, detail string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Module:  audit.ModuleKeys,
		Action:  action,
		Account: account.String(),
		Entity:  entity,
		Detail:  detail,
	})
}

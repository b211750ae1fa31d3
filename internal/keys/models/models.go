package models

import (
	"time"

	id "custodia/pkg/domain"
)

// Key is the ledger-side metadata of an encryption key. The 32 bytes of key
// material never appear here; they live sealed in the module's vault.
type Key struct {
	ID        id.KeyID
	Owner     id.AccountID
	Algorithm Algorithm
	Purpose   Purpose
	RecordID  *id.RecordID
	CreatedAt time.Time
	ExpiresAt time.Time // zero means no expiry
	Active    bool
	Rotated   bool
	RotatedTo *id.KeyID
}

// UsableAt reports whether the owner may use the key at the instant.
func (k Key) UsableAt(now time.Time) bool {
	if !k.Active {
		return false
	}
	return k.ExpiresAt.IsZero() || now.Before(k.ExpiresAt)
}

// Access is a per-grantee share of a key, keyed by (key, grantee).
type Access struct {
	KeyID     id.KeyID
	Grantee   id.AccountID
	GrantedAt time.Time
	ExpiresAt time.Time // zero means no expiry
}

// ValidAt reports whether the share authorizes the grantee at the instant.
func (a Access) ValidAt(now time.Time) bool {
	return a.ExpiresAt.IsZero() || now.Before(a.ExpiresAt)
}

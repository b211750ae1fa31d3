// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"encoding/hex"

	dErrors "custodia/pkg/domain-errors"
)

// EntityID is a 32-byte content-derived identifier. Entity IDs are computed
// by hashing the creating account together with a per-module sequence nonce,
// so they are deterministic for a given history and carry no wall-clock data.
type EntityID [32]byte

// Distinct ID types - compiler prevents passing a ConsentID where a
// RequestID is expected.
type (
	ConsentID EntityID
	RequestID EntityID
	KeyID     EntityID
	RecordID  EntityID
	SessionID EntityID
)

// Hash32 is an opaque 32-byte digest supplied by callers: email hashes,
// consent terms hashes, accessed-data hashes, API key hashes. The service
// never learns the preimage.
type Hash32 [32]byte

// AccountID is the opaque address of a ledger account. The transport layer
// resolves it from the caller's credentials; services treat it as an
// already-authenticated principal.
type AccountID string

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseConsentID(s string) (ConsentID, error) {
	id, err := parseEntityID(s, "consent ID")
	return ConsentID(id), err
}

func ParseRequestID(s string) (RequestID, error) {
	id, err := parseEntityID(s, "request ID")
	return RequestID(id), err
}

func ParseKeyID(s string) (KeyID, error) {
	id, err := parseEntityID(s, "key ID")
	return KeyID(id), err
}

func ParseRecordID(s string) (RecordID, error) {
	id, err := parseEntityID(s, "record ID")
	return RecordID(id), err
}

func ParseSessionID(s string) (SessionID, error) {
	id, err := parseEntityID(s, "session ID")
	return SessionID(id), err
}

func ParseHash32(s string) (Hash32, error) {
	id, err := parseEntityID(s, "hash")
	return Hash32(id), err
}

func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "account ID cannot be empty")
	}
	if len(s) > 64 {
		return "", dErrors.New(dErrors.CodeValidation, "account ID exceeds 64 bytes")
	}
	return AccountID(s), nil
}

// String methods - for logging and debugging. Entity IDs render as hex.

func (id ConsentID) String() string { return hex.EncodeToString(id[:]) }
func (id RequestID) String() string { return hex.EncodeToString(id[:]) }
func (id KeyID) String() string     { return hex.EncodeToString(id[:]) }
func (id RecordID) String() string  { return hex.EncodeToString(id[:]) }
func (id SessionID) String() string { return hex.EncodeToString(id[:]) }
func (h Hash32) String() string     { return hex.EncodeToString(h[:]) }
func (a AccountID) String() string  { return string(a) }

// IsZero checks - used for service-layer validation.

func (id ConsentID) IsZero() bool { return id == ConsentID{} }
func (id RequestID) IsZero() bool { return id == RequestID{} }
func (id KeyID) IsZero() bool     { return id == KeyID{} }
func (id RecordID) IsZero() bool  { return id == RecordID{} }
func (id SessionID) IsZero() bool { return id == SessionID{} }
func (h Hash32) IsZero() bool     { return h == Hash32{} }
func (a AccountID) IsZero() bool  { return a == "" }

// parseEntityID is the shared validation logic.
// Note: the zero ID is allowed here. Use IsZero() at the service layer for
// business validation, which allows store lookups to return proper
// "not found" errors for consistency.
func parseEntityID(s, label string) (EntityID, error) {
	var id EntityID
	if s == "" {
		return id, dErrors.New(dErrors.CodeValidation, label+" cannot be empty")
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(id) {
		return id, dErrors.New(dErrors.CodeValidation, "invalid "+label+" format")
	}
	copy(id[:], raw)
	return id, nil
}

package models

import (
	"time"

	id "custodia/pkg/domain"
)

// Session is a bounded off-ledger login. The ID derives from the account and
// the creation instant, so concurrent logins from one account stay distinct.
type Session struct {
	ID         id.SessionID
	Account    id.AccountID
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Active     bool
	DeviceName string
}

// ValidAt reports whether the session authenticates at the instant. Expiry
// is strict: the session is already invalid at its ExpiresAt.
func (s Session) ValidAt(now time.Time) bool {
	return s.Active && s.ExpiresAt.After(now)
}

// APIKey is a long-lived credential for programmatic callers, stored by the
// hash of the secret. The service never sees the key material itself.
type APIKey struct {
	Account   id.AccountID
	KeyHash   id.Hash32
	Name      string
	CreatedAt time.Time
	LastUsed  *time.Time
	Active    bool
}

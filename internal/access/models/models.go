package models

import (
	"time"

	id "custodia/pkg/domain"
)

// Request is a researcher's petition to read a patient record. The consent
// reference travels with the request untrusted; verifying it is the granting
// side's duty.
type Request struct {
	ID          id.RequestID
	RecordID    id.RecordID
	Requester   id.AccountID
	Patient     id.AccountID
	ConsentID   id.ConsentID
	Status      RequestStatus
	RequestedAt time.Time
	RespondedAt *time.Time
}

// IsPending reports whether the request still awaits a patient decision.
func (r Request) IsPending() bool {
	return r.Status == StatusPending
}

// Grant is the authoritative access fact, keyed by (record, requester).
// GrantedBy records which account issued it; revocation is restricted to
// that account or the requester relinquishing their own grant.
type Grant struct {
	RecordID  id.RecordID
	Requester id.AccountID
	GrantedBy id.AccountID
	GrantedAt time.Time
	ExpiresAt time.Time
}

// ValidAt reports whether the grant authorizes access at the instant. The
// expiry bound is strict: a grant is already expired at its ExpiresAt.
func (g Grant) ValidAt(now time.Time) bool {
	return g.ExpiresAt.After(now)
}

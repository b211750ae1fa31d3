package models

import (
	"time"

	id "custodia/pkg/domain"
)

// Consent is a grant from a data owner (patient) to a data consumer
// (researcher or institution) covering a bounded set of data types for one
// purpose, until ExpiresAt.
//
// # Authority Invariant
//
// The Consent record is the single authority on validity. The owner and
// consumer indices are append-only and never pruned on revocation, so an ID
// found in an index MUST be re-checked against the loaded record before any
// access decision.
type Consent struct {
	ID           id.ConsentID
	DataOwner    id.AccountID
	DataConsumer id.AccountID
	Purpose      Purpose
	DataTypes    []DataType
	CreatedAt    time.Time
	// ExpiresAt zero means the consent never expires on its own.
	ExpiresAt    time.Time
	Status       Status
	RevokedAt    *time.Time
	AccessCount  uint64
	LastAccessed *time.Time
	TermsHash    id.Hash32
}

// TimeExpired reports whether the expiry deadline has passed at now. It says
// nothing about Status: expiry is evaluated lazily, so an Active consent can
// already be time-expired.
func (c Consent) TimeExpired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

// IsValidFor is the full access predicate: Active status, not past expiry,
// and the accessor is the designated consumer.
func (c Consent) IsValidFor(accessor id.AccountID, now time.Time) bool {
	return c.Status == StatusActive && !c.TimeExpired(now) && c.DataConsumer == accessor
}

// AccessLog records one data access performed under a consent. Approved is
// false for attempts that were rejected at the gate.
type AccessLog struct {
	ConsentID  id.ConsentID
	Accessor   id.AccountID
	AccessedAt time.Time
	DataHash   id.Hash32
	Approved   bool
}

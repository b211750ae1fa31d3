package models

import dErrors "custodia/pkg/domain-errors"

// Closed error set for access control.
var (
	ErrRequestNotFound        = dErrors.New(dErrors.CodeNotFound, "access request not found")
	ErrGrantNotFound          = dErrors.New(dErrors.CodeNotFound, "access grant not found")
	ErrNotAuthorized          = dErrors.New(dErrors.CodeUnauthorized, "caller may not act on this request or grant")
	ErrRequestAlreadyResolved = dErrors.New(dErrors.CodeInvalidState, "request already granted or denied")
	ErrInvalidExpiryTime      = dErrors.New(dErrors.CodeValidation, "grant expiry must be in the future")
	ErrMaxRequestsReached     = dErrors.New(dErrors.CodeCapacityExceeded, "patient request inbox full")
)

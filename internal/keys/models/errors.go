package models

import dErrors "custodia/pkg/domain-errors"

// Closed error set for the key manager.
var (
	ErrKeyNotFound         = dErrors.New(dErrors.CodeNotFound, "key not found")
	ErrNoKeyForRecord      = dErrors.New(dErrors.CodeNotFound, "record has no encryption key")
	ErrAccessNotFound      = dErrors.New(dErrors.CodeNotFound, "key access grant not found")
	ErrNotAuthorized       = dErrors.New(dErrors.CodeUnauthorized, "caller does not own this key")
	ErrInvalidAlgorithm    = dErrors.New(dErrors.CodeValidation, "unknown encryption algorithm")
	ErrInvalidPurpose      = dErrors.New(dErrors.CodeValidation, "unknown key purpose")
	ErrInvalidExpiryTime   = dErrors.New(dErrors.CodeValidation, "expiry must be in the future")
	ErrMaxKeysReached      = dErrors.New(dErrors.CodeCapacityExceeded, "key limit reached for account")
	ErrRecordAlreadyHasKey = dErrors.New(dErrors.CodeConflict, "record already has an encryption key")
	ErrKeyAlreadyRevoked   = dErrors.New(dErrors.CodeInvalidState, "key already inactive")
)

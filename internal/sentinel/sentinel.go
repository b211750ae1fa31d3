package sentinel

import "errors"

// Sentinel dependency errors. Dependencies should return these (optionally wrapped)
// so services can translate them into domain errors exactly once.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidState  = errors.New("invalid state")
	ErrCapacity      = errors.New("capacity exceeded")
	ErrExpired       = errors.New("expired")
	ErrUnavailable   = errors.New("unavailable")
)

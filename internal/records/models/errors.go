package models

import dErrors "custodia/pkg/domain-errors"

// Closed error set for the record registry.
var (
	ErrRecordNotFound    = dErrors.New(dErrors.CodeNotFound, "record not found")
	ErrNotAuthorized     = dErrors.New(dErrors.CodeUnauthorized, "caller is not the record's patient")
	ErrInvalidIPFSHash   = dErrors.New(dErrors.CodeValidation, "content hash empty or too long")
	ErrInvalidTitle      = dErrors.New(dErrors.CodeValidation, "title empty or too long")
	ErrInvalidCategory   = dErrors.New(dErrors.CodeValidation, "unknown record category")
	ErrInvalidFormat     = dErrors.New(dErrors.CodeValidation, "unknown record format")
	ErrMaxRecordsReached = dErrors.New(dErrors.CodeCapacityExceeded, "record limit reached for patient")
	ErrRecordInactive    = dErrors.New(dErrors.CodeInvalidState, "record deactivated")
	ErrMaxAccessLogs     = dErrors.New(dErrors.CodeCapacityExceeded, "record access log full")
)

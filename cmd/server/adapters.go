package main

import (
	"context"
	"time"

	authsvc "custodia/internal/auth/service"
	"custodia/internal/platform/clock"
	"custodia/internal/platform/middleware"
	recordsvc "custodia/internal/records/service"
	"custodia/internal/token"
	id "custodia/pkg/domain"
)

// tokenValidatorAdapter bridges the token service onto the auth middleware.
type tokenValidatorAdapter struct {
	tokens *token.Service
}

func (a tokenValidatorAdapter) Validate(tokenString string) (*middleware.Claims, error) {
	claims, err := a.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.Claims{Account: claims.Account, SessionID: claims.SessionID}, nil
}

// sessionCheckerAdapter answers the middleware's session-liveness question
// from the auth service. A malformed session ID counts as revoked.
type sessionCheckerAdapter struct {
	auth  *authsvc.Service
	clock clock.Clock
}

func (a sessionCheckerAdapter) IsSessionValid(ctx context.Context, sessionID string) (bool, error) {
	sid, err := id.ParseSessionID(sessionID)
	if err != nil {
		return false, nil
	}
	return a.auth.IsSessionValid(ctx, sid, a.clock.Now())
}

// recordDirectoryAdapter resolves record ownership for the access grant
// cross-check.
type recordDirectoryAdapter struct {
	records *recordsvc.Service
}

func (a recordDirectoryAdapter) Owner(ctx context.Context, recordID id.RecordID) (id.AccountID, error) {
	rec, err := a.records.Get(ctx, recordID)
	if err != nil {
		return "", err
	}
	return rec.Patient, nil
}

// healthCheck adapts a context-taking probe to the health handler's
// zero-argument check signature.
func healthCheck(probe func(ctx context.Context) error) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return probe(ctx)
	}
}

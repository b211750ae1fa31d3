package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// Claims carries the authenticated caller extracted from an access token.
type Claims struct {
	Account   string
	SessionID string
}

// TokenValidator verifies an access token string and returns its claims.
type TokenValidator interface {
	Validate(tokenString string) (*Claims, error)
}

// SessionChecker reports whether the session a token references is still
// live. A revoked session cuts the token before its own expiry.
type SessionChecker interface {
	IsSessionValid(ctx context.Context, sessionID string) (bool, error)
}

type contextKeyAccount struct{}
type contextKeySessionID struct{}

// WithAccount returns a context carrying the authenticated account and
// session, as RequireAuth would set them.
func WithAccount(ctx context.Context, account, sessionID string) context.Context {
	ctx = context.WithValue(ctx, contextKeyAccount{}, account)
	return context.WithValue(ctx, contextKeySessionID{}, sessionID)
}

// GetAccount retrieves the authenticated account from the context.
func GetAccount(ctx context.Context) string {
	account, ok := ctx.Value(contextKeyAccount{}).(string)
	if !ok {
		return ""
	}
	return account
}

// GetSessionID retrieves the session ID from the context.
func GetSessionID(ctx context.Context) string {
	sessionID, ok := ctx.Value(contextKeySessionID{}).(string)
	if !ok {
		return ""
	}
	return sessionID
}

// RequireAuth authenticates requests with a bearer token and stores the
// caller's account and session in the context. Requests without a valid
// token, or whose session is no longer live, get 401.
func RequireAuth(validator TokenValidator, sessions SessionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			const bearerPrefix = "Bearer "
			tokenString, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access, missing token", "request_id", requestID)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.Validate(tokenString)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access, invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			if sessions != nil && claims.SessionID != "" {
				valid, err := sessions.IsSessionValid(ctx, claims.SessionID)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check session",
						"error", err,
						"request_id", requestID,
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal_error","error_description":"Failed to validate session"}`))
					return
				}
				if !valid {
					logger.WarnContext(ctx, "unauthorized access, session not live",
						"session_id", claims.SessionID,
						"request_id", requestID,
					)
					writeUnauthorized(w, "Session expired or revoked")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(WithAccount(ctx, claims.Account, claims.SessionID)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}

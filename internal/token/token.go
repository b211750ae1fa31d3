package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"custodia/internal/platform/clock"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Claims are the JWT claims carried by API access tokens. Tokens bind an
// account to a session; session revocation cuts a token before its expiry.
type Claims struct {
	Account   string `json:"account"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Service mints and validates HS256 access tokens.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
	tokenTTL   time.Duration
	clock      clock.Clock
}

func NewService(signingKey, issuer, audience string, tokenTTL time.Duration, clk clock.Clock) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		tokenTTL:   tokenTTL,
		clock:      clk,
	}
}

// Generate signs a token for the account and session. The token expiry is
// independent of the session expiry; validation checks both.
func (s *Service) Generate(account id.AccountID, sessionID id.SessionID) (string, error) {
	if account == "" {
		return "", dErrors.New(dErrors.CodeValidation, "account cannot be empty")
	}

	now := s.clock.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Account:   account.String(),
		SessionID: sessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

// Validate verifies signature, algorithm, expiry, and issuer, and returns
// the claims. Session liveness is the caller's check.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "empty token")
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.clock.Now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	if !strings.EqualFold(claims.Issuer, s.issuer) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token issuer")
	}

	return claims, nil
}

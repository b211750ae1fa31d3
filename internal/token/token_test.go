package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"custodia/internal/platform/clock"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

const testSigningKey = "test-signing-key-at-least-32-bytes!"

func newTestService(clk clock.Clock) *Service {
	return NewService(testSigningKey, "custodia", "custodia-api", time.Hour, clk)
}

func TestGenerateAndValidate(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(clk)
	sessionID := id.SessionID{0x01}

	tokenString, err := svc.Generate(id.AccountID("acct_alice"), sessionID)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := svc.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "acct_alice", claims.Account)
	assert.Equal(t, sessionID.String(), claims.SessionID)
	assert.Equal(t, "custodia", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerate_EmptyAccount(t *testing.T) {
	svc := newTestService(clock.System{})
	_, err := svc.Generate(id.AccountID(""), id.SessionID{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestValidate_Expired(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(clk)

	tokenString, err := svc.Generate(id.AccountID("acct_alice"), id.SessionID{0x01})
	require.NoError(t, err)

	clk.Advance(time.Hour + time.Second)
	_, err = svc.Validate(tokenString)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidate_WrongKey(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestService(clk)
	other := NewService("another-signing-key-also-32-bytes!!", "custodia", "custodia-api", time.Hour, clk)

	tokenString, err := other.Generate(id.AccountID("acct_alice"), id.SessionID{0x01})
	require.NoError(t, err)

	_, err = svc.Validate(tokenString)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidate_WrongIssuer(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	other := NewService(testSigningKey, "someone-else", "custodia-api", time.Hour, clk)
	svc := newTestService(clk)

	tokenString, err := other.Generate(id.AccountID("acct_alice"), id.SessionID{0x01})
	require.NoError(t, err)

	_, err = svc.Validate(tokenString)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidate_Garbage(t *testing.T) {
	svc := newTestService(clock.System{})

	for _, tokenString := range []string{"", "not.a.jwt", "a.b"} {
		_, err := svc.Validate(tokenString)
		assert.Error(t, err)
	}
}

package httptransport

// Auth handler tests: login authentication (API key vs. open mode), token
// issuance, and the one-time API key reveal.

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authModel "custodia/internal/auth/models"
	"custodia/internal/platform/clock"
	"custodia/internal/platform/middleware"
	id "custodia/pkg/domain"
)

type stubAuthService struct {
	session *authModel.Session
	apiKey  *authModel.APIKey
	err     error

	gotCaller     id.AccountID
	gotDeviceName string
	gotKeyHash    id.Hash32
	gotName       string
	touched       bool
}

func (s *stubAuthService) CreateSession(_ context.Context, caller id.AccountID, deviceName string) (*authModel.Session, error) {
	s.gotCaller, s.gotDeviceName = caller, deviceName
	return s.session, s.err
}

func (s *stubAuthService) RevokeSession(_ context.Context, caller id.AccountID, _ id.SessionID) error {
	s.gotCaller = caller
	return s.err
}

func (s *stubAuthService) Sessions(context.Context, id.AccountID) ([]*authModel.Session, error) {
	return []*authModel.Session{s.session}, s.err
}

func (s *stubAuthService) CreateAPIKey(_ context.Context, caller id.AccountID, keyHash id.Hash32, name string) (*authModel.APIKey, error) {
	s.gotCaller, s.gotKeyHash, s.gotName = caller, keyHash, name
	return s.apiKey, s.err
}

func (s *stubAuthService) RevokeAPIKey(_ context.Context, caller id.AccountID, keyHash id.Hash32) error {
	s.gotCaller, s.gotKeyHash = caller, keyHash
	return s.err
}

func (s *stubAuthService) TouchAPIKey(_ context.Context, keyHash id.Hash32, _ time.Time) (*authModel.APIKey, error) {
	s.touched = true
	s.gotKeyHash = keyHash
	return s.apiKey, s.err
}

type stubTokenIssuer struct {
	token string
	err   error
}

func (s *stubTokenIssuer) Generate(id.AccountID, id.SessionID) (string, error) {
	return s.token, s.err
}

func sampleSession() *authModel.Session {
	return &authModel.Session{
		ID:         id.SessionID{0x01},
		Account:    "acct_alice",
		CreatedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		ExpiresAt:  time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
		Active:     true,
		DeviceName: "Firefox on Linux",
	}
}

func newAuthRouter(service AuthService, regulated bool) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clk := clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	handler := NewAuthHandler(service, &stubTokenIssuer{token: "signed-token"}, clk, regulated, logger)
	r := chi.NewRouter()
	handler.RegisterPublic(r)
	handler.Register(r)
	return r
}

func TestAuthHandler_CreateSessionOpenMode(t *testing.T) {
	service := &stubAuthService{session: sampleSession()}
	router := newAuthRouter(service, false)

	body, _ := json.Marshal(map[string]string{"account": "acct_alice"})
	req := httptest.NewRequest(http.MethodPost, "/auth/sessions", bytes.NewReader(body))
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Token   string          `json:"token"`
		Session sessionResponse `json:"session"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "signed-token", resp.Token)
	assert.Equal(t, id.AccountID("acct_alice"), service.gotCaller)
	assert.Contains(t, service.gotDeviceName, "Firefox")
}

func TestAuthHandler_CreateSessionRegulatedNeedsAPIKey(t *testing.T) {
	service := &stubAuthService{session: sampleSession()}
	router := newAuthRouter(service, true)

	body, _ := json.Marshal(map[string]string{"account": "acct_alice"})
	req := httptest.NewRequest(http.MethodPost, "/auth/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, service.touched)
}

func TestAuthHandler_CreateSessionWithAPIKey(t *testing.T) {
	service := &stubAuthService{
		session: sampleSession(),
		apiKey:  &authModel.APIKey{Account: "acct_alice", Name: "ci"},
	}
	router := newAuthRouter(service, true)

	req := httptest.NewRequest(http.MethodPost, "/auth/sessions", nil)
	req.Header.Set("X-API-Key", "raw-api-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, service.touched)
	assert.Equal(t, apiKeyHash("raw-api-key"), service.gotKeyHash)
	assert.Equal(t, id.AccountID("acct_alice"), service.gotCaller)
}

func TestAuthHandler_CreateAPIKeyRevealsOnce(t *testing.T) {
	service := &stubAuthService{
		apiKey: &authModel.APIKey{Account: "acct_alice", Name: "ci", CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
	}
	router := newAuthRouter(service, true)

	body, _ := json.Marshal(map[string]string{"name": "ci"})
	req := httptest.NewRequest(http.MethodPost, "/auth/api-keys", bytes.NewReader(body))
	req = req.WithContext(middleware.WithAccount(req.Context(), "acct_alice", ""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Key)
	assert.Equal(t, "ci", resp.Name)
	// The stored hash must match the revealed key.
	assert.Equal(t, apiKeyHash(resp.Key), service.gotKeyHash)
}

func TestAuthHandler_SessionCapMapsTo429(t *testing.T) {
	service := &stubAuthService{err: authModel.ErrMaxSessionsReached}
	router := newAuthRouter(service, false)

	body, _ := json.Marshal(map[string]string{"account": "acct_alice"})
	req := httptest.NewRequest(http.MethodPost, "/auth/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestDeviceNameFromUA(t *testing.T) {
	assert.Equal(t, "unknown device", deviceNameFromUA(""))
	name := deviceNameFromUA("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	assert.Contains(t, name, "Chrome")
}

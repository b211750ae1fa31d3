package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

// MockTokenValidator is a testify mock for TokenValidator
type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) Validate(tokenString string) (*Claims, error) {
	args := m.Called(tokenString)
	if claims := args.Get(0); claims != nil {
		return claims.(*Claims), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSessionChecker struct {
	mock.Mock
}

func (m *MockSessionChecker) IsSessionValid(ctx context.Context, sessionID string) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

// mockHandler captures whether the wrapped handler ran and with what context
type mockHandler struct {
	called  bool
	context context.Context
}

func (m *mockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.called = true
	m.context = r.Context()
	w.WriteHeader(http.StatusOK)
}

type AuthMiddlewareSuite struct {
	suite.Suite
	validator *MockTokenValidator
	sessions  *MockSessionChecker
	next      *mockHandler
	handler   http.Handler
}

func (s *AuthMiddlewareSuite) SetupTest() {
	s.validator = new(MockTokenValidator)
	s.sessions = new(MockSessionChecker)
	s.next = &mockHandler{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.handler = RequireAuth(s.validator, s.sessions, logger)(s.next)
}

func TestAuthMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(AuthMiddlewareSuite))
}

func (s *AuthMiddlewareSuite) serve(authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/consents", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *AuthMiddlewareSuite) TestValidToken() {
	s.validator.On("Validate", "good-token").Return(&Claims{Account: "acct_alice", SessionID: "sess1"}, nil)
	s.sessions.On("IsSessionValid", mock.Anything, "sess1").Return(true, nil)

	rec := s.serve("Bearer good-token")

	assert.Equal(s.T(), http.StatusOK, rec.Code)
	assert.True(s.T(), s.next.called)
	assert.Equal(s.T(), "acct_alice", GetAccount(s.next.context))
	assert.Equal(s.T(), "sess1", GetSessionID(s.next.context))
}

func (s *AuthMiddlewareSuite) TestMissingHeader() {
	rec := s.serve("")
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
	assert.False(s.T(), s.next.called)
}

func (s *AuthMiddlewareSuite) TestMalformedHeader() {
	rec := s.serve("Basic dXNlcjpwYXNz")
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
	assert.False(s.T(), s.next.called)
}

func (s *AuthMiddlewareSuite) TestInvalidToken() {
	s.validator.On("Validate", "bad-token").Return(nil, errors.New("invalid token"))

	rec := s.serve("Bearer bad-token")
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
	assert.False(s.T(), s.next.called)
}

func (s *AuthMiddlewareSuite) TestRevokedSession() {
	s.validator.On("Validate", "good-token").Return(&Claims{Account: "acct_alice", SessionID: "sess1"}, nil)
	s.sessions.On("IsSessionValid", mock.Anything, "sess1").Return(false, nil)

	rec := s.serve("Bearer good-token")
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
	assert.False(s.T(), s.next.called)
}

func (s *AuthMiddlewareSuite) TestSessionCheckError() {
	s.validator.On("Validate", "good-token").Return(&Claims{Account: "acct_alice", SessionID: "sess1"}, nil)
	s.sessions.On("IsSessionValid", mock.Anything, "sess1").Return(false, errors.New("store down"))

	rec := s.serve("Bearer good-token")
	assert.Equal(s.T(), http.StatusInternalServerError, rec.Code)
	assert.False(s.T(), s.next.called)
}

func (s *AuthMiddlewareSuite) TestEmptyContextAccessors() {
	assert.Empty(s.T(), GetAccount(context.Background()))
	assert.Empty(s.T(), GetSessionID(context.Background()))
}

package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"

	authModel "custodia/internal/auth/models"
	"custodia/internal/platform/clock"
	"custodia/internal/transport/httputil"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/secrets"
)

// AuthService is the slice of the authentication service the transport
// needs.
type AuthService interface {
	CreateSession(ctx context.Context, caller id.AccountID, deviceName string) (*authModel.Session, error)
	RevokeSession(ctx context.Context, caller id.AccountID, sessionID id.SessionID) error
	Sessions(ctx context.Context, caller id.AccountID) ([]*authModel.Session, error)
	CreateAPIKey(ctx context.Context, caller id.AccountID, keyHash id.Hash32, name string) (*authModel.APIKey, error)
	RevokeAPIKey(ctx context.Context, caller id.AccountID, keyHash id.Hash32) error
	TouchAPIKey(ctx context.Context, keyHash id.Hash32, now time.Time) (*authModel.APIKey, error)
}

// TokenIssuer mints signed access tokens binding an account to a session.
type TokenIssuer interface {
	Generate(account id.AccountID, sessionID id.SessionID) (string, error)
}

// AuthHandler exposes session and API key endpoints.
//
// Session creation is the one surface that cannot demand a bearer token.
// It authenticates with an API key (X-API-Key); deployments running with
// regulated mode off additionally accept a bare account for local use.
type AuthHandler struct {
	auth          AuthService
	tokens        TokenIssuer
	clock         clock.Clock
	regulatedMode bool
	logger        *slog.Logger
}

func NewAuthHandler(auth AuthService, tokens TokenIssuer, clk clock.Clock, regulatedMode bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, clock: clk, regulatedMode: regulatedMode, logger: logger}
}

// RegisterPublic mounts the unauthenticated login surface.
func (h *AuthHandler) RegisterPublic(r chi.Router) {
	r.Post("/auth/sessions", h.handleCreateSession)
}

// Register mounts the endpoints that require a live session.
func (h *AuthHandler) Register(r chi.Router) {
	r.Get("/auth/sessions", h.handleListSessions)
	r.Delete("/auth/sessions/{id}", h.handleRevokeSession)
	r.Post("/auth/api-keys", h.handleCreateAPIKey)
	r.Post("/auth/api-keys/revoke", h.handleRevokeAPIKey)
}

type createSessionRequest struct {
	Account string `json:"account"`
}

type sessionResponse struct {
	ID         string    `json:"id"`
	Account    string    `json:"account"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Active     bool      `json:"active"`
	DeviceName string    `json:"device_name"`
}

func sessionView(session *authModel.Session) sessionResponse {
	return sessionResponse{
		ID:         session.ID.String(),
		Account:    session.Account.String(),
		CreatedAt:  session.CreatedAt,
		ExpiresAt:  session.ExpiresAt,
		Active:     session.Active,
		DeviceName: session.DeviceName,
	}
}

func (h *AuthHandler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	account, err := h.authenticateLogin(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.auth.CreateSession(r.Context(), account, deviceNameFromUA(r.UserAgent()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	tokenString, err := h.tokens.Generate(account, session.ID)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token"))
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"token":   tokenString,
		"session": sessionView(session),
	})
}

// authenticateLogin resolves the account opening a session. An API key in
// X-API-Key wins; without one, regulated deployments refuse the login.
func (h *AuthHandler) authenticateLogin(r *http.Request) (id.AccountID, error) {
	if rawKey := r.Header.Get("X-API-Key"); rawKey != "" {
		key, err := h.auth.TouchAPIKey(r.Context(), apiKeyHash(rawKey), h.clock.Now())
		if err != nil {
			return "", err
		}
		return key.Account, nil
	}

	if h.regulatedMode {
		return "", dErrors.New(dErrors.CodeUnauthorized, "API key required")
	}
	req, err := decodeLoginBody(r)
	if err != nil {
		return "", err
	}
	return id.ParseAccountID(req.Account)
}

func decodeLoginBody(r *http.Request) (*createSessionRequest, error) {
	var req createSessionRequest
	body := http.MaxBytesReader(nil, r.Body, 4096)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid request body")
	}
	return &req, nil
}

// deviceNameFromUA renders a human-readable device label from the client's
// User-Agent header.
func deviceNameFromUA(uaString string) string {
	if uaString == "" {
		return "unknown device"
	}
	ua := useragent.New(uaString)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name
	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	}
	return "unknown device"
}

func (h *AuthHandler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	sessions, err := h.auth.Sessions(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, sessionView(session))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"sessions": views})
}

func (h *AuthHandler) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "session id")
		return
	}
	if err := h.auth.RevokeSession(r.Context(), account, sessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createAPIKeyRequest struct {
	Name string `json:"name" validate:"required,notblank"`
}

type revokeAPIKeyRequest struct {
	Key string `json:"key"`
}

func (h *AuthHandler) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[createAPIKeyRequest](w, r, h.logger)
	if !ok {
		return
	}

	// The raw key is returned exactly once; only its digest is stored.
	rawKey, err := secrets.Generate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	key, err := h.auth.CreateAPIKey(r.Context(), account, apiKeyHash(rawKey), req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"key":        rawKey,
		"name":       key.Name,
		"created_at": key.CreatedAt,
	})
}

func (h *AuthHandler) handleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[revokeAPIKeyRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Key == "" {
		writeParseError(w, "key")
		return
	}
	if err := h.auth.RevokeAPIKey(r.Context(), account, apiKeyHash(req.Key)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func apiKeyHash(rawKey string) id.Hash32 {
	return id.Digest([]byte(rawKey))
}

package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	keysModel "custodia/internal/keys/models"
	"custodia/internal/platform/clock"
	"custodia/internal/transport/httputil"
	id "custodia/pkg/domain"
)

// KeyService is the slice of the key manager the transport needs.
type KeyService interface {
	Generate(ctx context.Context, caller id.AccountID, algorithm keysModel.Algorithm, purpose keysModel.Purpose, recordID *id.RecordID, expiresAt time.Time) (*keysModel.Key, error)
	Rotate(ctx context.Context, caller id.AccountID, recordID id.RecordID, newAlgorithm keysModel.Algorithm, expiresAt time.Time) (*keysModel.Key, error)
	RevokeKey(ctx context.Context, caller id.AccountID, keyID id.KeyID) error
	GrantAccess(ctx context.Context, caller id.AccountID, keyID id.KeyID, grantee id.AccountID, expiresAt time.Time) error
	RevokeAccess(ctx context.Context, caller id.AccountID, keyID id.KeyID, grantee id.AccountID) error
	HasAccess(ctx context.Context, keyID id.KeyID, account id.AccountID, now time.Time) (bool, error)
	Get(ctx context.Context, keyID id.KeyID) (*keysModel.Key, error)
	RecordKey(ctx context.Context, recordID id.RecordID) (id.KeyID, error)
	KeysForOwner(ctx context.Context, caller id.AccountID) ([]*keysModel.Key, error)
}

// KeyHandler exposes the encryption key manager endpoints. Key material
// never crosses this boundary; responses carry metadata only.
type KeyHandler struct {
	keys   KeyService
	clock  clock.Clock
	logger *slog.Logger
}

func NewKeyHandler(keys KeyService, clk clock.Clock, logger *slog.Logger) *KeyHandler {
	return &KeyHandler{keys: keys, clock: clk, logger: logger}
}

func (h *KeyHandler) Register(r chi.Router) {
	r.Post("/keys", h.handleGenerate)
	r.Get("/keys", h.handleList)
	r.Post("/keys/rotate", h.handleRotate)
	r.Get("/keys/record/{record}", h.handleRecordKey)
	r.Get("/keys/{id}", h.handleGet)
	r.Delete("/keys/{id}", h.handleRevokeKey)
	r.Get("/keys/{id}/check", h.handleCheck)
	r.Post("/keys/{id}/shares", h.handleGrantAccess)
	r.Delete("/keys/{id}/shares/{grantee}", h.handleRevokeAccess)
}

type generateKeyRequest struct {
	Algorithm string     `json:"algorithm"`
	Purpose   string     `json:"purpose"`
	RecordID  string     `json:"record_id"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type rotateKeyRequest struct {
	RecordID  string     `json:"record_id"`
	Algorithm string     `json:"algorithm"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type shareKeyRequest struct {
	Grantee   string    `json:"grantee"`
	ExpiresAt time.Time `json:"expires_at"`
}

type keyResponse struct {
	ID        string     `json:"id"`
	Owner     string     `json:"owner"`
	Algorithm string     `json:"algorithm"`
	Purpose   string     `json:"purpose"`
	RecordID  string     `json:"record_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Active    bool       `json:"active"`
	Rotated   bool       `json:"rotated"`
	RotatedTo string     `json:"rotated_to,omitempty"`
}

func keyView(key *keysModel.Key) keyResponse {
	view := keyResponse{
		ID:        key.ID.String(),
		Owner:     key.Owner.String(),
		Algorithm: string(key.Algorithm),
		Purpose:   string(key.Purpose),
		CreatedAt: key.CreatedAt,
		Active:    key.Active,
		Rotated:   key.Rotated,
	}
	if key.RecordID != nil {
		view.RecordID = key.RecordID.String()
	}
	if !key.ExpiresAt.IsZero() {
		expiresAt := key.ExpiresAt
		view.ExpiresAt = &expiresAt
	}
	if key.RotatedTo != nil {
		view.RotatedTo = key.RotatedTo.String()
	}
	return view
}

func (h *KeyHandler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[generateKeyRequest](w, r, h.logger)
	if !ok {
		return
	}
	var recordID *id.RecordID
	if req.RecordID != "" {
		parsed, err := id.ParseRecordID(req.RecordID)
		if err != nil {
			writeParseError(w, "record_id")
			return
		}
		recordID = &parsed
	}
	var expiresAt time.Time
	if req.ExpiresAt != nil {
		expiresAt = *req.ExpiresAt
	}

	key, err := h.keys.Generate(r.Context(), account, keysModel.Algorithm(req.Algorithm), keysModel.Purpose(req.Purpose), recordID, expiresAt)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, keyView(key))
}

func (h *KeyHandler) handleRotate(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[rotateKeyRequest](w, r, h.logger)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(req.RecordID)
	if err != nil {
		writeParseError(w, "record_id")
		return
	}
	var expiresAt time.Time
	if req.ExpiresAt != nil {
		expiresAt = *req.ExpiresAt
	}

	key, err := h.keys.Rotate(r.Context(), account, recordID, keysModel.Algorithm(req.Algorithm), expiresAt)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, keyView(key))
}

func (h *KeyHandler) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	keyID, err := id.ParseKeyID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "key id")
		return
	}
	if err := h.keys.RevokeKey(r.Context(), account, keyID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *KeyHandler) handleGrantAccess(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	keyID, err := id.ParseKeyID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "key id")
		return
	}
	req, ok := httputil.DecodeJSON[shareKeyRequest](w, r, h.logger)
	if !ok {
		return
	}
	grantee, err := id.ParseAccountID(req.Grantee)
	if err != nil {
		writeParseError(w, "grantee")
		return
	}
	if err := h.keys.GrantAccess(r.Context(), account, keyID, grantee, req.ExpiresAt); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *KeyHandler) handleRevokeAccess(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	keyID, err := id.ParseKeyID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "key id")
		return
	}
	grantee, err := id.ParseAccountID(chi.URLParam(r, "grantee"))
	if err != nil {
		writeParseError(w, "grantee")
		return
	}
	if err := h.keys.RevokeAccess(r.Context(), account, keyID, grantee); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *KeyHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	keyID, err := id.ParseKeyID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "key id")
		return
	}
	has, err := h.keys.HasAccess(r.Context(), keyID, account, h.clock.Now())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"has_access": has})
}

func (h *KeyHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	keyID, err := id.ParseKeyID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "key id")
		return
	}
	key, err := h.keys.Get(r.Context(), keyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, keyView(key))
}

func (h *KeyHandler) handleRecordKey(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "record"))
	if err != nil {
		writeParseError(w, "record id")
		return
	}
	keyID, err := h.keys.RecordKey(r.Context(), recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"key_id": keyID.String()})
}

func (h *KeyHandler) handleList(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	keys, err := h.keys.KeysForOwner(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]keyResponse, 0, len(keys))
	for _, key := range keys {
		views = append(views, keyView(key))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"keys": views})
}

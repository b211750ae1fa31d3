package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	consentModel "custodia/internal/consent/models"
	"custodia/internal/platform/clock"
	"custodia/internal/transport/httputil"
	id "custodia/pkg/domain"
	pstrings "custodia/pkg/platform/strings"
)

// ConsentService is the slice of the consent manager the transport needs.
type ConsentService interface {
	Create(ctx context.Context, caller, consumer id.AccountID, purpose consentModel.Purpose, dataTypes []consentModel.DataType, expiresAt time.Time, termsHash id.Hash32) (*consentModel.Consent, error)
	Revoke(ctx context.Context, caller id.AccountID, consentID id.ConsentID) error
	Update(ctx context.Context, caller id.AccountID, consentID id.ConsentID, newExpiresAt *time.Time, newDataTypes []consentModel.DataType) (*consentModel.Consent, error)
	LogAccess(ctx context.Context, caller id.AccountID, consentID id.ConsentID, dataHash id.Hash32) error
	Check(ctx context.Context, consentID id.ConsentID, accessor id.AccountID) error
	IsValid(ctx context.Context, consentID id.ConsentID, accessor id.AccountID, now time.Time) (bool, error)
	Get(ctx context.Context, consentID id.ConsentID) (*consentModel.Consent, error)
	AccessLogs(ctx context.Context, caller id.AccountID, consentID id.ConsentID) ([]consentModel.AccessLog, error)
	ActiveForOwner(ctx context.Context, owner id.AccountID) ([]*consentModel.Consent, error)
	ActiveForConsumer(ctx context.Context, consumer id.AccountID) ([]*consentModel.Consent, error)
}

// ConsentHandler exposes the consent manager endpoints.
type ConsentHandler struct {
	consent ConsentService
	clock   clock.Clock
	logger  *slog.Logger
}

func NewConsentHandler(consent ConsentService, clk clock.Clock, logger *slog.Logger) *ConsentHandler {
	return &ConsentHandler{consent: consent, clock: clk, logger: logger}
}

func (h *ConsentHandler) Register(r chi.Router) {
	r.Post("/consents", h.handleCreate)
	r.Get("/consents", h.handleList)
	r.Get("/consents/{id}", h.handleGet)
	r.Patch("/consents/{id}", h.handleUpdate)
	r.Delete("/consents/{id}", h.handleRevoke)
	r.Get("/consents/{id}/check", h.handleCheck)
	r.Post("/consents/{id}/access-logs", h.handleLogAccess)
	r.Get("/consents/{id}/access-logs", h.handleAccessLogs)
}

type createConsentRequest struct {
	Consumer  string     `json:"consumer" validate:"required"`
	Purpose   string     `json:"purpose" validate:"required"`
	DataTypes []string   `json:"data_types" validate:"required,min=1"`
	ExpiresAt *time.Time `json:"expires_at"`
	TermsHash string     `json:"terms_hash"`
}

type updateConsentRequest struct {
	ExpiresAt *time.Time `json:"expires_at"`
	DataTypes []string   `json:"data_types"`
}

type logConsentAccessRequest struct {
	DataHash string `json:"data_hash"`
}

type consentResponse struct {
	ID           string     `json:"id"`
	DataOwner    string     `json:"data_owner"`
	DataConsumer string     `json:"data_consumer"`
	Purpose      string     `json:"purpose"`
	DataTypes    []string   `json:"data_types"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Status       string     `json:"status"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	AccessCount  uint64     `json:"access_count"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
	TermsHash    string     `json:"terms_hash"`
}

func consentView(consent *consentModel.Consent) consentResponse {
	dataTypes := make([]string, 0, len(consent.DataTypes))
	for _, dt := range consent.DataTypes {
		dataTypes = append(dataTypes, string(dt))
	}
	view := consentResponse{
		ID:           consent.ID.String(),
		DataOwner:    consent.DataOwner.String(),
		DataConsumer: consent.DataConsumer.String(),
		Purpose:      string(consent.Purpose),
		DataTypes:    dataTypes,
		CreatedAt:    consent.CreatedAt,
		Status:       string(consent.Status),
		RevokedAt:    consent.RevokedAt,
		AccessCount:  consent.AccessCount,
		LastAccessed: consent.LastAccessed,
		TermsHash:    consent.TermsHash.String(),
	}
	if !consent.ExpiresAt.IsZero() {
		expiresAt := consent.ExpiresAt
		view.ExpiresAt = &expiresAt
	}
	return view
}

func consentViews(consents []*consentModel.Consent) []consentResponse {
	views := make([]consentResponse, 0, len(consents))
	for _, consent := range consents {
		views = append(views, consentView(consent))
	}
	return views
}

func decodeDataTypes(raw []string) []consentModel.DataType {
	cleaned := pstrings.DedupeAndTrimLower(raw)
	dataTypes := make([]consentModel.DataType, 0, len(cleaned))
	for _, dt := range cleaned {
		dataTypes = append(dataTypes, consentModel.DataType(dt))
	}
	return dataTypes
}

func (h *ConsentHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[createConsentRequest](w, r, h.logger)
	if !ok {
		return
	}
	consumer, err := id.ParseAccountID(req.Consumer)
	if err != nil {
		writeParseError(w, "consumer")
		return
	}
	var termsHash id.Hash32
	if req.TermsHash != "" {
		if termsHash, err = id.ParseHash32(req.TermsHash); err != nil {
			writeParseError(w, "terms_hash")
			return
		}
	}
	var expiresAt time.Time
	if req.ExpiresAt != nil {
		expiresAt = *req.ExpiresAt
	}

	consent, err := h.consent.Create(r.Context(), account, consumer, consentModel.Purpose(req.Purpose), decodeDataTypes(req.DataTypes), expiresAt, termsHash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, consentView(consent))
}

func (h *ConsentHandler) handleList(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}

	var (
		consents []*consentModel.Consent
		err      error
	)
	switch role := r.URL.Query().Get("role"); role {
	case "", "owner":
		consents, err = h.consent.ActiveForOwner(r.Context(), account)
	case "consumer":
		consents, err = h.consent.ActiveForConsumer(r.Context(), account)
	default:
		writeParseError(w, "role")
		return
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"consents": consentViews(consents)})
}

func (h *ConsentHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	consentID, err := id.ParseConsentID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "consent id")
		return
	}
	consent, err := h.consent.Get(r.Context(), consentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, consentView(consent))
}

func (h *ConsentHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	consentID, err := id.ParseConsentID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "consent id")
		return
	}
	req, ok := httputil.DecodeJSON[updateConsentRequest](w, r, h.logger)
	if !ok {
		return
	}

	var dataTypes []consentModel.DataType
	if req.DataTypes != nil {
		dataTypes = decodeDataTypes(req.DataTypes)
	}
	consent, err := h.consent.Update(r.Context(), account, consentID, req.ExpiresAt, dataTypes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, consentView(consent))
}

func (h *ConsentHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	consentID, err := id.ParseConsentID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "consent id")
		return
	}
	if err := h.consent.Revoke(r.Context(), account, consentID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCheck reports whether the caller may access data under the consent
// right now. It never mutates the consent.
func (h *ConsentHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	consentID, err := id.ParseConsentID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "consent id")
		return
	}
	valid, err := h.consent.IsValid(r.Context(), consentID, account, h.clock.Now())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

func (h *ConsentHandler) handleLogAccess(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	consentID, err := id.ParseConsentID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "consent id")
		return
	}
	req, ok := httputil.DecodeJSON[logConsentAccessRequest](w, r, h.logger)
	if !ok {
		return
	}
	var dataHash id.Hash32
	if req.DataHash != "" {
		if dataHash, err = id.ParseHash32(req.DataHash); err != nil {
			writeParseError(w, "data_hash")
			return
		}
	}
	if err := h.consent.LogAccess(r.Context(), account, consentID, dataHash); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type consentAccessLogResponse struct {
	Accessor   string    `json:"accessor"`
	AccessedAt time.Time `json:"accessed_at"`
	DataHash   string    `json:"data_hash"`
	Approved   bool      `json:"approved"`
}

func (h *ConsentHandler) handleAccessLogs(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	consentID, err := id.ParseConsentID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "consent id")
		return
	}
	logs, err := h.consent.AccessLogs(r.Context(), account, consentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]consentAccessLogResponse, 0, len(logs))
	for _, log := range logs {
		views = append(views, consentAccessLogResponse{
			Accessor:   log.Accessor.String(),
			AccessedAt: log.AccessedAt,
			DataHash:   log.DataHash.String(),
			Approved:   log.Approved,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"access_logs": views})
}

package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	identityModel "custodia/internal/identity/models"
	"custodia/internal/transport/httputil"
	id "custodia/pkg/domain"
	pstrings "custodia/pkg/platform/strings"
	s "custodia/pkg/string"
)

// IdentityService is the slice of the identity service the transport needs.
type IdentityService interface {
	Register(ctx context.Context, caller id.AccountID, did string, role identityModel.Role, name string, emailHash id.Hash32) (*identityModel.Identity, error)
	Update(ctx context.Context, caller id.AccountID, name *string, emailHash *id.Hash32) (*identityModel.Identity, error)
	RequestVerification(ctx context.Context, caller id.AccountID) error
	Verify(ctx context.Context, caller, target id.AccountID) error
	RejectVerification(ctx context.Context, caller, target id.AccountID, reason string) error
	Deactivate(ctx context.Context, caller id.AccountID) error
	Get(ctx context.Context, account id.AccountID) (*identityModel.Identity, error)
	GetByDID(ctx context.Context, did id.DID) (*identityModel.Identity, error)
	PendingVerifications(ctx context.Context, caller id.AccountID) ([]id.AccountID, error)
}

// IdentityHandler exposes the identity registry endpoints.
type IdentityHandler struct {
	identity IdentityService
	logger   *slog.Logger
}

func NewIdentityHandler(identity IdentityService, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{identity: identity, logger: logger}
}

func (h *IdentityHandler) Register(r chi.Router) {
	r.Post("/identities", h.handleRegister)
	r.Get("/identities/me", h.handleGetSelf)
	r.Patch("/identities/me", h.handleUpdate)
	r.Post("/identities/me/deactivate", h.handleDeactivate)
	r.Get("/identities/did/{did}", h.handleGetByDID)
	r.Get("/identities/{account}", h.handleGet)
	r.Post("/verifications", h.handleRequestVerification)
	r.Get("/verifications/pending", h.handlePendingVerifications)
	r.Post("/verifications/{account}/verify", h.handleVerify)
	r.Post("/verifications/{account}/reject", h.handleReject)
}

type registerIdentityRequest struct {
	DID   string `json:"did" validate:"required"`
	Role  string `json:"role" validate:"required"`
	Name  string `json:"name" validate:"required,notblank"`
	Email string `json:"email" validate:"required,email"`
}

type updateIdentityRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

type rejectVerificationRequest struct {
	Reason string `json:"reason"`
}

type identityResponse struct {
	Account            string    `json:"account"`
	DID                string    `json:"did"`
	Role               string    `json:"role"`
	Name               string    `json:"name"`
	EmailHash          string    `json:"email_hash"`
	VerificationStatus string    `json:"verification_status"`
	RegisteredAt       time.Time `json:"registered_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Active             bool      `json:"active"`
}

func identityView(identity *identityModel.Identity) identityResponse {
	return identityResponse{
		Account:            identity.Owner.String(),
		DID:                identity.DID.String(),
		Role:               string(identity.Role),
		Name:               identity.Name,
		EmailHash:          identity.EmailHash.String(),
		VerificationStatus: string(identity.VerificationStatus),
		RegisteredAt:       identity.RegisteredAt,
		UpdatedAt:          identity.UpdatedAt,
		Active:             identity.Active,
	}
}

func (h *IdentityHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[registerIdentityRequest](w, r, h.logger)
	if !ok {
		return
	}
	s.TrimStrings(&req.DID, &req.Name, &req.Email)

	// The ledger stores a digest of the email, never the address itself.
	identity, err := h.identity.Register(r.Context(), account, req.DID, identityModel.Role(req.Role), req.Name, id.Digest([]byte(req.Email)))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, identityView(identity))
}

func (h *IdentityHandler) handleGetSelf(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	identity, err := h.identity.Get(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identityView(identity))
}

func (h *IdentityHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	account, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		writeParseError(w, "account")
		return
	}
	identity, err := h.identity.Get(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identityView(identity))
}

func (h *IdentityHandler) handleGetByDID(w http.ResponseWriter, r *http.Request) {
	did, err := id.ParseDID(chi.URLParam(r, "did"))
	if err != nil {
		writeParseError(w, "did")
		return
	}
	identity, err := h.identity.GetByDID(r.Context(), did)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identityView(identity))
}

func (h *IdentityHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[updateIdentityRequest](w, r, h.logger)
	if !ok {
		return
	}

	var emailHash *id.Hash32
	if req.Email != nil {
		digest := id.Digest([]byte(*req.Email))
		emailHash = &digest
	}
	identity, err := h.identity.Update(r.Context(), account, pstrings.TrimSpacePtr(req.Name), emailHash)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, identityView(identity))
}

func (h *IdentityHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.identity.Deactivate(r.Context(), account); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *IdentityHandler) handleRequestVerification(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.identity.RequestVerification(r.Context(), account); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *IdentityHandler) handlePendingVerifications(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	pending, err := h.identity.PendingVerifications(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	accounts := make([]string, 0, len(pending))
	for _, target := range pending {
		accounts = append(accounts, target.String())
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"pending": accounts})
}

func (h *IdentityHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	target, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		writeParseError(w, "account")
		return
	}
	if err := h.identity.Verify(r.Context(), account, target); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *IdentityHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	target, err := id.ParseAccountID(chi.URLParam(r, "account"))
	if err != nil {
		writeParseError(w, "account")
		return
	}
	req, ok := httputil.DecodeJSON[rejectVerificationRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.identity.RejectVerification(r.Context(), account, target, req.Reason); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

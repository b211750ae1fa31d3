package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	accessModel "custodia/internal/access/models"
	"custodia/internal/platform/clock"
	"custodia/internal/platform/tracer"
	"custodia/internal/transport/httputil"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// AccessService is the slice of the access-control service the transport
// needs.
type AccessService interface {
	RequestAccess(ctx context.Context, caller id.AccountID, recordID id.RecordID, patient id.AccountID, consentID id.ConsentID) (*accessModel.Request, error)
	Grant(ctx context.Context, caller id.AccountID, requestID id.RequestID, expiresAt time.Time) (*accessModel.Grant, error)
	Deny(ctx context.Context, caller id.AccountID, requestID id.RequestID) error
	Revoke(ctx context.Context, caller id.AccountID, recordID id.RecordID, requester id.AccountID) error
	HasAccess(ctx context.Context, recordID id.RecordID, requester id.AccountID, now time.Time) (bool, error)
	GetRequest(ctx context.Context, requestID id.RequestID) (*accessModel.Request, error)
	RequestsForPatient(ctx context.Context, caller id.AccountID) ([]*accessModel.Request, error)
}

// ConsentVerifier checks that a consent authorizes the accessor right now.
// The access module stores consent references untrusted; verification is the
// granting handler's duty.
type ConsentVerifier interface {
	Check(ctx context.Context, consentID id.ConsentID, accessor id.AccountID) error
}

// RecordDirectory resolves a record to its owning patient. Grants for
// records the directory does not know about are allowed; the record may live
// off-platform.
type RecordDirectory interface {
	Owner(ctx context.Context, recordID id.RecordID) (id.AccountID, error)
}

// AccessHandler exposes the access-control endpoints. Granting orchestrates
// the consent check and the record ownership lookup concurrently before the
// domain service runs.
type AccessHandler struct {
	access   AccessService
	consents ConsentVerifier
	records  RecordDirectory
	tracer   tracer.Tracer
	clock    clock.Clock
	logger   *slog.Logger
}

func NewAccessHandler(access AccessService, consents ConsentVerifier, records RecordDirectory, tr tracer.Tracer, clk clock.Clock, logger *slog.Logger) *AccessHandler {
	if tr == nil {
		tr = tracer.NewNoop()
	}
	return &AccessHandler{access: access, consents: consents, records: records, tracer: tr, clock: clk, logger: logger}
}

func (h *AccessHandler) Register(r chi.Router) {
	r.Post("/access/requests", h.handleRequestAccess)
	r.Get("/access/requests", h.handleInbox)
	r.Get("/access/requests/{id}", h.handleGetRequest)
	r.Post("/access/requests/{id}/grant", h.handleGrant)
	r.Post("/access/requests/{id}/deny", h.handleDeny)
	r.Delete("/access/grants/{record}/{requester}", h.handleRevoke)
	r.Get("/access/check", h.handleCheck)
}

type requestAccessRequest struct {
	RecordID  string `json:"record_id"`
	Patient   string `json:"patient"`
	ConsentID string `json:"consent_id"`
}

type grantAccessRequest struct {
	ExpiresAt time.Time `json:"expires_at"`
}

type accessRequestResponse struct {
	ID          string     `json:"id"`
	RecordID    string     `json:"record_id"`
	Requester   string     `json:"requester"`
	Patient     string     `json:"patient"`
	ConsentID   string     `json:"consent_id,omitempty"`
	Status      string     `json:"status"`
	RequestedAt time.Time  `json:"requested_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
}

type grantResponse struct {
	RecordID  string    `json:"record_id"`
	Requester string    `json:"requester"`
	GrantedBy string    `json:"granted_by"`
	GrantedAt time.Time `json:"granted_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func requestView(request *accessModel.Request) accessRequestResponse {
	view := accessRequestResponse{
		ID:          request.ID.String(),
		RecordID:    request.RecordID.String(),
		Requester:   request.Requester.String(),
		Patient:     request.Patient.String(),
		Status:      string(request.Status),
		RequestedAt: request.RequestedAt,
		RespondedAt: request.RespondedAt,
	}
	if !request.ConsentID.IsZero() {
		view.ConsentID = request.ConsentID.String()
	}
	return view
}

func (h *AccessHandler) handleRequestAccess(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[requestAccessRequest](w, r, h.logger)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(req.RecordID)
	if err != nil {
		writeParseError(w, "record_id")
		return
	}
	patient, err := id.ParseAccountID(req.Patient)
	if err != nil {
		writeParseError(w, "patient")
		return
	}
	var consentID id.ConsentID
	if req.ConsentID != "" {
		if consentID, err = id.ParseConsentID(req.ConsentID); err != nil {
			writeParseError(w, "consent_id")
			return
		}
	}

	request, err := h.access.RequestAccess(r.Context(), account, recordID, patient, consentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, requestView(request))
}

// handleGrant verifies the referenced consent and the record's ownership
// concurrently, then applies the grant. Either verification failing aborts
// the grant before any state changes.
func (h *AccessHandler) handleGrant(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "request id")
		return
	}
	req, ok := httputil.DecodeJSON[grantAccessRequest](w, r, h.logger)
	if !ok {
		return
	}

	ctx, span := h.tracer.Start(r.Context(), tracer.SpanAccessGrant,
		tracer.String(tracer.AttrRequestID, requestID.String()),
	)
	grant, err := h.grant(ctx, span, account, requestID, req.ExpiresAt)
	span.End(err)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, grantResponse{
		RecordID:  grant.RecordID.String(),
		Requester: grant.Requester.String(),
		GrantedBy: grant.GrantedBy.String(),
		GrantedAt: grant.GrantedAt,
		ExpiresAt: grant.ExpiresAt,
	})
}

func (h *AccessHandler) grant(ctx context.Context, span tracer.Span, account id.AccountID, requestID id.RequestID, expiresAt time.Time) (*accessModel.Grant, error) {
	request, err := h.access.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String(tracer.AttrRecordID, request.RecordID.String()))

	group, groupCtx := errgroup.WithContext(ctx)
	if !request.ConsentID.IsZero() {
		span.SetAttributes(tracer.String(tracer.AttrConsentID, request.ConsentID.String()))
		group.Go(func() error {
			checkCtx, checkSpan := h.tracer.Start(groupCtx, tracer.SpanConsentCheck)
			err := h.consents.Check(checkCtx, request.ConsentID, request.Requester)
			checkSpan.End(err)
			return err
		})
	}
	group.Go(func() error {
		lookupCtx, lookupSpan := h.tracer.Start(groupCtx, tracer.SpanRequestOwnership)
		err := h.verifyRecordOwnership(lookupCtx, request.RecordID, request.Patient)
		lookupSpan.End(err)
		return err
	})
	if err := group.Wait(); err != nil {
		span.SetAttributes(tracer.Bool(tracer.AttrGranted, false))
		return nil, err
	}

	grant, err := h.access.Grant(ctx, account, requestID, expiresAt)
	if err != nil {
		span.SetAttributes(tracer.Bool(tracer.AttrGranted, false))
		return nil, err
	}
	span.SetAttributes(tracer.Bool(tracer.AttrGranted, true))
	return grant, nil
}

// verifyRecordOwnership cross-checks the request's claimed patient against
// the record directory. Unknown records pass; the claimed patient is still
// the only account the domain service lets grant.
func (h *AccessHandler) verifyRecordOwnership(ctx context.Context, recordID id.RecordID, claimedPatient id.AccountID) error {
	if h.records == nil {
		return nil
	}
	owner, err := h.records.Owner(ctx, recordID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil
		}
		return err
	}
	if owner != claimedPatient {
		return dErrors.New(dErrors.CodeValidation, "request patient does not own the record")
	}
	return nil
}

func (h *AccessHandler) handleDeny(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "request id")
		return
	}
	if err := h.access.Deny(r.Context(), account, requestID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccessHandler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "record"))
	if err != nil {
		writeParseError(w, "record id")
		return
	}
	requester, err := id.ParseAccountID(chi.URLParam(r, "requester"))
	if err != nil {
		writeParseError(w, "requester")
		return
	}
	if err := h.access.Revoke(r.Context(), account, recordID, requester); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccessHandler) handleCheck(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(r.URL.Query().Get("record_id"))
	if err != nil {
		writeParseError(w, "record_id")
		return
	}
	requester := account
	if raw := r.URL.Query().Get("requester"); raw != "" {
		if requester, err = id.ParseAccountID(raw); err != nil {
			writeParseError(w, "requester")
			return
		}
	}
	has, err := h.access.HasAccess(r.Context(), recordID, requester, h.clock.Now())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"has_access": has})
}

func (h *AccessHandler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "request id")
		return
	}
	request, err := h.access.GetRequest(r.Context(), requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, requestView(request))
}

func (h *AccessHandler) handleInbox(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	requests, err := h.access.RequestsForPatient(r.Context(), account)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]accessRequestResponse, 0, len(requests))
	for _, request := range requests {
		views = append(views, requestView(request))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"requests": views})
}

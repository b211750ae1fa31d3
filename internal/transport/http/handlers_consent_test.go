package httptransport

// Consent handler tests: request decoding, caller resolution, and the
// domain-error to HTTP status mapping. The service is a stub; consent
// semantics are covered by the service tests.

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

	consentModel "custodia/internal/consent/models"
	"custodia/internal/platform/clock"
	"custodia/internal/platform/middleware"
	id "custodia/pkg/domain"
)

type stubConsentService struct {
	consent *consentModel.Consent
	err     error

	gotCaller    id.AccountID
	gotConsumer  id.AccountID
	gotPurpose   consentModel.Purpose
	gotConsentID id.ConsentID
	valid        bool
}

func (s *stubConsentService) Create(_ context.Context, caller, consumer id.AccountID, purpose consentModel.Purpose, _ []consentModel.DataType, _ time.Time, _ id.Hash32) (*consentModel.Consent, error) {
	s.gotCaller, s.gotConsumer, s.gotPurpose = caller, consumer, purpose
	return s.consent, s.err
}

func (s *stubConsentService) Revoke(_ context.Context, caller id.AccountID, consentID id.ConsentID) error {
	s.gotCaller, s.gotConsentID = caller, consentID
	return s.err
}

func (s *stubConsentService) Update(context.Context, id.AccountID, id.ConsentID, *time.Time, []consentModel.DataType) (*consentModel.Consent, error) {
	return s.consent, s.err
}

func (s *stubConsentService) LogAccess(context.Context, id.AccountID, id.ConsentID, id.Hash32) error {
	return s.err
}

func (s *stubConsentService) Check(context.Context, id.ConsentID, id.AccountID) error {
	return s.err
}

func (s *stubConsentService) IsValid(_ context.Context, consentID id.ConsentID, accessor id.AccountID, _ time.Time) (bool, error) {
	s.gotConsentID = consentID
	s.gotCaller = accessor
	return s.valid, s.err
}

func (s *stubConsentService) Get(context.Context, id.ConsentID) (*consentModel.Consent, error) {
	return s.consent, s.err
}

func (s *stubConsentService) AccessLogs(context.Context, id.AccountID, id.ConsentID) ([]consentModel.AccessLog, error) {
	return nil, s.err
}

func (s *stubConsentService) ActiveForOwner(context.Context, id.AccountID) ([]*consentModel.Consent, error) {
	return []*consentModel.Consent{s.consent}, s.err
}

func (s *stubConsentService) ActiveForConsumer(context.Context, id.AccountID) ([]*consentModel.Consent, error) {
	return nil, s.err
}

func newConsentRouter(service ConsentService) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewConsentHandler(service, clock.NewManual(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)), logger)
	r := chi.NewRouter()
	handler.Register(r)
	return r
}

func doRequest(t *testing.T, router chi.Router, account, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	req = req.WithContext(middleware.WithAccount(req.Context(), account, ""))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func sampleConsent() *consentModel.Consent {
	return &consentModel.Consent{
		ID:           id.ConsentID{0x01},
		DataOwner:    "acct_patient",
		DataConsumer: "acct_researcher",
		Purpose:      consentModel.PurposeResearch,
		DataTypes:    []consentModel.DataType{consentModel.DataTypeLabResults},
		CreatedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:       consentModel.StatusActive,
	}
}

func TestConsentHandler_Create(t *testing.T) {
	service := &stubConsentService{consent: sampleConsent()}
	router := newConsentRouter(service)

	rec := doRequest(t, router, "acct_patient", http.MethodPost, "/consents", map[string]any{
		"consumer":   "acct_researcher",
		"purpose":    "research",
		"data_types": []string{"lab_results"},
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, id.AccountID("acct_patient"), service.gotCaller)
	assert.Equal(t, id.AccountID("acct_researcher"), service.gotConsumer)
	assert.Equal(t, consentModel.PurposeResearch, service.gotPurpose)

	var resp consentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "active", resp.Status)
	assert.Nil(t, resp.ExpiresAt)
}

func TestConsentHandler_CreateValidationFailure(t *testing.T) {
	service := &stubConsentService{err: consentModel.ErrInvalidDataTypes}
	router := newConsentRouter(service)

	rec := doRequest(t, router, "acct_patient", http.MethodPost, "/consents", map[string]any{
		"consumer": "acct_researcher",
		"purpose":  "research",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConsentHandler_CreateRoleFailure(t *testing.T) {
	service := &stubConsentService{err: consentModel.ErrInvalidIdentity}
	router := newConsentRouter(service)

	rec := doRequest(t, router, "acct_patient", http.MethodPost, "/consents", map[string]any{
		"consumer":   "acct_researcher",
		"purpose":    "research",
		"data_types": []string{"lab_results"},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestConsentHandler_GetNotFound(t *testing.T) {
	service := &stubConsentService{err: consentModel.ErrConsentNotFound}
	router := newConsentRouter(service)

	rec := doRequest(t, router, "acct_patient", http.MethodGet, "/consents/"+(id.ConsentID{0x01}).String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConsentHandler_GetMalformedID(t *testing.T) {
	router := newConsentRouter(&stubConsentService{})

	rec := doRequest(t, router, "acct_patient", http.MethodGet, "/consents/zzzz", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConsentHandler_Revoke(t *testing.T) {
	service := &stubConsentService{}
	router := newConsentRouter(service)
	consentID := id.ConsentID{0x02}

	rec := doRequest(t, router, "acct_patient", http.MethodDelete, "/consents/"+consentID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, consentID, service.gotConsentID)
}

func TestConsentHandler_RevokeAlreadyRevoked(t *testing.T) {
	service := &stubConsentService{err: consentModel.ErrAlreadyRevoked}
	router := newConsentRouter(service)

	rec := doRequest(t, router, "acct_patient", http.MethodDelete, "/consents/"+(id.ConsentID{0x02}).String(), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestConsentHandler_Check(t *testing.T) {
	service := &stubConsentService{valid: true}
	router := newConsentRouter(service)

	rec := doRequest(t, router, "acct_researcher", http.MethodGet, "/consents/"+(id.ConsentID{0x03}).String()+"/check", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"valid":true}`, rec.Body.String())
	assert.Equal(t, id.AccountID("acct_researcher"), service.gotCaller)
}

func TestConsentHandler_CapacityMapsTo429(t *testing.T) {
	service := &stubConsentService{err: consentModel.ErrMaxConsentsReached}
	router := newConsentRouter(service)

	rec := doRequest(t, router, "acct_patient", http.MethodPost, "/consents", map[string]any{
		"consumer":   "acct_researcher",
		"purpose":    "research",
		"data_types": []string{"lab_results"},
	})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

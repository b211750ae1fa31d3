package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"custodia/internal/records/models"
	"custodia/internal/transport/httputil"
	id "custodia/pkg/domain"
)

// RecordService is the slice of the health record service the transport
// needs.
type RecordService interface {
	Upload(ctx context.Context, caller id.AccountID, ipfsHash string, category models.Category, format models.Format, title string, fileSize uint64, encryptionKeyID *id.KeyID) (*models.Record, error)
	UpdateTitle(ctx context.Context, caller id.AccountID, recordID id.RecordID, title string) error
	Deactivate(ctx context.Context, caller id.AccountID, recordID id.RecordID) error
	LogAccess(ctx context.Context, caller id.AccountID, recordID id.RecordID, purpose string) error
	Get(ctx context.Context, recordID id.RecordID) (*models.Record, error)
	ForPatient(ctx context.Context, patient id.AccountID) ([]*models.Record, error)
	ActiveForPatient(ctx context.Context, patient id.AccountID) ([]*models.Record, error)
	AccessLogs(ctx context.Context, caller id.AccountID, recordID id.RecordID) ([]models.AccessLog, error)
}

// RecordHandler exposes the health record metadata endpoints. Payloads live
// in IPFS; only the content hash crosses this API.
type RecordHandler struct {
	records RecordService
	logger  *slog.Logger
}

func NewRecordHandler(records RecordService, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{records: records, logger: logger}
}

func (h *RecordHandler) Register(r chi.Router) {
	r.Post("/records", h.handleUpload)
	r.Get("/records", h.handleList)
	r.Get("/records/{id}", h.handleGet)
	r.Patch("/records/{id}", h.handleUpdateTitle)
	r.Post("/records/{id}/deactivate", h.handleDeactivate)
	r.Post("/records/{id}/access-logs", h.handleLogAccess)
	r.Get("/records/{id}/access-logs", h.handleAccessLogs)
}

type uploadRecordRequest struct {
	IPFSHash        string `json:"ipfs_hash" validate:"required"`
	Category        string `json:"category" validate:"required"`
	Format          string `json:"format" validate:"required"`
	Title           string `json:"title"`
	FileSize        uint64 `json:"file_size"`
	EncryptionKeyID string `json:"encryption_key_id"`
}

type updateRecordRequest struct {
	Title string `json:"title"`
}

type logRecordAccessRequest struct {
	Purpose string `json:"purpose"`
}

type recordResponse struct {
	ID              string     `json:"id"`
	Patient         string     `json:"patient"`
	IPFSHash        string     `json:"ipfs_hash"`
	Category        string     `json:"category"`
	Format          string     `json:"format"`
	Title           string     `json:"title"`
	FileSize        uint64     `json:"file_size"`
	EncryptionKeyID string     `json:"encryption_key_id,omitempty"`
	UploadedAt      time.Time  `json:"uploaded_at"`
	LastAccessed    *time.Time `json:"last_accessed,omitempty"`
	AccessCount     uint64     `json:"access_count"`
	Active          bool       `json:"active"`
}

func recordView(record *models.Record) recordResponse {
	view := recordResponse{
		ID:           record.ID.String(),
		Patient:      record.Patient.String(),
		IPFSHash:     record.IPFSHash,
		Category:     string(record.Category),
		Format:       string(record.Format),
		Title:        record.Title,
		FileSize:     record.FileSize,
		UploadedAt:   record.UploadedAt,
		LastAccessed: record.LastAccessed,
		AccessCount:  record.AccessCount,
		Active:       record.Active,
	}
	if record.EncryptionKeyID != nil {
		view.EncryptionKeyID = record.EncryptionKeyID.String()
	}
	return view
}

func (h *RecordHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[uploadRecordRequest](w, r, h.logger)
	if !ok {
		return
	}
	var encryptionKeyID *id.KeyID
	if req.EncryptionKeyID != "" {
		keyID, err := id.ParseKeyID(req.EncryptionKeyID)
		if err != nil {
			writeParseError(w, "encryption_key_id")
			return
		}
		encryptionKeyID = &keyID
	}

	record, err := h.records.Upload(r.Context(), account, req.IPFSHash, models.Category(req.Category), models.Format(req.Format), req.Title, req.FileSize, encryptionKeyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, recordView(record))
}

func (h *RecordHandler) handleList(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}

	var (
		records []*models.Record
		err     error
	)
	if r.URL.Query().Get("include_inactive") == "true" {
		records, err = h.records.ForPatient(r.Context(), account)
	} else {
		records, err = h.records.ActiveForPatient(r.Context(), account)
	}
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]recordResponse, 0, len(records))
	for _, record := range records {
		views = append(views, recordView(record))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": views})
}

func (h *RecordHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "record id")
		return
	}
	record, err := h.records.Get(r.Context(), recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, recordView(record))
}

func (h *RecordHandler) handleUpdateTitle(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "record id")
		return
	}
	req, ok := httputil.DecodeJSON[updateRecordRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.records.UpdateTitle(r.Context(), account, recordID, req.Title); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordHandler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "record id")
		return
	}
	if err := h.records.Deactivate(r.Context(), account, recordID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RecordHandler) handleLogAccess(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "record id")
		return
	}
	req, ok := httputil.DecodeJSON[logRecordAccessRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.records.LogAccess(r.Context(), account, recordID, req.Purpose); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recordAccessLogResponse struct {
	Accessor   string    `json:"accessor"`
	AccessedAt time.Time `json:"accessed_at"`
	Purpose    string    `json:"purpose"`
}

func (h *RecordHandler) handleAccessLogs(w http.ResponseWriter, r *http.Request) {
	account, ok := caller(w, r)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		writeParseError(w, "record id")
		return
	}
	logs, err := h.records.AccessLogs(r.Context(), account, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	views := make([]recordAccessLogResponse, 0, len(logs))
	for _, log := range logs {
		views = append(views, recordAccessLogResponse{
			Accessor:   log.Accessor.String(),
			AccessedAt: log.AccessedAt,
			Purpose:    log.Purpose,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"access_logs": views})
}

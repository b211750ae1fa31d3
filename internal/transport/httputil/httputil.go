// Package httputil holds the shared response and decoding helpers for the
// HTTP transport. Handlers translate domain errors through WriteError so the
// status mapping lives in one place.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "custodia/pkg/domain-errors"
	"custodia/pkg/platform/validation"
	structval "custodia/pkg/validation"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// best-effort fallback; don't override status for the caller
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// WriteError translates transport-agnostic domain errors into HTTP status
// codes and the error envelope. Unrecognized errors collapse to 500 without
// leaking their message.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		response := map[string]string{
			"error": string(domainErr.Code),
		}
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		WriteJSON(w, StatusOf(domainErr.Code), response)
		return
	}

	WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": string(dErrors.CodeInternal),
	})
}

// StatusOf maps a domain error code to an HTTP status code.
func StatusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeValidation:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusForbidden
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeInvalidState:
		return http.StatusUnprocessableEntity
	case dErrors.CodeCapacityExceeded:
		return http.StatusTooManyRequests
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON decodes a JSON request body into the target type, bounded by
// the body size limit, then runs struct-tag validation. On failure it writes
// the error response itself and returns false.
//
// Usage:
//
//	req, ok := httputil.DecodeJSON[createConsentRequest](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req T
	body := http.MaxBytesReader(w, r.Body, validation.MaxBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		logger.WarnContext(r.Context(), "failed to decode request body", "error", err)
		WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return nil, false
	}
	if err := structval.Validate(&req); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return &req, true
}

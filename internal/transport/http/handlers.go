// Package httptransport is the thin HTTP layer. Handlers decode requests,
// resolve the authenticated caller, and delegate to domain services; business
// rules never live here.
package httptransport

import (
	"net/http"

	"custodia/internal/platform/middleware"
	"custodia/internal/transport/httputil"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// caller resolves the authenticated account placed in the context by the
// auth middleware. A missing account means the route was mounted without
// RequireAuth, which is a wiring bug surfaced as 403.
func caller(w http.ResponseWriter, r *http.Request) (id.AccountID, bool) {
	account := middleware.GetAccount(r.Context())
	if account == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "no authenticated account"))
		return "", false
	}
	return id.AccountID(account), true
}

// writeParseError reports a malformed path or query parameter.
func writeParseError(w http.ResponseWriter, label string) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid "+label))
}

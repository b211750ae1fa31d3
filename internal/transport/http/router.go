package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custodia/internal/platform/health"
	"custodia/internal/platform/metrics"
	"custodia/internal/platform/middleware"
)

// Handlers bundles the per-module handlers the router mounts.
type Handlers struct {
	Identity *IdentityHandler
	Consent  *ConsentHandler
	Access   *AccessHandler
	Auth     *AuthHandler
	Keys     *KeyHandler
	Records  *RecordHandler
	Health   *health.Handler
}

// RouterConfig carries the transport-wide wiring the router needs.
type RouterConfig struct {
	TokenValidator middleware.TokenValidator
	SessionChecker middleware.SessionChecker
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter assembles the HTTP surface: open probes and login, then the
// authenticated API behind the bearer-token middleware.
func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Latency(cfg.Metrics))

	if h.Health != nil {
		h.Health.Register(r)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if h.Auth != nil {
		h.Auth.RegisterPublic(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(cfg.TokenValidator, cfg.SessionChecker, cfg.Logger))

		if h.Identity != nil {
			h.Identity.Register(r)
		}
		if h.Consent != nil {
			h.Consent.Register(r)
		}
		if h.Access != nil {
			h.Access.Register(r)
		}
		if h.Auth != nil {
			h.Auth.Register(r)
		}
		if h.Keys != nil {
			h.Keys.Register(r)
		}
		if h.Records != nil {
			h.Records.Register(r)
		}
	})

	return r
}

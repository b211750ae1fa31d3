package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Identity metrics
	IdentitiesRegistered  *prometheus.CounterVec
	IdentitiesVerified    prometheus.Counter
	VerificationsRejected prometheus.Counter
	VerificationQueueSize prometheus.Gauge

	// Consent metrics
	ConsentsCreated    *prometheus.CounterVec
	ConsentsRevoked    *prometheus.CounterVec
	ConsentsExpired    prometheus.Counter
	ConsentCheckPassed *prometheus.CounterVec
	ConsentCheckFailed *prometheus.CounterVec
	AccessesLogged     prometheus.Counter

	// Access control metrics
	AccessRequests  prometheus.Counter
	AccessGrants    prometheus.Counter
	AccessDenials   prometheus.Counter
	GrantsRevoked   prometheus.Counter
	GrantChecks     *prometheus.CounterVec
	GrantLatency    prometheus.Histogram
	EndpointLatency *prometheus.HistogramVec

	// Key lifecycle metrics
	KeysGenerated *prometheus.CounterVec
	KeysRotated   prometheus.Counter
	KeysRevoked   prometheus.Counter

	// Session metrics
	ActiveSessions prometheus.Gauge
	AuthFailures   prometheus.Counter

	// Record metrics
	RecordsUploaded *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		IdentitiesRegistered: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_identities_registered_total",
			Help: "Total number of identities registered, labeled by role",
		}, []string{"role"}),
		IdentitiesVerified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_identities_verified_total",
			Help: "Total number of identities verified by auditors",
		}),
		VerificationsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_verifications_rejected_total",
			Help: "Total number of verification requests rejected",
		}),
		VerificationQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "custodia_verification_queue_size",
			Help: "Current number of identities awaiting verification",
		}),
		ConsentsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_consents_created_total",
			Help: "Total number of consents created, labeled by purpose",
		}, []string{"purpose"}),
		ConsentsRevoked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_consents_revoked_total",
			Help: "Total number of consents revoked, labeled by purpose",
		}, []string{"purpose"}),
		ConsentsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_consents_expired_total",
			Help: "Total number of consents lazily marked expired",
		}),
		ConsentCheckPassed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_consent_checks_passed_total",
			Help: "Total number of consent checks that passed, labeled by purpose",
		}, []string{"purpose"}),
		ConsentCheckFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_consent_checks_failed_total",
			Help: "Total number of consent checks that failed, labeled by purpose",
		}, []string{"purpose"}),
		AccessesLogged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_consent_accesses_logged_total",
			Help: "Total number of data accesses recorded against consents",
		}),
		AccessRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_access_requests_total",
			Help: "Total number of record access requests submitted",
		}),
		AccessGrants: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_access_grants_total",
			Help: "Total number of access requests granted",
		}),
		AccessDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_access_denials_total",
			Help: "Total number of access requests denied",
		}),
		GrantsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_access_grants_revoked_total",
			Help: "Total number of access grants revoked",
		}),
		GrantChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_grant_checks_total",
			Help: "Total number of has-access checks, labeled by outcome",
		}, []string{"outcome"}),
		GrantLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_access_grant_latency_seconds",
			Help:    "Latency of access grant operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custodia_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		KeysGenerated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_keys_generated_total",
			Help: "Total number of encryption keys generated, labeled by algorithm",
		}, []string{"algorithm"}),
		KeysRotated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_keys_rotated_total",
			Help: "Total number of encryption key rotations",
		}),
		KeysRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_keys_revoked_total",
			Help: "Total number of encryption keys revoked",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "custodia_active_sessions",
			Help: "Current number of active sessions",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_auth_failures_total",
			Help: "Total number of authentication failures",
		}),
		RecordsUploaded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_records_uploaded_total",
			Help: "Total number of health records uploaded, labeled by category",
		}, []string{"category"}),
	}
}

func (m *Metrics) IncrementIdentitiesRegistered(role string) {
	m.IdentitiesRegistered.WithLabelValues(role).Inc()
}

func (m *Metrics) IncrementIdentitiesVerified() {
	m.IdentitiesVerified.Inc()
}

func (m *Metrics) IncrementVerificationsRejected() {
	m.VerificationsRejected.Inc()
}

func (m *Metrics) AddVerificationQueueSize(delta int) {
	m.VerificationQueueSize.Add(float64(delta))
}

// IncrementConsentsCreated increments the consents created counter with purpose label
func (m *Metrics) IncrementConsentsCreated(purpose string) {
	m.ConsentsCreated.WithLabelValues(purpose).Inc()
}

// IncrementConsentsRevoked increments the consents revoked counter with purpose label
func (m *Metrics) IncrementConsentsRevoked(purpose string) {
	m.ConsentsRevoked.WithLabelValues(purpose).Inc()
}

func (m *Metrics) IncrementConsentsExpired() {
	m.ConsentsExpired.Inc()
}

// IncrementConsentCheckPassed increments the consent check passed counter with purpose label
func (m *Metrics) IncrementConsentCheckPassed(purpose string) {
	m.ConsentCheckPassed.WithLabelValues(purpose).Inc()
}

// IncrementConsentCheckFailed increments the consent check failed counter with purpose label
func (m *Metrics) IncrementConsentCheckFailed(purpose string) {
	m.ConsentCheckFailed.WithLabelValues(purpose).Inc()
}

func (m *Metrics) IncrementAccessesLogged() {
	m.AccessesLogged.Inc()
}

func (m *Metrics) IncrementAccessRequests() {
	m.AccessRequests.Inc()
}

func (m *Metrics) IncrementAccessGrants() {
	m.AccessGrants.Inc()
}

func (m *Metrics) IncrementAccessDenials() {
	m.AccessDenials.Inc()
}

func (m *Metrics) IncrementGrantsRevoked() {
	m.GrantsRevoked.Inc()
}

func (m *Metrics) IncrementGrantChecks(outcome string) {
	m.GrantChecks.WithLabelValues(outcome).Inc()
}

// ObserveGrantLatency records the latency for access grant operations
func (m *Metrics) ObserveGrantLatency(durationSeconds float64) {
	m.GrantLatency.Observe(durationSeconds)
}

// ObserveEndpointLatency records the latency for a given endpoint
func (m *Metrics) ObserveEndpointLatency(endpoint string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(durationSeconds)
}

func (m *Metrics) IncrementKeysGenerated(algorithm string) {
	m.KeysGenerated.WithLabelValues(algorithm).Inc()
}

func (m *Metrics) IncrementKeysRotated() {
	m.KeysRotated.Inc()
}

func (m *Metrics) IncrementKeysRevoked() {
	m.KeysRevoked.Inc()
}

func (m *Metrics) IncrementActiveSessions(count int) {
	m.ActiveSessions.Add(float64(count))
}

func (m *Metrics) DecrementActiveSessions(count int) {
	m.ActiveSessions.Sub(float64(count))
}

func (m *Metrics) IncrementAuthFailures() {
	m.AuthFailures.Inc()
}

func (m *Metrics) IncrementRecordsUploaded(category string) {
	m.RecordsUploaded.WithLabelValues(category).Inc()
}

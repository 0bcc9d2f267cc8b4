package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcome labels.
const (
	OutcomeSuccess     = "success"
	OutcomeFailure     = "failure"
	OutcomeNeedEmail   = "need_email"
	OutcomeDuplicate   = "duplicate_identity"
	OutcomeStoreError  = "storage_error"
	OutcomeProvisioned = "provisioned"
)

// Recorder is the interface handlers and services record against. Tests
// and metrics-disabled deployments use NewNoopMetrics.
type Recorder interface {
	RecordLogin(method, outcome string)
	RecordUserProvisioned(method string)
	RecordGroupSyncFailure(method string)
	RecordAvatarFetchFailure()
	RecordLogout(method string)
	RecordSessionInvalidated(reason string)
	RecordHTTPRequest(method, path, status string)
	ObserveHTTPRequestDuration(method, path string, seconds float64)
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authentication metrics
	LoginTotal               *prometheus.CounterVec
	UsersProvisionedTotal    *prometheus.CounterVec
	GroupSyncFailuresTotal   *prometheus.CounterVec
	AvatarFetchFailuresTotal prometheus.Counter
	LogoutTotal              *prometheus.CounterVec

	// Session metrics
	SessionsInvalidatedTotal *prometheus.CounterVec

	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// New returns the process-wide metrics instance, registering collectors on
// first use.
func New() *Metrics {
	once.Do(func() {
		defaultMetrics = &Metrics{
			LoginTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total login attempts by auth method and outcome",
			}, []string{"method", "outcome"}),
			UsersProvisionedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "auth_users_provisioned_total",
				Help: "Users created on first external login, by auth method",
			}, []string{"method"}),
			GroupSyncFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "auth_group_sync_failures_total",
				Help: "Directory group sync failures that did not revoke the login",
			}, []string{"method"}),
			AvatarFetchFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "auth_avatar_fetch_failures_total",
				Help: "Best-effort avatar fetches that failed during provisioning",
			}),
			LogoutTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "auth_logout_total",
				Help: "Logouts by the method that established the session",
			}, []string{"method"}),
			SessionsInvalidatedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "auth_sessions_invalidated_total",
				Help: "Local session invalidations by reason",
			}, []string{"reason"}),
			HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total HTTP requests",
			}, []string{"method", "path", "status"}),
			HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			}, []string{"method", "path"}),
		}
	})
	return defaultMetrics
}

func (m *Metrics) RecordLogin(method, outcome string) {
	m.LoginTotal.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) RecordUserProvisioned(method string) {
	m.UsersProvisionedTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) RecordGroupSyncFailure(method string) {
	m.GroupSyncFailuresTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) RecordAvatarFetchFailure() {
	m.AvatarFetchFailuresTotal.Inc()
}

func (m *Metrics) RecordLogout(method string) {
	m.LogoutTotal.WithLabelValues(method).Inc()
}

func (m *Metrics) RecordSessionInvalidated(reason string) {
	m.SessionsInvalidatedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, path, status string) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

func (m *Metrics) ObserveHTTPRequestDuration(method, path string, seconds float64) {
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

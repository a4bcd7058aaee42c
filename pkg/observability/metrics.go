package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Security metrics
	AuthFailuresTotal   *prometheus.CounterVec
	AccessDenialsTotal  *prometheus.CounterVec
	RateLimitedTotal    *prometheus.CounterVec
	ActiveSessionsGauge prometheus.Gauge

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	// Business metrics
	TenantsTotal     prometheus.Gauge
	ActiveUsersTotal prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crewdesk_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crewdesk_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crewdesk_auth_failures_total",
				Help: "Total number of failed authentication attempts",
			},
			[]string{"kind"},
		),
		AccessDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crewdesk_access_denials_total",
				Help: "Total number of authorization denials",
			},
			[]string{"resource_kind", "action"},
		),
		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crewdesk_rate_limited_total",
				Help: "Total number of rate-limited requests",
			},
			[]string{"limiter"},
		),
		ActiveSessionsGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crewdesk_active_sessions",
				Help: "Number of active sessions",
			},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crewdesk_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crewdesk_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		TenantsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crewdesk_tenants_total",
				Help: "Number of non-cancelled tenants",
			},
		),
		ActiveUsersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "crewdesk_active_users_total",
				Help: "Number of active users across all tenants",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthFailuresTotal,
		m.AccessDenialsTotal,
		m.RateLimitedTotal,
		m.ActiveSessionsGauge,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.TenantsTotal,
		m.ActiveUsersTotal,
	)

	return m
}

// InitMetrics creates metrics on a fresh registry.
func InitMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response status for metric labels
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware records request counts and durations per route.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

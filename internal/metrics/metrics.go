package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the dashboard's Prometheus collectors
type Metrics struct {
	// Backend call metrics
	BackendRequests *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec

	// Session lifecycle metrics
	AuthFailures  *prometheus.CounterVec
	SessionClears *prometheus.CounterVec
	GuardDenials  prometheus.Counter

	// Login metrics
	OTPRequests *prometheus.CounterVec
	Logins      *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on registry
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		BackendRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paydesk_backend_requests_total",
				Help: "Total number of calls to the payments backend by method and status class",
			},
			[]string{"method", "class"},
		),
		BackendLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "paydesk_backend_request_duration_seconds",
				Help:    "Latency of calls to the payments backend",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paydesk_auth_failures_total",
				Help: "Backend responses classified as an invalid or expired session",
			},
			[]string{"reason"},
		),
		SessionClears: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paydesk_session_clears_total",
				Help: "Sessions removed, by cause",
			},
			[]string{"cause"},
		),
		GuardDenials: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "paydesk_guard_denials_total",
				Help: "Protected views refused to visitors without a session",
			},
		),
		OTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paydesk_otp_requests_total",
				Help: "Login code requests by kind and result",
			},
			[]string{"kind", "result"},
		),
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "paydesk_logins_total",
				Help: "Completed code verifications by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// NewRegistry creates a fresh registry with all metrics registered
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, NewMetrics(reg)
}

// HandlerFor returns the /metrics handler for a registry
func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// StatusClass buckets an HTTP status for labelling
func StatusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

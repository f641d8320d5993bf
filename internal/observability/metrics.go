package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes Prometheus collectors for the HTTP surface and the
// summary generation path.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	draftsExpiredTotal prometheus.Counter
}

// NewMetrics registers collectors on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "case_service_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "case_service_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "case_service_http_errors_total",
			Help: "Request errors by route and error code.",
		}, []string{"route", "method", "code"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "case_service_generation_duration_seconds",
			Help:    "Summary generation latency by provider and outcome.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "outcome"}),
		draftsExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "case_service_drafts_expired_total",
			Help: "Summary drafts transitioned to EXPIRED.",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.errorsTotal,
		m.generationDuration,
		m.draftsExpiredTotal,
	)
	return m
}

// RecordRequest increments request counters and observes latency.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(route, method, code).Inc()
}

// RecordGeneration observes one generation attempt.
func (m *Metrics) RecordGeneration(provider, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(provider, outcome).Observe(duration.Seconds())
}

// RecordDraftExpired counts one lifecycle expiry.
func (m *Metrics) RecordDraftExpired() {
	if m == nil {
		return
	}
	m.draftsExpiredTotal.Inc()
}

// Handler returns the scrape endpoint handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

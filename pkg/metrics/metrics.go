// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal       *prometheus.CounterVec
	HTTPRequestDuration     *prometheus.HistogramVec
	HTTPRequestsInFlight    prometheus.Gauge
	UpstreamRequestsTotal   *prometheus.CounterVec
	UpstreamRequestDuration prometheus.Histogram
	CandidatesParsedTotal   prometheus.Counter
	BatchSize               prometheus.Histogram
	QueueEnqueuedTotal      prometheus.Counter
	PublishTotal            *prometheus.CounterVec
	DrainCyclesTotal        *prometheus.CounterVec
	RetentionPrunedTotal    prometheus.Counter
	CircuitBreakerState     *prometheus.GaugeVec
}

// New creates all collectors and registers them with reg. A nil reg means
// the default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 30, 120},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		UpstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_requests_total",
				Help: "Upstream generation requests by status (ok, error).",
			},
			[]string{"status"},
		),
		UpstreamRequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "upstream_request_duration_seconds",
				Help:    "Upstream generation request latency in seconds.",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 90},
			},
		),
		CandidatesParsedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "alert_candidates_parsed_total",
				Help: "Candidate records extracted from upstream text.",
			},
		),
		BatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "alert_batch_size",
				Help:    "Number of classified records produced per ingestion run.",
				Buckets: []float64{0, 1, 5, 10, 15, 20},
			},
		),
		QueueEnqueuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "alert_queue_enqueued_total",
				Help: "Records inserted into the pending queue.",
			},
		),
		PublishTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alert_publish_total",
				Help: "Publish attempts by result (published, duplicate, error).",
			},
			[]string{"result"},
		),
		DrainCyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alert_drain_cycles_total",
				Help: "Completed drain cycles by outcome (success, refresh, error, busy).",
			},
			[]string{"outcome"},
		),
		RetentionPrunedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "alert_retention_pruned_total",
				Help: "Public records removed by the retention job.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.UpstreamRequestsTotal,
		m.UpstreamRequestDuration,
		m.CandidatesParsedTotal,
		m.BatchSize,
		m.QueueEnqueuedTotal,
		m.PublishTotal,
		m.DrainCyclesTotal,
		m.RetentionPrunedTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

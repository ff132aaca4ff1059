package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts served requests by route pattern and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// RecomputeDuration measures one full filter and aggregation pass.
	RecomputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_recompute_duration_seconds",
			Help:    "Duration of resolving filters and computing all charts",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"granularity"},
	)

	ResolvedRows = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dashboard_resolved_rows",
			Help:    "Number of fact rows left after applying the filters",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	FactRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dashboard_fact_rows",
			Help: "Rows in the joined fact table",
		},
	)

	SpanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dashboard_span_duration_seconds",
			Help:    "Duration of traced operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)
)

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP and ingestion metrics, exposed on GET /metrics.

var (
	// httpRequestsTotal counts handled requests.
	// Labels:
	//   - server: "ingest" or "alerts"
	//   - route: chi route pattern, "unmatched" for 404s
	//   - method, status: HTTP method and response code
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsa_http_requests_total",
			Help: "Total number of HTTP requests handled by the supervisor",
		},
		[]string{"server", "route", "method", "status"},
	)

	// httpRequestDuration measures handler latency.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tsa_http_request_duration_seconds",
			Help:    "Duration of HTTP requests handled by the supervisor",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"server", "route"},
	)

	// ingestPointsTotal counts points received on /input.
	// Labels:
	//   - outcome: "accepted", "rejected" (daemon answered non-204),
	//     "invalid" (bad request body), "error" (daemon unreachable)
	ingestPointsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsa_ingest_points_total",
			Help: "Total number of data points received on the ingestion endpoint",
		},
		[]string{"outcome"},
	)

	// configChangesTotal counts /config_change requests by outcome.
	configChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsa_config_changes_total",
			Help: "Total number of configuration change requests",
		},
		[]string{"outcome"},
	)
)

// Package metrics provides Prometheus metrics for the flash card API.
// It exports HTTP request metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//
// and domain metrics:
//   - deck_operations_total: Counter with operation and outcome labels
//   - deck_sessions_active: Gauge of live study sessions
//   - dataset_records: Gauge of records in the current dataset, by found status
//   - dataset_loads_total: Counter of dataset loads by result
//
// All metrics are automatically registered with the Prometheus default registry
// during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	DeckOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deck_operations_total",
			Help: "Deck commands by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "deck_sessions_active",
			Help: "Live study sessions",
		},
	)

	DatasetRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataset_records",
			Help: "Records in the current dataset",
		},
		[]string{"found"},
	)

	DatasetLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataset_loads_total",
			Help: "Dataset loads by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(DeckOperations)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(DatasetRecords)
	prometheus.MustRegister(DatasetLoads)
}

// RecordDataset sets the dataset gauges after a successful load
func RecordDataset(found, missing int) {
	DatasetRecords.WithLabelValues("true").Set(float64(found))
	DatasetRecords.WithLabelValues("false").Set(float64(missing))
	DatasetLoads.WithLabelValues("success").Inc()
}

// RecordLoadFailure counts a failed dataset load
func RecordLoadFailure() {
	DatasetLoads.WithLabelValues("failure").Inc()
}

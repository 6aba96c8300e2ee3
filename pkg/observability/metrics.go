package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// ChecksTotal tracks the total number of completeness check runs
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsdq_checks_total",
			Help: "Total number of completeness check runs",
		},
		[]string{"check", "status"}, // status: success, failed
	)

	// CheckDuration measures check execution duration in seconds
	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tsdq_check_duration_seconds",
			Help:    "Completeness check execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
		},
		[]string{"check", "status"},
	)

	// ChecksRunning tracks the number of currently running checks
	ChecksRunning = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tsdq_checks_running",
			Help: "Number of currently running completeness checks",
		},
		[]string{"check"},
	)

	// SeriesAvgRatio exposes the average completeness ratio of each series
	// from its latest check run
	SeriesAvgRatio = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tsdq_series_avg_ratio",
			Help: "Average completeness ratio of the series over the last check window",
		},
		[]string{"check", "timeseries"},
	)

	// SeriesTotalCount exposes the observed sample count of each series from
	// its latest check run
	SeriesTotalCount = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tsdq_series_total_count",
			Help: "Observed sample count of the series over the last check window",
		},
		[]string{"check", "timeseries"},
	)

	// StoreQueries counts timeseries store queries executed
	StoreQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsdq_store_queries_total",
			Help: "Total number of timeseries store queries executed",
		},
		[]string{"backend", "status"}, // status: success, error
	)

	// ChecksEnqueued counts check tasks enqueued by the scheduler
	ChecksEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsdq_checks_enqueued_total",
			Help: "Total number of check tasks enqueued",
		},
		[]string{"check"},
	)

	// ErrorsTotal counts total number of errors
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tsdq_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)

// RecordCheckStart records the start of a check run
func RecordCheckStart(check string) {
	ChecksRunning.WithLabelValues(check).Inc()
}

// RecordCheckComplete records check run completion
func RecordCheckComplete(check, status string, duration float64) {
	ChecksRunning.WithLabelValues(check).Dec()
	ChecksTotal.WithLabelValues(check, status).Inc()
	CheckDuration.WithLabelValues(check, status).Observe(duration)
}

// RecordSeriesFigures records the per-series gauges from a check run
func RecordSeriesFigures(check, timeseries string, avgRatio *float64, totalCount int64) {
	SeriesTotalCount.WithLabelValues(check, timeseries).Set(float64(totalCount))

	if avgRatio != nil {
		SeriesAvgRatio.WithLabelValues(check, timeseries).Set(*avgRatio)
	}
}

// RecordStoreQuery records a timeseries store query
func RecordStoreQuery(backend, status string) {
	StoreQueries.WithLabelValues(backend, status).Inc()
}

// RecordCheckEnqueued records a check task enqueue
func RecordCheckEnqueued(check string) {
	ChecksEnqueued.WithLabelValues(check).Inc()
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP requests served, by route pattern and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txdash_http_requests_total",
			Help: "Total number of HTTP requests (by route, method and status).",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txdash_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms → ~16s
		},
		[]string{"route", "method"},
	)

	// Aggregations computed (cache misses), by variant and kind.
	AggregationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txdash_aggregations_total",
			Help: "Number of aggregations computed (by variant, kind and outcome).",
		},
		[]string{"variant", "kind", "outcome"},
	)

	AggregationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "txdash_aggregation_duration_seconds",
			Help:    "Time spent filtering and aggregating the dataset.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
		},
		[]string{"variant", "kind"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txdash_cache_lookups_total",
			Help: "Aggregation cache lookups (by result: hit or miss).",
		},
		[]string{"result"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txdash_cache_evictions_total",
			Help: "Entries dropped from the aggregation cache (by reason: capacity, expired, cleared).",
		},
		[]string{"reason"},
	)

	// Dataset state after the last successful load.
	DatasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "txdash_dataset_rows",
			Help: "Rows in the loaded dataset (by stage: input, output, dropped_timestamp, dropped_status).",
		},
		[]string{"stage"},
	)

	DatasetLoadedAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "txdash_dataset_loaded_timestamp_seconds",
			Help: "Unix time of the last successful dataset load.",
		},
	)

	DatasetLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txdash_dataset_loads_total",
			Help: "Dataset loads (by source and outcome).",
		},
		[]string{"source", "outcome"},
	)

	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "txdash_imports_total",
			Help: "Import messages handled by the worker (by outcome).",
		},
		[]string{"outcome"},
	)
)

// ObserveDuration records the time taken for a function and updates the given histogram.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()

	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	default:
		// counters are not meant for duration tracking
	}
}

// RecordDataset publishes the row counts of a normalization pass.
func RecordDataset(input, output, droppedTimestamp, droppedStatus int) {
	DatasetRows.WithLabelValues("input").Set(float64(input))
	DatasetRows.WithLabelValues("output").Set(float64(output))
	DatasetRows.WithLabelValues("dropped_timestamp").Set(float64(droppedTimestamp))
	DatasetRows.WithLabelValues("dropped_status").Set(float64(droppedStatus))
	DatasetLoadedAt.SetToCurrentTime()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

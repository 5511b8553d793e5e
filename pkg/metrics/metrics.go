package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors are created eagerly so packages can record into them before
// (or without) Init; Init only registers them with the default registry.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ArtifactsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifacts_processed_total",
			Help: "Artifacts processed by the pipeline, by outcome.",
		},
		[]string{"outcome"}, // persisted, mapped, invalid, error, failed, duplicate, cancelled
	)

	ValidationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_errors_total",
			Help: "Schema validation errors, by category.",
		},
		[]string{"category"},
	)

	ParserResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "parser_results_total",
			Help: "Heuristic parser results, by parser and provenance.",
		},
		[]string{"parser", "source"},
	)

	UpsertCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upsert_calls_total",
			Help: "Store upsert calls, by operation and status.",
		},
		[]string{"op", "status"}, // status: success, failure
	)

	UpsertDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upsert_duration_seconds",
			Help:    "Duration of store upsert calls including retries.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"op"},
	)

	ImageGuardOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_guard_operations_total",
			Help: "Image operations seen by the guard, by result.",
		},
		[]string{"result"}, // skipped, succeeded, failed
	)

	BatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "batch_duration_seconds",
			Help:    "Wall time of pipeline batches.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)
)

var once sync.Once

// Init registers all collectors with the default Prometheus registry. It is
// safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			ArtifactsProcessed,
			ValidationErrors,
			ParserResults,
			UpsertCalls,
			UpsertDuration,
			ImageGuardOperations,
			BatchDuration,
		)
	})
}

// Package metrics declares the Prometheus collectors shared by the API server
// and the batch predictor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Pipeline outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDryRun  = "dry_run"
)

var (
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydromap_pipeline_runs_total",
		Help: "Total number of prediction pipeline runs by outcome.",
	}, []string{"outcome"})

	RowsPredicted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydromap_pipeline_rows_predicted_total",
		Help: "Total number of candidate rows scored, by engine.",
	}, []string{"engine"})

	RowsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hydromap_pipeline_rows_inserted_total",
		Help: "Total number of enriched rows accepted by the store.",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hydromap_pipeline_stage_duration_seconds",
		Help:    "Duration of each pipeline stage.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
	}, []string{"stage"})

	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydromap_api_cache_requests_total",
		Help: "Read-through cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	StoreRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hydromap_store_requests_total",
		Help: "Remote store calls by operation and status.",
	}, []string{"op", "status"})
)

// Push sends the default registry to a Prometheus Pushgateway. Batch jobs
// exit before a scrape can happen, so they report this way.
func Push(url, job string) error {
	return push.New(url, job).Gatherer(prometheus.DefaultGatherer).Push()
}

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var postsProcessedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "diffuser_posts_processed_total",
	Help: "The total number of posts read by the pipeline",
}, []string{"result"})

var accountsProcessedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "diffuser_accounts_processed_total",
	Help: "The total number of accounts processed per stage",
}, []string{"stage"})

var accountsFailedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "diffuser_accounts_failed_total",
	Help: "The total number of accounts skipped after a failed task per stage",
}, []string{"stage"})

var duplicateAggregatesCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "diffuser_duplicate_aggregates_total",
	Help: "The total number of aggregates replaced by a later write",
})

var featureRowsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "diffuser_feature_rows_total",
	Help: "The total number of edges processed by the feature engine",
}, []string{"result"})

var stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "diffuser_stage_duration_seconds",
	Help:    "A histogram of pipeline stage durations",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 20),
}, []string{"stage"})

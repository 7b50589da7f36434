package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion service

var (
	// Shard metrics
	ShardsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betlab_shards_processed_total",
			Help: "Total number of shard files processed, by outcome",
		},
		[]string{"outcome"},
	)

	ShardDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "betlab_shard_duration_seconds",
			Help:    "Duration of single-shard ingestion in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// Record metrics
	RecordsInsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "betlab_records_inserted_total",
			Help: "Total number of match records inserted into the store",
		},
	)

	RecordsDuplicateTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "betlab_records_duplicate_total",
			Help: "Total number of match records rejected as duplicates",
		},
	)

	RecordsMalformedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "betlab_records_malformed_total",
			Help: "Total number of match records skipped as malformed",
		},
	)

	// Run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betlab_ingestion_runs_total",
			Help: "Total number of ingestion runs, by outcome",
		},
		[]string{"outcome"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "betlab_ingestion_run_duration_seconds",
			Help:    "Duration of full ingestion runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	LastSuccessfulRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "betlab_last_successful_run_timestamp",
			Help: "Timestamp of the last ingestion run without store failures",
		},
	)

	MatchesStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "betlab_matches_stored_total",
			Help: "Total number of match records in the store",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "betlab_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "betlab_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)
)

// RecordShard records a processed shard and its duration
func RecordShard(outcome string, duration float64) {
	ShardsProcessedTotal.WithLabelValues(outcome).Inc()
	ShardDuration.Observe(duration)
}

// RecordBatch records the per-record outcome of one shard's bulk insert
func RecordBatch(inserted, duplicates, malformed int) {
	RecordsInsertedTotal.Add(float64(inserted))
	RecordsDuplicateTotal.Add(float64(duplicates))
	RecordsMalformedTotal.Add(float64(malformed))
}

// RecordRun records a completed ingestion run
func RecordRun(outcome string, duration float64) {
	RunsTotal.WithLabelValues(outcome).Inc()
	RunDuration.Observe(duration)

	if outcome == "success" {
		LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExtractionAttempts tracks backend extraction attempts per fallback
	// strategy and outcome (success/failure).
	ExtractionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_extraction_attempts_total",
			Help: "Total number of extraction attempts",
		},
		[]string{"strategy", "outcome"},
	)

	// CacheRequests tracks metadata cache lookups by result (hit/miss/error).
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_cache_requests_total",
			Help: "Total number of metadata cache lookups",
		},
		[]string{"result"},
	)

	// JobsTerminal tracks jobs reaching a terminal state.
	JobsTerminal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_jobs_terminal_total",
			Help: "Total number of jobs reaching a terminal state",
		},
		[]string{"state"},
	)

	// JobRetries tracks retried job attempts by failure category.
	JobRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetcher_job_retries_total",
			Help: "Total number of retried job attempts",
		},
		[]string{"category"},
	)

	// JobDuration tracks end-to-end job execution time.
	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetcher_job_duration_seconds",
			Help:    "Job execution time in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// ActiveJobs tracks jobs currently being executed by this process.
	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fetcher_active_jobs",
			Help: "Number of jobs currently executing",
		},
	)
)

package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trendpress_jobs_dispatched_total",
		Help: "Jobs moved from pending to generating.",
	})
	jobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trendpress_jobs_completed_total",
		Help: "Jobs that produced an article.",
	})
	jobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trendpress_jobs_failed_total",
		Help: "Jobs whose generation failed or timed out.",
	})
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trendpress_tick_duration_seconds",
		Help:    "Wall time of one dispatch tick.",
		Buckets: prometheus.DefBuckets,
	})
)

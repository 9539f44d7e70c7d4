package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AlertsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmsender_alerts_scanned_total",
		Help: "Alert definitions read from the store.",
	})

	AlertsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alarmsender_alerts_skipped_total",
		Help: "Alerts skipped before dispatch, by reason.",
	}, []string{"reason"})

	Dispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarmsender_jobs_dispatched_total",
		Help: "Notification jobs handed to the dispatcher.",
	})

	Outcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alarmsender_dispatch_outcomes_total",
		Help: "Dispatch outcomes, by status.",
	}, []string{"status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alarmsender_run_duration_seconds",
		Help:    "Wall-clock duration of a full pipeline run.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})
)

package sweep

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "planwatch"

var (
	sweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Total sweep runs by outcome",
		},
		[]string{"status"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Time to complete one sweep run",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	sweepSubscribers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "subscribers_total",
			Help:      "Subscribers processed by outcome",
		},
		[]string{"outcome"},
	)
)

// recordRun records one completed sweep run.
func recordRun(status string, duration time.Duration) {
	sweepRuns.WithLabelValues(status).Inc()
	sweepDuration.Observe(duration.Seconds())
}

// recordOutcome records a per-subscriber sweep outcome.
func recordOutcome(outcome string) {
	sweepSubscribers.WithLabelValues(outcome).Inc()
}

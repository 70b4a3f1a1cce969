package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AssignmentMetrics records outcomes of auto-assignment batches.
type AssignmentMetrics struct {
	outcomes *prometheus.CounterVec
	duration prometheus.Histogram
	batch    prometheus.Histogram
}

// NewAssignmentMetrics registers the assignment metrics on the provided registerer.
func NewAssignmentMetrics(reg prometheus.Registerer) *AssignmentMetrics {
	if reg == nil {
		return &AssignmentMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_outcomes_total",
		Help: "Per-case outcomes of auto-assignment batches.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "assignment_batch_duration_seconds",
		Help:    "Duration of auto-assignment batches in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	batch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "assignment_batch_size",
		Help:    "Number of pending cases picked up per batch.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200},
	})
	reg.MustRegister(outcomes, duration, batch)
	return &AssignmentMetrics{
		outcomes: outcomes,
		duration: duration,
		batch:    batch,
	}
}

// IncOutcome counts one per-case outcome.
func (a *AssignmentMetrics) IncOutcome(outcome string) {
	if a == nil || a.outcomes == nil {
		return
	}
	a.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveBatch records batch duration and size.
func (a *AssignmentMetrics) ObserveBatch(size int, duration time.Duration) {
	if a == nil {
		return
	}
	if a.duration != nil {
		a.duration.Observe(duration.Seconds())
	}
	if a.batch != nil {
		a.batch.Observe(float64(size))
	}
}

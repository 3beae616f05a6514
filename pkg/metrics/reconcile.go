package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcileMetrics records reconciliation worker runs and task outcomes.
type ReconcileMetrics struct {
	duration *prometheus.HistogramVec
	tasks    *prometheus.CounterVec
}

// NewReconcileMetrics registers the reconciliation metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_run_duration_seconds",
		Help:    "Duration of reconciliation batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"worker"})
	tasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_tasks_total",
		Help: "Reconciliation tasks processed by outcome.",
	}, []string{"worker", "outcome"})
	reg.MustRegister(duration, tasks)
	return &ReconcileMetrics{
		duration: duration,
		tasks:    tasks,
	}
}

// ObserveRun records the duration of one worker batch.
func (r *ReconcileMetrics) ObserveRun(worker string, duration time.Duration) {
	if r == nil || r.duration == nil {
		return
	}
	r.duration.WithLabelValues(normalizeLabel(worker)).Observe(duration.Seconds())
}

// IncTask increments the task counter for a worker/outcome pair.
func (r *ReconcileMetrics) IncTask(worker, outcome string) {
	if r == nil || r.tasks == nil {
		return
	}
	r.tasks.WithLabelValues(normalizeLabel(worker), normalizeLabel(outcome)).Inc()
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records charge attempts by settlement path and outcome.
type PaymentMetrics struct {
	duration *prometheus.HistogramVec
	attempts *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "charge_duration_seconds",
		Help:    "Duration of settlement attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "charge_attempts_total",
		Help: "Settlement attempts by path and outcome.",
	}, []string{"path", "outcome"})
	reg.MustRegister(duration, attempts)
	return &PaymentMetrics{
		duration: duration,
		attempts: attempts,
	}
}

// ObserveDuration records the duration for the named settlement path.
func (p *PaymentMetrics) ObserveDuration(path string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(path)).Observe(duration.Seconds())
}

// IncAttempt increments the attempt counter for a path/outcome pair.
func (p *PaymentMetrics) IncAttempt(path, outcome string) {
	if p == nil || p.attempts == nil {
		return
	}
	p.attempts.WithLabelValues(normalizeLabel(path), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

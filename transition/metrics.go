/*
metrics.go - Prometheus instrumentation for the coordinator

PURPOSE:
  Counts transition outcomes and observes execution duration so operators
  can watch rejection rates and compensation failures without reading the
  audit log.

METRICS:
  transition_attempts_total{entity_type, outcome}   outcome: success|rejected|failed
  transition_duration_seconds{entity_type}          operation + logging time
  distributed_transactions_total{type, outcome}     outcome: success|failed
  compensation_failures_total{type}                 callback errors (best-effort path)
*/
package transition

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for transition_attempts_total.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// Metrics holds the coordinator's prometheus collectors.
type Metrics struct {
	attempts     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	distributed  *prometheus.CounterVec
	compensation *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors on reg.
// Pass prometheus.DefaultRegisterer for the process-wide registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transition_attempts_total",
			Help: "Transition attempts by entity type and outcome.",
		}, []string{"entity_type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transition_duration_seconds",
			Help:    "Wall time of coordinator invocations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"entity_type"}),
		distributed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "distributed_transactions_total",
			Help: "Distributed transactions by type and outcome.",
		}, []string{"type", "outcome"}),
		compensation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "compensation_failures_total",
			Help: "Compensating callbacks that returned an error.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(m.attempts, m.duration, m.distributed, m.compensation)
	}
	return m
}

func (m *Metrics) observeAttempt(entityType, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(entityType, outcome).Inc()
	m.duration.WithLabelValues(entityType).Observe(d.Seconds())
}

func (m *Metrics) observeDistributed(txType string, succeeded bool) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	if !succeeded {
		outcome = outcomeFailed
	}
	m.distributed.WithLabelValues(txType, outcome).Inc()
}

func (m *Metrics) observeCompensationFailure(txType string) {
	if m == nil {
		return
	}
	m.compensation.WithLabelValues(txType).Inc()
}

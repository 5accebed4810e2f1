// Package metrics registers the prometheus instruments for the dispatcher.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatcherMetrics records dispatch attempt outcomes and send latency.
type DispatcherMetrics struct {
	attempts     *prometheus.CounterVec
	dlq          prometheus.Counter
	sendDuration prometheus.Histogram
}

// NewDispatcherMetrics registers the dispatcher metrics on the provided
// registerer. A nil registerer yields a no-op instance, which keeps tests and
// tools that don't scrape from having to wire a registry.
func NewDispatcherMetrics(reg prometheus.Registerer) *DispatcherMetrics {
	if reg == nil {
		return &DispatcherMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_attempts_total",
		Help: "Dispatch attempts by transport outcome.",
	}, []string{"outcome"})
	dlq := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_items_dlq_total",
		Help: "Command items moved to the dead-letter state.",
	})
	sendDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_send_duration_seconds",
		Help:    "Duration of meter channel sends in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(attempts, dlq, sendDuration)
	return &DispatcherMetrics{
		attempts:     attempts,
		dlq:          dlq,
		sendDuration: sendDuration,
	}
}

// IncAttempt counts one dispatch attempt with its transport outcome.
func (m *DispatcherMetrics) IncAttempt(outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(outcome).Inc()
}

// IncDlq counts one item moved to the dead-letter state.
func (m *DispatcherMetrics) IncDlq() {
	if m == nil || m.dlq == nil {
		return
	}
	m.dlq.Inc()
}

// ObserveSendDuration records the duration of one meter channel send.
func (m *DispatcherMetrics) ObserveSendDuration(d time.Duration) {
	if m == nil || m.sendDuration == nil {
		return
	}
	m.sendDuration.Observe(d.Seconds())
}

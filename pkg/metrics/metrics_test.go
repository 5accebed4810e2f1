package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, family := range families {
		byName[family.GetName()] = family
	}
	return byName
}

func TestDispatcherMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatcherMetrics(reg)

	m.IncAttempt("ACK")
	m.IncAttempt("ACK")
	m.IncAttempt("TIMEOUT")
	m.IncDlq()
	m.ObserveSendDuration(250 * time.Millisecond)

	families := gather(t, reg)

	attempts := families["dispatch_attempts_total"]
	require.NotNil(t, attempts)
	counts := map[string]float64{}
	for _, metric := range attempts.GetMetric() {
		counts[metric.GetLabel()[0].GetValue()] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, float64(2), counts["ACK"])
	assert.Equal(t, float64(1), counts["TIMEOUT"])

	dlq := families["dispatch_items_dlq_total"]
	require.NotNil(t, dlq)
	assert.Equal(t, float64(1), dlq.GetMetric()[0].GetCounter().GetValue())

	duration := families["dispatch_send_duration_seconds"]
	require.NotNil(t, duration)
	assert.Equal(t, uint64(1), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestNilRegistererIsNoOp(t *testing.T) {
	m := NewDispatcherMetrics(nil)

	// None of these should panic.
	m.IncAttempt("ACK")
	m.IncDlq()
	m.ObserveSendDuration(time.Second)
}

func TestNilReceiverIsNoOp(t *testing.T) {
	var m *DispatcherMetrics

	m.IncAttempt("ACK")
	m.IncDlq()
	m.ObserveSendDuration(time.Second)
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.SetActiveConnections(5)
	m.RecordBlockReceived("ACCOUNT_ID")
	m.RecordDispatchDropped()
}

func TestActiveConnectionsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncConnectionOpened()
	m.IncConnectionOpened()
	m.IncConnectionClosed()

	require.Equal(t, float64(1), gaugeValue(t, m.activeConnections))
}

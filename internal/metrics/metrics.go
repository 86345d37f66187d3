// Package metrics exposes Prometheus counters and gauges for the receiver.
// A nil *Metrics is valid and every method becomes a no-op, so the rest of
// the codebase can hold a metrics reference unconditionally without
// branching on whether collection is enabled.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every gauge/counter the receiver collects.
type Metrics struct {
	activeConnections prometheus.Gauge
	blocksReceived    *prometheus.CounterVec
	blocksRejected    *prometheus.CounterVec
	eventsParsed      prometheus.Counter
	queueDepth        prometheus.Gauge
	dispatchAttempts  prometheus.Counter
	dispatchSuccess   prometheus.Counter
	dispatchFailure   prometheus.Counter
	dispatchDropped   prometheus.Counter
}

// New registers every metric against reg and returns a ready-to-use
// *Metrics. Pass prometheus.NewRegistry() for isolated tests; use
// NewDisabled instead for a nil *Metrics whose methods are no-ops.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		activeConnections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "sia_active_connections",
			Help: "Number of currently open panel connections.",
		}),
		blocksReceived: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sia_blocks_received_total",
			Help: "Valid blocks received, by command name.",
		}, []string{"command"}),
		blocksRejected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sia_blocks_rejected_total",
			Help: "Blocks rejected by the frame codec, by rejection kind.",
		}, []string{"kind"}),
		eventsParsed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sia_events_parsed_total",
			Help: "Event chunks parsed into an Event.",
		}),
		queueDepth: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "sia_dispatch_queue_depth",
			Help: "Current number of jobs waiting in the dispatch queue.",
		}),
		dispatchAttempts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sia_dispatch_attempts_total",
			Help: "Notification dispatch attempts.",
		}),
		dispatchSuccess: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sia_dispatch_success_total",
			Help: "Notification dispatches that received a 2xx response.",
		}),
		dispatchFailure: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sia_dispatch_failure_total",
			Help: "Notification dispatches that failed (transport error, non-2xx, or exhausted retries).",
		}),
		dispatchDropped: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "sia_dispatch_dropped_total",
			Help: "Jobs dropped because the dispatch queue was full.",
		}),
	}
}

// NewDisabled returns a *Metrics whose methods are all no-ops, for callers
// that don't want Prometheus registration overhead (e.g. most tests).
func NewDisabled() *Metrics { return nil }

func (m *Metrics) SetActiveConnections(n int) {
	if m == nil {
		return
	}
	m.activeConnections.Set(float64(n))
}

func (m *Metrics) IncConnectionOpened() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
}

func (m *Metrics) IncConnectionClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *Metrics) RecordBlockReceived(command string) {
	if m == nil {
		return
	}
	m.blocksReceived.WithLabelValues(command).Inc()
}

func (m *Metrics) RecordBlockRejected(kind string) {
	if m == nil {
		return
	}
	m.blocksRejected.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordEventParsed() {
	if m == nil {
		return
	}
	m.eventsParsed.Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) RecordDispatchAttempt() {
	if m == nil {
		return
	}
	m.dispatchAttempts.Inc()
}

func (m *Metrics) RecordDispatchSuccess() {
	if m == nil {
		return
	}
	m.dispatchSuccess.Inc()
}

func (m *Metrics) RecordDispatchFailure() {
	if m == nil {
		return
	}
	m.dispatchFailure.Inc()
}

func (m *Metrics) RecordDispatchDropped() {
	if m == nil {
		return
	}
	m.dispatchDropped.Inc()
}

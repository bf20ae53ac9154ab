package auctionhouse

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "auctionhouse_realtime"

// Metrics holds the Prometheus collectors updated by a RealtimeClient.
type Metrics struct {
	frames            prometheus.Counter
	decodeFailures    prometheus.Counter
	dispatched        *prometheus.CounterVec
	reconnectAttempts prometheus.Counter
	droppedSends      prometheus.Counter
	connected         prometheus.Gauge
}

// NewMetrics creates the realtime collectors and registers them with reg.
// A nil reg leaves them unregistered, which is useful in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_total",
			Help:      "Inbound frames read from the event stream.",
		}),
		decodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decode_failures_total",
			Help:      "Inbound frames dropped because they were not valid JSON.",
		}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dispatched_total",
			Help:      "Envelopes routed, by canonical event name.",
		}, []string{"event"}),
		reconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reconnect_attempts_total",
			Help:      "Reconnect attempts scheduled.",
		}),
		droppedSends: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_sends_total",
			Help:      "Outbound messages dropped while not connected.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connected",
			Help:      "1 while the event stream is open.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.frames, m.decodeFailures, m.dispatched, m.reconnectAttempts, m.droppedSends, m.connected)
	}
	return m
}

func (m *Metrics) frameRead() {
	if m != nil {
		m.frames.Inc()
	}
}

func (m *Metrics) decodeFailed() {
	if m != nil {
		m.decodeFailures.Inc()
	}
}

func (m *Metrics) routed(name string) {
	if m != nil {
		m.dispatched.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) reconnectScheduled() {
	if m != nil {
		m.reconnectAttempts.Inc()
	}
}

func (m *Metrics) sendDropped() {
	if m != nil {
		m.droppedSends.Inc()
	}
}

func (m *Metrics) setConnected(open bool) {
	if m == nil {
		return
	}
	if open {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

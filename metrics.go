package relay

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "broker_relay"

// Metrics holds the relay's Prometheus collectors. A nil *Metrics is valid and
// records nothing, so components never need to check whether metrics are enabled.
type Metrics struct {
	deliveries      prometheus.Counter
	decodeErrors    prometheus.Counter
	persisted       prometheus.Counter
	pipelineErrors  prometheus.Counter
	publishes       *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	connectionState prometheus.Gauge
}

// NewMetrics creates the relay collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "inbound_deliveries_total",
			Help:      "Messages delivered by the broker to the relay.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payload_decode_errors_total",
			Help:      "Inbound deliveries dropped because the payload could not be decoded.",
		}),
		persisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_persisted_total",
			Help:      "Inbound messages appended to the message store.",
		}),
		pipelineErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "pipeline_errors_total",
			Help:      "Inbound deliveries that failed after decoding.",
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "publishes_total",
			Help:      "Outbound publishes by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notifications_total",
			Help:      "Per-recipient notification attempts by mode and result.",
		}, []string{"mode", "result"}),
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connection_state",
			Help:      "Broker session state: 0 disconnected, 1 connecting, 2 connected.",
		}),
	}

	collectors := []prometheus.Collector{
		m.deliveries, m.decodeErrors, m.persisted, m.pipelineErrors,
		m.publishes, m.notifications, m.connectionState,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to register relay metrics", err)
		}
	}
	return m, nil
}

func (m *Metrics) delivered() {
	if m != nil {
		m.deliveries.Inc()
	}
}

func (m *Metrics) decodeFailed() {
	if m != nil {
		m.decodeErrors.Inc()
	}
}

func (m *Metrics) messagePersisted() {
	if m != nil {
		m.persisted.Inc()
	}
}

func (m *Metrics) pipelineFailed() {
	if m != nil {
		m.pipelineErrors.Inc()
	}
}

func (m *Metrics) published(ok bool) {
	if m != nil {
		m.publishes.WithLabelValues(resultLabel(ok)).Inc()
	}
}

func (m *Metrics) notified(mode string, ok bool) {
	if m != nil {
		m.notifications.WithLabelValues(mode, resultLabel(ok)).Inc()
	}
}

func (m *Metrics) setState(s State) {
	if m != nil {
		m.connectionState.Set(float64(s))
	}
}

func resultLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

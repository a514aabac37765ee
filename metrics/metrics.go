// Package metrics exposes gateway counters to Prometheus. Collectors are
// registered on an injected registerer so tests can use a private registry.
// A nil collector set records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Framer counts multiplexer activity
type Framer struct {
	Dispatched  prometheus.Counter
	Dropped     prometheus.Counter
	Scans       prometheus.Counter
	Connections prometheus.Gauge
}

// NewFramer registers framer collectors under namespace
func NewFramer(reg prometheus.Registerer, namespace string) *Framer {
	factory := promauto.With(reg)
	return &Framer{
		Dispatched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "framer",
			Name:      "messages_dispatched_total",
			Help:      "Framed messages delivered to a sender endpoint",
		}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "framer",
			Name:      "messages_dropped_total",
			Help:      "Framed messages dropped because their connection was not registered",
		}),
		Scans: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "framer",
			Name:      "scans_total",
			Help:      "Passes over every message source",
		}),
		Connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "framer",
			Name:      "connections",
			Help:      "Connections currently registered with the multiplexer",
		}),
	}
}

// ObserveScan records one scan pass
func (m *Framer) ObserveScan(delivered, dropped int) {
	if m == nil {
		return
	}
	m.Scans.Inc()
	if delivered > 0 {
		m.Dispatched.Add(float64(delivered))
	}
	if dropped > 0 {
		m.Dropped.Add(float64(dropped))
	}
}

// SetConnections records the registry size
func (m *Framer) SetConnections(n int) {
	if m == nil {
		return
	}
	m.Connections.Set(float64(n))
}

// Codec counts pooled decodes by message type
type Codec struct {
	Decoded *prometheus.CounterVec
	Errors  *prometheus.CounterVec
}

// NewCodec registers codec collectors under namespace
func NewCodec(reg prometheus.Registerer, namespace string) *Codec {
	factory := promauto.With(reg)
	return &Codec{
		Decoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "messages_decoded_total",
			Help:      "Messages decoded, by message type",
		}, []string{"msg_type"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "decode_errors_total",
			Help:      "Messages that failed to decode, by reason",
		}, []string{"reason"}),
	}
}

// ObserveDecode records a successful decode
func (m *Codec) ObserveDecode(msgType string) {
	if m == nil {
		return
	}
	m.Decoded.WithLabelValues(msgType).Inc()
}

// ObserveError records a failed decode
func (m *Codec) ObserveError(reason string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(reason).Inc()
}

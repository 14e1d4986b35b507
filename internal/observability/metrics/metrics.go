// Package metrics exposes Prometheus instrumentation for the booking
// pipeline. All observe methods are nil-safe so wiring metrics stays
// optional in tests.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics covers the webhook-to-reply pipeline.
type Metrics struct {
	inboundTotal    *prometheus.CounterVec
	droppedTotal    *prometheus.CounterVec
	outboundTotal   *prometheus.CounterVec
	commandsTotal   *prometheus.CounterVec
	turnLatency     *prometheus.HistogramVec
	extractionTotal *prometheus.CounterVec
	queueDepth      prometheus.Gauge
}

// New registers and returns the pipeline metrics. A nil registerer uses the
// default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lyo",
			Subsystem: "conversation",
			Name:      "inbound_total",
			Help:      "Inbound WhatsApp messages accepted for processing",
		}, []string{"tenant_id"}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lyo",
			Subsystem: "conversation",
			Name:      "dropped_total",
			Help:      "Inbound messages dropped before processing",
		}, []string{"reason"}),
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lyo",
			Subsystem: "conversation",
			Name:      "outbound_total",
			Help:      "Outbound WhatsApp sends by final status",
		}, []string{"status"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lyo",
			Subsystem: "conversation",
			Name:      "commands_total",
			Help:      "Executed commands by kind and outcome",
		}, []string{"kind", "outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lyo",
			Subsystem: "conversation",
			Name:      "turn_latency_seconds",
			Help:      "Dequeue-to-send latency of one conversation turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tenant_id"}),
		extractionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lyo",
			Subsystem: "conversation",
			Name:      "extraction_total",
			Help:      "Intent extraction attempts by result",
		}, []string{"result"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lyo",
			Subsystem: "conversation",
			Name:      "queue_depth",
			Help:      "Messages waiting in the conversation queue",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.droppedTotal, m.outboundTotal,
		m.commandsTotal, m.turnLatency, m.extractionTotal, m.queueDepth)
	return m
}

func (m *Metrics) ObserveInbound(tenantID string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(tenantID).Inc()
}

func (m *Metrics) ObserveDropped(reason string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveCommand(kind, outcome string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveTurnLatency(tenantID string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(tenantID).Observe(seconds)
}

func (m *Metrics) ObserveExtraction(result string) {
	if m == nil {
		return
	}
	m.extractionTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

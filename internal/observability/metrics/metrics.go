package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat pipeline.
type ChatMetrics struct {
	turnsTotal        *prometheus.CounterVec
	llmTotal          *prometheus.CounterVec
	appointmentsTotal *prometheus.CounterVec
	webhookTotal      *prometheus.CounterVec
	sideEffectsTotal  *prometheus.CounterVec
	turnLatency       *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealerbot",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns handled, by the stage that produced the reply",
		}, []string{"stage"}),
		llmTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealerbot",
			Subsystem: "chat",
			Name:      "llm_requests_total",
			Help:      "Completion requests by model tier and outcome",
		}, []string{"tier", "status"}),
		appointmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealerbot",
			Subsystem: "appointments",
			Name:      "finalized_total",
			Help:      "Appointments captured from conversation",
		}, []string{"rescheduled"}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealerbot",
			Subsystem: "messenger",
			Name:      "webhook_events_total",
			Help:      "Inbound Messenger webhook events",
		}, []string{"kind", "status"}),
		sideEffectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealerbot",
			Subsystem: "chat",
			Name:      "side_effects_total",
			Help:      "Fire-and-forget notifications by kind and outcome",
		}, []string{"kind", "status"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dealerbot",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "Time to produce a reply",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.llmTotal, m.appointmentsTotal, m.webhookTotal, m.sideEffectsTotal, m.turnLatency)
	return m
}

func (m *ChatMetrics) ObserveTurn(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(stage).Inc()
	m.turnLatency.WithLabelValues(stage).Observe(seconds)
}

func (m *ChatMetrics) ObserveLLM(tier, status string) {
	if m == nil {
		return
	}
	m.llmTotal.WithLabelValues(tier, status).Inc()
}

func (m *ChatMetrics) ObserveAppointment(rescheduled bool) {
	if m == nil {
		return
	}
	label := "false"
	if rescheduled {
		label = "true"
	}
	m.appointmentsTotal.WithLabelValues(label).Inc()
}

func (m *ChatMetrics) ObserveWebhook(kind, status string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(kind, status).Inc()
}

func (m *ChatMetrics) ObserveSideEffect(kind, status string) {
	if m == nil {
		return
	}
	m.sideEffectsTotal.WithLabelValues(kind, status).Inc()
}

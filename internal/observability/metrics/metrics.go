package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics exposes counters/histograms for the message intake flow.
type IntakeMetrics struct {
	classifiedTotal *prometheus.CounterVec
	statusIntents   *prometheus.CounterVec
	parseFailures   prometheus.Counter
	unresolvedTotal prometheus.Counter
	handleLatency   prometheus.Histogram
}

func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		classifiedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "colisflow",
			Subsystem: "intake",
			Name:      "classified_total",
			Help:      "Messages classified, by decision",
		}, []string{"decision"}),
		statusIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "colisflow",
			Subsystem: "intake",
			Name:      "status_intents_total",
			Help:      "Status updates recognized, by intent kind",
		}, []string{"kind"}),
		parseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "colisflow",
			Subsystem: "intake",
			Name:      "order_parse_failures_total",
			Help:      "Structured order messages rejected with a schema error",
		}),
		unresolvedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "colisflow",
			Subsystem: "intake",
			Name:      "unresolved_updates_total",
			Help:      "Status updates dropped because no target order was found",
		}),
		handleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "colisflow",
			Subsystem: "intake",
			Name:      "handle_latency_seconds",
			Help:      "Latency of end-to-end message handling",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.classifiedTotal, m.statusIntents, m.parseFailures, m.unresolvedTotal, m.handleLatency)
	return m
}

func (m *IntakeMetrics) ObserveDecision(decision string) {
	if m == nil {
		return
	}
	m.classifiedTotal.WithLabelValues(decision).Inc()
}

func (m *IntakeMetrics) ObserveIntent(kind string) {
	if m == nil {
		return
	}
	m.statusIntents.WithLabelValues(kind).Inc()
}

func (m *IntakeMetrics) ObserveParseFailure() {
	if m == nil {
		return
	}
	m.parseFailures.Inc()
}

func (m *IntakeMetrics) ObserveUnresolved() {
	if m == nil {
		return
	}
	m.unresolvedTotal.Inc()
}

func (m *IntakeMetrics) ObserveHandleLatency(seconds float64) {
	if m == nil {
		return
	}
	m.handleLatency.Observe(seconds)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the cycle-level counters exposed on /metrics.
type Metrics struct {
	Registry *prometheus.Registry

	CyclesTotal          *prometheus.CounterVec
	SendsTotal           *prometheus.CounterVec
	SourceFallbacksTotal *prometheus.CounterVec
}

// New builds a registry with the application counters registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crashalert",
			Name:      "cycles_total",
			Help:      "Aggregation cycles run, by result.",
		}, []string{"result"}),
		SendsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crashalert",
			Name:      "sends_total",
			Help:      "Notification sends, by result.",
		}, []string{"result"}),
		SourceFallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crashalert",
			Name:      "source_fallbacks_total",
			Help:      "Indicator fetches that fell back to their default value.",
		}, []string{"source"}),
	}
}

// CycleResult records one cycle outcome.
func (m *Metrics) CycleResult(ok bool) {
	m.CyclesTotal.WithLabelValues(resultLabel(ok)).Inc()
}

// SendResult records one recipient send outcome.
func (m *Metrics) SendResult(ok bool) {
	m.SendsTotal.WithLabelValues(resultLabel(ok)).Inc()
}

// SourceFallback records one source falling back to its default.
func (m *Metrics) SourceFallback(sourceID string) {
	m.SourceFallbacksTotal.WithLabelValues(sourceID).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

package board

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts synchronizer activity. A nil *Metrics records nothing.
type Metrics struct {
	loads       *prometheus.CounterVec
	moves       *prometheus.CounterVec
	stale       *prometheus.CounterVec
	suggestions *prometheus.CounterVec
}

// NewMetrics registers the synchronizer counters on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadboard",
			Name:      "loads_total",
			Help:      "Pipeline loads by result (ok, error).",
		}, []string{"result"}),
		moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadboard",
			Name:      "moves_total",
			Help:      "Stage transitions by result (ok, rejected, partial).",
		}, []string{"result"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadboard",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because a newer request superseded them.",
		}, []string{"op"}),
		suggestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadboard",
			Name:      "suggestions_total",
			Help:      "Suggestion fetches by result (ok, error).",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.loads, m.moves, m.stale, m.suggestions)
	}
	return m
}

func (m *Metrics) load(result string) {
	if m != nil {
		m.loads.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) move(result string) {
	if m != nil {
		m.moves.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) staleResponse(op string) {
	if m != nil {
		m.stale.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) suggestion(result string) {
	if m != nil {
		m.suggestions.WithLabelValues(result).Inc()
	}
}

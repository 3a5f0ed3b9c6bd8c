package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"jokeledger/core/types"
)

type eventMetrics struct {
	events    *prometheus.CounterVec
	finalized *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking committed ledger events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "jokeledger",
				Subsystem: "events",
				Name:      "committed_total",
				Help:      "Count of committed ledger events segmented by type.",
			}, []string{"type"}),
			finalized: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "jokeledger",
				Subsystem: "events",
				Name:      "finalized_total",
				Help:      "Count of finalized submissions segmented by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(eventRegistry.events, eventRegistry.finalized)
	})
	return eventRegistry
}

// Record increments the counter for the supplied event.
func (m *eventMetrics) Record(evt *types.Event) {
	if m == nil || evt == nil {
		return
	}
	kind := strings.TrimSpace(evt.Type)
	if kind == "" {
		kind = "unknown"
	}
	m.events.WithLabelValues(kind).Inc()
	if outcome := evt.Attr("outcome"); outcome != "" {
		m.finalized.WithLabelValues(outcome).Inc()
	}
}

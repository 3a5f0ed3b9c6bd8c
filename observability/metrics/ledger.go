package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks ledger operations and the state they leave behind.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	pending    prometheus.Gauge
	approved   prometheus.Gauge
	fused      prometheus.Gauge
	dropped    prometheus.Gauge
	journal    *prometheus.CounterVec
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "jokeledger_operations_total",
				Help: "Count of ledger operations by name and result code.",
			}, []string{"operation", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "jokeledger_operation_duration_seconds",
				Help:    "Time spent executing and committing ledger operations.",
				Buckets: prometheus.DefBuckets,
			}, []string{"operation"}),
			pending: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "jokeledger_pending_submissions",
				Help: "Submissions awaiting finalization.",
			}),
			approved: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "jokeledger_approved_jokes",
				Help: "Active approved jokes.",
			}),
			fused: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "jokeledger_fused_jokes",
				Help: "Jokes retired through fusion.",
			}),
			dropped: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "jokeledger_feed_dropped_events",
				Help: "Event deliveries skipped because a subscriber fell behind.",
			}),
			journal: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "jokeledger_journal_appends_total",
				Help: "Journal append attempts by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(
			ledgerRegistry.operations,
			ledgerRegistry.latency,
			ledgerRegistry.pending,
			ledgerRegistry.approved,
			ledgerRegistry.fused,
			ledgerRegistry.dropped,
			ledgerRegistry.journal,
		)
	})
	return ledgerRegistry
}

// ObserveOperation records the result code and duration of an operation. An
// empty code means success.
func (m *LedgerMetrics) ObserveOperation(operation, code string, duration time.Duration) {
	if m == nil {
		return
	}
	if code == "" {
		code = "OK"
	}
	m.operations.WithLabelValues(operation, code).Inc()
	m.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetTotals publishes the ledger-wide counters.
func (m *LedgerMetrics) SetTotals(pending, approved, fused uint64) {
	if m == nil {
		return
	}
	m.pending.Set(float64(pending))
	m.approved.Set(float64(approved))
	m.fused.Set(float64(fused))
}

// SetFeedDropped publishes the number of skipped feed deliveries.
func (m *LedgerMetrics) SetFeedDropped(dropped uint64) {
	if m == nil {
		return
	}
	m.dropped.Set(float64(dropped))
}

// RecordJournalAppend counts a journal write.
func (m *LedgerMetrics) RecordJournalAppend(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.journal.WithLabelValues(outcome).Inc()
}

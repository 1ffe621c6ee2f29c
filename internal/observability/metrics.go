package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Store operation outcomes used as the "outcome" label.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics instruments record store traffic. Labels are bounded:
//
//   - store:   "gym" or "chat"
//   - op:      repository operation name (e.g. "append_message")
//   - outcome: ok | not_found | error
//   - table:   table whose optimistic update lost a race
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ops       *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	conflicts *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered (useful in tests that read them directly).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gymclub",
				Name:      "store_operations_total",
				Help:      "Total number of record store operations.",
			},
			[]string{"store", "op", "outcome"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gymclub",
				Name:      "store_operation_duration_seconds",
				Help:      "Duration of record store operations in seconds.",
				// embedded SQLite: sub-millisecond to a few hundred ms under lock contention
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"store", "op"},
		),
		conflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gymclub",
				Name:      "store_write_conflicts_total",
				Help:      "Optimistic read-modify-write attempts rejected by a newer revision.",
			},
			[]string{"table"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.ops, m.latency, m.conflicts)
	}
	return m
}

// Observe records one finished operation.
func (m *Metrics) Observe(store, op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ops.WithLabelValues(store, op, outcome).Inc()
	m.latency.WithLabelValues(store, op).Observe(d.Seconds())
}

// Conflict records a lost optimistic update on table.
func (m *Metrics) Conflict(table string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(table).Inc()
}

// WriteTextfile dumps everything g gathers to path in the Prometheus text
// format, for pickup by a node_exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}

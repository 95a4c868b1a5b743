package materialize

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the materializer metrics.
type Metrics struct {
	Rewrites     *prometheus.CounterVec
	PassDuration *prometheus.HistogramVec
	Runs         *prometheus.CounterVec
}

// NewMetrics creates the materializer metrics and registers them with reg
// when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rewrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onto2schema",
				Subsystem: "materialize",
				Name:      "rewrites_total",
				Help:      "Total number of axiom rewrites by rule and outcome (applied, skipped, failed)",
			},
			[]string{"rule", "outcome"},
		),
		PassDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "onto2schema",
				Subsystem: "materialize",
				Name:      "pass_duration_seconds",
				Help:      "Duration of one rule batch in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"rule"},
		),
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onto2schema",
				Subsystem: "materialize",
				Name:      "runs_total",
				Help:      "Total number of materialization runs by kind",
			},
			[]string{"kind"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Rewrites, m.PassDuration, m.Runs)
	}
	return m
}

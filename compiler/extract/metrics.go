package extract

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the extractor metrics.
type Metrics struct {
	Classes  *prometheus.CounterVec
	Duration prometheus.Histogram
}

// NewMetrics creates the extractor metrics and registers them with reg when
// it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Classes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onto2schema",
				Subsystem: "extract",
				Name:      "classes_total",
				Help:      "Total number of requested classes by outcome (extracted, missing, ambiguous)",
			},
			[]string{"outcome"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "onto2schema",
				Subsystem: "extract",
				Name:      "duration_seconds",
				Help:      "Duration of one extraction in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Classes, m.Duration)
	}
	return m
}

func (m *Metrics) observe(outcome string, n int) {
	if m != nil && n > 0 {
		m.Classes.WithLabelValues(outcome).Add(float64(n))
	}
}

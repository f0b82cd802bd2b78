package solver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsPrefix = "rtchains_solver_"

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeSkipped = "skipped"
)

type Metrics struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics creates the solver metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricsPrefix + "runs_total",
				Help: "Number of solver runs by outcome",
			},
			[]string{"outcome"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricsPrefix + "run_duration_seconds",
				Help:    "Wall-clock time of a single solver run",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
			},
		),
	}
}

// RecordRun counts one run. Skipped runs have no duration.
func (m *Metrics) RecordRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if outcome != outcomeSkipped {
		m.duration.Observe(duration.Seconds())
	}
}

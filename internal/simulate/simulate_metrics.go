package simulate

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SimulationsTotal counts completed simulation runs.
	SimulationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "riskdesk",
			Name:      "simulations_total",
			Help:      "Total completed simulation runs.",
		},
	)

	// SimulationDuration observes end-to-end run latency.
	SimulationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "riskdesk",
			Name:      "simulation_duration_seconds",
			Help:      "Simulation run duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
	)

	// SimulationRecords observes how many records each run scored.
	SimulationRecords = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "riskdesk",
			Name:      "simulation_records",
			Help:      "Records scored per simulation run.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		},
	)
)

func init() {
	prometheus.MustRegister(
		SimulationsTotal,
		SimulationDuration,
		SimulationRecords,
	)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	sweepOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rf",
			Subsystem: "discovery",
			Name:      "sweep_outcomes_total",
			Help:      "A counter for the reconciliation outcomes of discovery sweeps.",
		},
		[]string{"vendor", "outcome"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rf",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "A counter for committed lifecycle transitions.",
		},
		[]string{"kind", "old", "new"},
	)

	stateDistribution = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "rf",
			Subsystem: "inventory",
			Name:      "entity_states",
			Help:      "The current number of managed entities per lifecycle state.",
		},
		[]string{"kind", "state"},
	)
)

func init() {
	prometheus.MustRegister(sweepOutcomes, transitions, stateDistribution)
}

// CountSweepOutcome counts one reconciliation outcome of a discovery sweep.
func CountSweepOutcome(vendor, outcome string) {
	sweepOutcomes.WithLabelValues(vendor, outcome).Inc()
}

// CountTransition counts one committed lifecycle transition.
func CountTransition(kind, old, new string) {
	transitions.WithLabelValues(kind, old, new).Inc()
}

// ProvideStateDistribution provides the given state counts as gauges so a
// scraper can collect them.
func ProvideStateDistribution(kind string, states map[string]int) {
	for state, count := range states {
		stateDistribution.WithLabelValues(kind, state).Set(float64(count))
	}
}

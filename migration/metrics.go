package migration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// transitionsTotal counts executed transitions by plan, migration type and outcome.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "migration_transitions_total",
		Help: "Total number of executed migration transitions by plan, migration type and outcome",
	}, []string{"plan", "migration", "outcome"})

	// transitionDuration tracks the run time of single migrations.
	transitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "migration_transition_duration_seconds",
		Help:    "Duration of single migrations by plan and migration type",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
	}, []string{"plan", "migration"})

	// planDuration tracks end-to-end plan execution time.
	planDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "migration_plan_duration_seconds",
		Help:    "Duration of migration plan execution by plan and outcome",
		Buckets: []float64{0.1, 0.5, 1, 5, 30, 120, 600, 1800},
	}, []string{"plan", "outcome"})
)

func outcome(err error) string {
	if err != nil {
		return "error"
	}

	return "success"
}

func sanitizePlan(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}

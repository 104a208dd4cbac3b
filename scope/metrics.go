package scope

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// scopesCreated counts scopes by kind (root, nested, detached).
	scopesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uow_scopes_created_total",
		Help: "Total number of scopes created by kind (root, nested or detached)",
	}, []string{"kind"})

	// scopeCompletions counts root scope disposals by outcome.
	scopeCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uow_scope_completions_total",
		Help: "Total number of root scope disposals by kind and outcome (committed, aborted or error)",
	}, []string{"kind", "outcome"})

	// rootScopeDuration tracks the lifetime of root scopes.
	rootScopeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "uow_root_scope_duration_seconds",
		Help:    "Lifetime of root scopes from creation to disposal by outcome",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"outcome"})

	// enlistmentFailures counts failed or panicking completion actions.
	enlistmentFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "uow_enlistment_failures_total",
		Help: "Total number of enlisted completion actions that failed or panicked",
	})
)

package libkhova

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Labels: outcome (completed, cached, cancelled, failed)
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "khova",
		Subsystem: "driver",
		Name:      "runs_total",
		Help:      "Total homology computations by outcome",
	}, []string{"outcome"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "khova",
		Subsystem: "driver",
		Name:      "run_duration_seconds",
		Help:      "Wall time of homology computations that ran to completion",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
	})

	resolutionsTraced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "khova",
		Subsystem: "driver",
		Name:      "resolutions_traced_total",
		Help:      "Total resolutions traced while enumerating generators",
	})

	differentialsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "khova",
		Subsystem: "driver",
		Name:      "differentials_built_total",
		Help:      "Total differential matrices built",
	})

	solverSubmissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "khova",
		Subsystem: "driver",
		Name:      "solver_submissions_total",
		Help:      "Total complexes handed to a homology solver",
	})
)

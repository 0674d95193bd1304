// Package metrics declares the prometheus collectors of the cohort engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcomes
const (
	OutcomeComplete   = "complete"
	OutcomeDegraded   = "degraded"
	OutcomeSuperseded = "superseded"
	OutcomeInvalid    = "invalid"
)

var (
	// Resolutions counts cohort resolutions by outcome
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cohort_resolutions_total",
		Help: "Total cohort resolutions by outcome",
	}, []string{"outcome"})

	// ResolutionDuration tracks end-to-end resolution latency
	ResolutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cohort_resolution_duration_seconds",
		Help:    "Cohort resolution duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
	})

	// CohortPatients tracks resolved cohort sizes
	CohortPatients = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cohort_patients",
		Help:    "Number of patients in resolved cohorts",
		Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000, 5000},
	})

	// GraphQueries counts graph round trips by result
	GraphQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cohort_graph_queries_total",
		Help: "Total graph store round trips by result",
	}, []string{"result"})

	// GraphQueryDuration tracks graph round trip latency
	GraphQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cohort_graph_query_duration_seconds",
		Help:    "Graph store round trip duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	// MemoLookups counts memo hits and misses per store
	MemoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cohort_memo_lookups_total",
		Help: "Resolver memo lookups by store and result",
	}, []string{"store", "result"})

	// SurvivalFits counts survival estimations by stratification key
	SurvivalFits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cohort_survival_fits_total",
		Help: "Total survival estimations by stratification key",
	}, []string{"key"})
)

// Package cohort resolves predicate snapshots into patient cohorts and the
// views derived from them.
package cohort

import (
	"context"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/graph"
	"github.com/tso500-cohort-explorer/internal/metrics"
	"github.com/tso500-cohort-explorer/internal/predicate"
	"github.com/tso500-cohort-explorer/internal/tabular"
)

// DefaultMemoSize bounds each of the resolver's memos
const DefaultMemoSize = 256

// DegradedWarning is attached to results resolved without the graph store
const DegradedWarning = "graph store unavailable: relationship filters were not applied"

// Result is one resolved cohort
type Result struct {
	Key       string            `json:"key"`
	Patients  []int64           `json:"patients"`
	Rows      []domain.Row      `json:"-"`
	Degraded  bool              `json:"degraded"`
	Unapplied []predicate.Field `json:"unapplied,omitempty"`
	Warning   string            `json:"warning,omitempty"`
}

// Resolver intersects the tabular and graph outputs of a snapshot. Each side
// is memoized by its own sub-snapshot key, so changing only a tabular control
// never re-queries the graph store and vice versa.
type Resolver struct {
	tabular   *tabular.Filter
	graph     *graph.Filter
	tabMemo   *lru.Cache[string, tabular.Result]
	graphMemo *lru.Cache[string, graph.Constraint]
	logger    *logrus.Logger
}

// NewResolver creates a resolver; memoSize <= 0 uses DefaultMemoSize
func NewResolver(tab *tabular.Filter, g *graph.Filter, memoSize int, logger *logrus.Logger) (*Resolver, error) {
	if memoSize <= 0 {
		memoSize = DefaultMemoSize
	}
	tabMemo, err := lru.New[string, tabular.Result](memoSize)
	if err != nil {
		return nil, err
	}
	graphMemo, err := lru.New[string, graph.Constraint](memoSize)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		tabular:   tab,
		graph:     g,
		tabMemo:   tabMemo,
		graphMemo: graphMemo,
		logger:    logger,
	}, nil
}

// Table returns the tabular snapshot behind the resolver
func (r *Resolver) Table() *tabular.Table { return r.tabular.Table() }

// Resolve computes the cohort of a snapshot. Graph unavailability degrades to
// tabular-only filtering; cancellation of ctx is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, set predicate.Set) (*Result, error) {
	start := time.Now()
	if err := set.Validate(); err != nil {
		metrics.Resolutions.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	tab := r.resolveTabular(set)
	result := &Result{Key: set.Key()}

	constraint, err := r.resolveGraph(ctx, set)
	if err != nil {
		if ctx.Err() != nil || !errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, err
		}
		result.Degraded = true
		result.Unapplied = set.ActiveRelationships()
		result.Warning = DegradedWarning
		constraint = graph.Unconstrained()
		r.logger.WithFields(logrus.Fields{
			"key":       result.Key,
			"unapplied": result.Unapplied,
		}).WithError(err).Warn("Resolving cohort without relationship filters")
	}

	patients := constraint.Apply(tab.Patients)
	result.Patients = patients.Sorted()
	if constraint.Unconstrained {
		result.Rows = tab.Rows
	} else {
		result.Rows = make([]domain.Row, 0, len(tab.Rows))
		for _, row := range tab.Rows {
			if patients.Contains(row.MRN) {
				result.Rows = append(result.Rows, row)
			}
		}
	}

	outcome := metrics.OutcomeComplete
	if result.Degraded {
		outcome = metrics.OutcomeDegraded
	}
	metrics.Resolutions.WithLabelValues(outcome).Inc()
	metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	metrics.CohortPatients.Observe(float64(len(result.Patients)))

	r.logger.WithFields(logrus.Fields{
		"key":      result.Key,
		"patients": len(result.Patients),
		"rows":     len(result.Rows),
		"degraded": result.Degraded,
		"elapsed":  time.Since(start).String(),
	}).Debug("Cohort resolved")
	return result, nil
}

func (r *Resolver) resolveTabular(set predicate.Set) tabular.Result {
	key := set.TabularKey()
	if cached, ok := r.tabMemo.Get(key); ok {
		metrics.MemoLookups.WithLabelValues("tabular", "hit").Inc()
		return cached
	}
	metrics.MemoLookups.WithLabelValues("tabular", "miss").Inc()
	res := r.tabular.Apply(set)
	r.tabMemo.Add(key, res)
	return res
}

// resolveGraph memoizes successful traversals only
func (r *Resolver) resolveGraph(ctx context.Context, set predicate.Set) (graph.Constraint, error) {
	t := r.graph.Traversal(set)
	if !t.HasRelationships() {
		return graph.Unconstrained(), nil
	}
	key := t.Key()
	if cached, ok := r.graphMemo.Get(key); ok {
		metrics.MemoLookups.WithLabelValues("graph", "hit").Inc()
		return cached, nil
	}
	metrics.MemoLookups.WithLabelValues("graph", "miss").Inc()
	constraint, err := r.graph.Run(ctx, t)
	if err != nil {
		return graph.Constraint{}, err
	}
	r.graphMemo.Add(key, constraint)
	return constraint, nil
}

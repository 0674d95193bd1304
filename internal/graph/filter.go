package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/metrics"
	"github.com/tso500-cohort-explorer/internal/predicate"
)

// Store answers traversals with the distinct MRNs satisfying every hop
type Store interface {
	MatchPatients(ctx context.Context, t Traversal) ([]int64, error)
	RelationshipTypes(ctx context.Context) ([]string, error)
	Close(ctx context.Context) error
}

// Constraint is the graph side of a resolution. An unconstrained result
// behaves as the universal set when intersected.
type Constraint struct {
	Unconstrained bool
	Patients      domain.PatientSet
}

// Unconstrained is returned when no relationship predicate is active
func Unconstrained() Constraint {
	return Constraint{Unconstrained: true}
}

// Apply restricts a patient set by the constraint
func (c Constraint) Apply(patients domain.PatientSet) domain.PatientSet {
	if c.Unconstrained {
		return patients
	}
	return patients.Intersect(c.Patients)
}

// DefaultQueryTimeout bounds one graph round trip
const DefaultQueryTimeout = 5 * time.Second

// Filter turns predicate snapshots into single graph round trips
type Filter struct {
	store        Store
	demographics bool
	timeout      time.Duration
	logger       *logrus.Logger
}

// NewFilter creates a graph filter over store
func NewFilter(store Store, demographics bool, timeout time.Duration, logger *logrus.Logger) *Filter {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	return &Filter{store: store, demographics: demographics, timeout: timeout, logger: logger}
}

// Traversal composes the traversal for a snapshot
func (f *Filter) Traversal(set predicate.Set) Traversal {
	return NewTraversal(set, f.demographics)
}

// Apply evaluates the snapshot's relationship predicates
func (f *Filter) Apply(ctx context.Context, set predicate.Set) (Constraint, error) {
	return f.Run(ctx, f.Traversal(set))
}

// Run evaluates a composed traversal. Store failures and timeouts are
// reported as domain.ErrStoreUnavailable; cancellation of ctx itself is returned as is.
func (f *Filter) Run(ctx context.Context, t Traversal) (Constraint, error) {
	if !t.HasRelationships() {
		return Unconstrained(), nil
	}
	if t.Unsatisfiable() {
		return Constraint{Patients: domain.PatientSet{}}, nil
	}

	queryCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	mrns, err := f.store.MatchPatients(queryCtx, t)
	metrics.GraphQueryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			metrics.GraphQueries.WithLabelValues("cancelled").Inc()
			return Constraint{}, ctx.Err()
		}
		metrics.GraphQueries.WithLabelValues("unavailable").Inc()
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		f.logger.WithFields(logrus.Fields{
			"traversal": t.Key(),
			"elapsed":   time.Since(start).String(),
		}).WithError(err).Warn("Graph traversal failed")
		return Constraint{}, err
	}

	metrics.GraphQueries.WithLabelValues("ok").Inc()
	f.logger.WithFields(logrus.Fields{
		"traversal": t.Key(),
		"patients":  len(mrns),
		"elapsed":   time.Since(start).String(),
	}).Debug("Graph traversal completed")

	return Constraint{Patients: domain.NewPatientSet(mrns...)}, nil
}

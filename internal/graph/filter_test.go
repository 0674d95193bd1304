package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/predicate"
)

func TestFilterNoRelationshipPredicatesIsUnconstrained(t *testing.T) {
	store := &fakeStore{}
	filter := NewFilter(store, true, time.Second, testLogger())

	constraint, err := filter.Apply(context.Background(), predicate.Default().WithSex(domain.SexMale))

	require.NoError(t, err)
	assert.True(t, constraint.Unconstrained)
	assert.Equal(t, 0, store.callCount())

	all := domain.NewPatientSet(1, 2, 3)
	assert.Equal(t, all, constraint.Apply(all))
}

func TestFilterIssuesSingleRoundTrip(t *testing.T) {
	store := &fakeStore{mrns: []int64{7, 3}}
	filter := NewFilter(store, true, time.Second, testLogger())
	set := predicate.Default().WithSex(domain.SexFemale).WithProtocol("PROT_002").WithIntervention("Chemotherapy").WithMinGrade(3)

	constraint, err := filter.Apply(context.Background(), set)

	require.NoError(t, err)
	assert.False(t, constraint.Unconstrained)
	assert.Equal(t, []int64{3, 7}, constraint.Patients.Sorted())
	assert.Equal(t, 1, store.callCount())
	assert.Equal(t, "PROT_002", store.last.ProtocolID)
	assert.Equal(t, "Chemotherapy", store.last.InterventionCategory)
	assert.Equal(t, []domain.Sex{domain.SexFemale}, store.last.Sexes)
}

func TestFilterUnsatisfiableSkipsStore(t *testing.T) {
	store := &fakeStore{mrns: []int64{1}}
	filter := NewFilter(store, true, time.Second, testLogger())

	constraint, err := filter.Apply(context.Background(), predicate.Default().WithGrades())

	require.NoError(t, err)
	assert.False(t, constraint.Unconstrained)
	assert.Empty(t, constraint.Patients)
	assert.Equal(t, 0, store.callCount())
	assert.Empty(t, constraint.Apply(domain.NewPatientSet(1, 2)))
}

func TestFilterStoreErrorIsUnavailable(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	filter := NewFilter(store, true, time.Second, testLogger())

	_, err := filter.Apply(context.Background(), predicate.Default().WithProtocol("PROT_001"))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFilterTimeoutIsUnavailable(t *testing.T) {
	store := &fakeStore{block: true}
	filter := NewFilter(store, true, 20*time.Millisecond, testLogger())

	start := time.Now()
	_, err := filter.Apply(context.Background(), predicate.Default().WithProtocol("PROT_001"))

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFilterCallerCancellationIsNotUnavailability(t *testing.T) {
	store := &fakeStore{block: true}
	filter := NewFilter(store, true, time.Minute, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := filter.Apply(ctx, predicate.Default().WithProtocol("PROT_001"))

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
}

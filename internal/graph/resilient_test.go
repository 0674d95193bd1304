package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/predicate"
)

func TestResilientStorePassesThrough(t *testing.T) {
	inner := &fakeStore{mrns: []int64{4, 5}}
	store := NewResilientStore(inner, domain.CircuitBreakerConfig{}, testLogger())

	mrns, err := store.MatchPatients(context.Background(), NewTraversal(predicate.Default().WithProtocol("P"), true))

	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, mrns)
	assert.Equal(t, "closed", store.State())
}

func TestResilientStoreOpensAfterFailures(t *testing.T) {
	// Arrange
	inner := &fakeStore{err: errors.New("connection refused")}
	store := NewResilientStore(inner, domain.CircuitBreakerConfig{MinRequests: 3, FailureRatio: 0.6}, testLogger())
	traversal := NewTraversal(predicate.Default().WithProtocol("P"), true)

	// Act
	for i := 0; i < 3; i++ {
		_, err := store.MatchPatients(context.Background(), traversal)
		require.Error(t, err)
	}
	_, err := store.MatchPatients(context.Background(), traversal)

	// Assert
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, 3, inner.callCount(), "an open breaker must not reach the store")
	assert.Equal(t, "open", store.State())
}

func TestResilientStoreIgnoresCancellation(t *testing.T) {
	inner := &fakeStore{err: context.Canceled}
	store := NewResilientStore(inner, domain.CircuitBreakerConfig{}, testLogger())
	traversal := NewTraversal(predicate.Default().WithProtocol("P"), true)

	for i := 0; i < 5; i++ {
		_, err := store.MatchPatients(context.Background(), traversal)
		assert.ErrorIs(t, err, context.Canceled)
	}

	assert.Equal(t, "closed", store.State())
	assert.Equal(t, 5, inner.callCount())
}

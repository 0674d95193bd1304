package cohort

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/tso500-cohort-explorer/internal/clinical"
	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/fixture"
	"github.com/tso500-cohort-explorer/internal/graph"
	"github.com/tso500-cohort-explorer/internal/survival"
	"github.com/tso500-cohort-explorer/internal/tabular"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// countingStore wraps a store, counting round trips and optionally failing them
type countingStore struct {
	inner graph.Store
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingStore) MatchPatients(ctx context.Context, t graph.Traversal) ([]int64, error) {
	c.mu.Lock()
	c.calls++
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.inner.MatchPatients(ctx, t)
}

func (c *countingStore) RelationshipTypes(ctx context.Context) ([]string, error) {
	return c.inner.RelationshipTypes(ctx)
}

func (c *countingStore) Close(ctx context.Context) error { return nil }

func (c *countingStore) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *countingStore) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

type testEnv struct {
	data     *fixture.Dataset
	table    *tabular.Table
	index    *clinical.Index
	store    *countingStore
	resolver *Resolver
	service  *Service
}

func createTestEnv(t *testing.T, patients int) *testEnv {
	t.Helper()
	data := fixture.Generate(fixture.Options{Patients: patients, Seed: 3})
	table := tabular.NewTable(tabular.Columns, data.Patients, data.Variants)
	index := clinical.NewIndex(data.Patients, data.Clinical)
	store := &countingStore{inner: graph.NewMemoryStore(data.Patients, index)}

	filter, err := tabular.NewFilter(table)
	require.NoError(t, err)
	resolver, err := NewResolver(filter, graph.NewFilter(store, false, time.Second, testLogger()), 16, testLogger())
	require.NoError(t, err)

	service := NewService(resolver, index, survival.NewEstimator(survival.DefaultTable(), index), domain.CohortConfig{}, testLogger())
	return &testEnv{data: data, table: table, index: index, store: store, resolver: resolver, service: service}
}

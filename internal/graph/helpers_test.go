package graph

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeStore records calls and returns canned results
type fakeStore struct {
	mu        sync.Mutex
	calls     int
	last      Traversal
	mrns      []int64
	err       error
	block     bool
	relations []string
}

func (f *fakeStore) MatchPatients(ctx context.Context, t Traversal) ([]int64, error) {
	f.mu.Lock()
	f.calls++
	f.last = t
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.mrns, f.err
}

func (f *fakeStore) RelationshipTypes(ctx context.Context) ([]string, error) {
	return f.relations, f.err
}

func (f *fakeStore) Close(ctx context.Context) error { return nil }

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// ResilientStore wraps a Store with a circuit breaker so a failing graph
// database is skipped quickly instead of costing a full timeout per resolution.
type ResilientStore struct {
	inner   Store
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewResilientStore creates the breaker from cfg, falling back to the
// classifier-style defaults for unset fields.
func NewResilientStore(inner Store, cfg domain.CircuitBreakerConfig, logger *logrus.Logger) *ResilientStore {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 5
	}
	if cfg.Interval == 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 3
	}
	if cfg.FailureRatio == 0 {
		cfg.FailureRatio = 0.6
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "graph-store",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio
		},
		// A resolution cancelled because a newer snapshot arrived says nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientStore{inner: inner, breaker: breaker, logger: logger}
}

// MatchPatients runs the traversal through the breaker
func (r *ResilientStore) MatchPatients(ctx context.Context, t Traversal) ([]int64, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.inner.MatchPatients(ctx, t)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit breaker %s", domain.ErrStoreUnavailable, r.breaker.State())
		}
		return nil, err
	}
	return result.([]int64), nil
}

// RelationshipTypes bypasses the breaker; it only runs at startup
func (r *ResilientStore) RelationshipTypes(ctx context.Context) ([]string, error) {
	return r.inner.RelationshipTypes(ctx)
}

// Close closes the wrapped store
func (r *ResilientStore) Close(ctx context.Context) error {
	return r.inner.Close(ctx)
}

// State reports the breaker state for health checks
func (r *ResilientStore) State() string {
	return r.breaker.State().String()
}

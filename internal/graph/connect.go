package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// DefaultConnectTimeout bounds the startup connectivity retries
const DefaultConnectTimeout = 30 * time.Second

// Connect creates a Bolt store and retries connectivity with exponential
// backoff. When the server stays unreachable the store is still returned,
// together with an error wrapping domain.ErrStoreUnavailable, so the engine
// can start degraded and recover once the server comes up.
func Connect(ctx context.Context, cfg domain.GraphConfig, logger *logrus.Logger) (*BoltStore, error) {
	store, err := NewBoltStore(cfg, logger)
	if err != nil {
		return nil, domain.NewConfigurationError("graph", err.Error())
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = cfg.ConnectTimeout
	if policy.MaxElapsedTime <= 0 {
		policy.MaxElapsedTime = DefaultConnectTimeout
	}

	attempt := 0
	err = backoff.RetryNotify(
		func() error {
			attempt++
			return store.VerifyConnectivity(ctx)
		},
		backoff.WithContext(policy, ctx),
		func(err error, next time.Duration) {
			logger.WithFields(logrus.Fields{
				"uri":      cfg.URI,
				"attempt":  attempt,
				"retry_in": next.String(),
			}).WithError(err).Warn("Graph store not reachable yet")
		},
	)
	if err != nil {
		return store, fmt.Errorf("%w: %s after %d attempts: %v", domain.ErrStoreUnavailable, cfg.URI, attempt, err)
	}

	logger.WithFields(logrus.Fields{
		"uri":      cfg.URI,
		"attempts": attempt,
	}).Info("Graph store connection established")
	return store, nil
}

// VerifySchema checks that every relationship type traversals rely on exists.
// A missing type is a configuration error; an unreachable store is not.
func VerifySchema(ctx context.Context, store Store) error {
	types, err := store.RelationshipTypes(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	present := make(map[string]bool, len(types))
	for _, t := range types {
		present[t] = true
	}
	var missing []string
	for _, required := range RequiredRelationships {
		if !present[required] {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return domain.NewConfigurationError("graph", "relationship types missing from store", missing...)
	}
	return nil
}

package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// NewCacheClient creates a redis client from configuration and pings it
func NewCacheClient(ctx context.Context, config domain.CacheConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// CachedStore memoizes traversal results in redis across processes.
// Entries are namespaced by dataset version so a reload never serves stale cohorts.
type CachedStore struct {
	inner   Store
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	version string
	logger  *logrus.Logger
}

// cachedResult is the stored form of one traversal result
type cachedResult struct {
	MRNs     []int64   `json:"mrns"`
	CachedAt time.Time `json:"cached_at"`
}

// NewCachedStore wraps inner with a redis cache
func NewCachedStore(inner Store, client *redis.Client, config domain.CacheConfig, version string, logger *logrus.Logger) *CachedStore {
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = "cohort:graph:"
	}
	ttl := config.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedStore{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		prefix:  prefix,
		version: version,
		logger:  logger,
	}
}

func (c *CachedStore) key(t Traversal) string {
	sum := sha256.Sum256([]byte(t.Key()))
	return c.prefix + c.version + ":" + hex.EncodeToString(sum[:])
}

// MatchPatients serves from redis when possible. Redis failures fall through to the inner store.
func (c *CachedStore) MatchPatients(ctx context.Context, t Traversal) ([]int64, error) {
	key := c.key(t)

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cached cachedResult
		if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
			return cached.MRNs, nil
		}
		// corrupted entry
		c.client.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		c.logger.WithError(err).Warn("Graph cache read failed")
	}

	mrns, err := c.inner.MatchPatients(ctx, t)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(cachedResult{MRNs: mrns, CachedAt: time.Now().UTC()})
	if err == nil {
		if setErr := c.client.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			c.logger.WithError(setErr).Warn("Graph cache write failed")
		}
	}
	return mrns, nil
}

// RelationshipTypes is never cached
func (c *CachedStore) RelationshipTypes(ctx context.Context) ([]string, error) {
	return c.inner.RelationshipTypes(ctx)
}

// Close closes the inner store and the redis client
func (c *CachedStore) Close(ctx context.Context) error {
	innerErr := c.inner.Close(ctx)
	if err := c.client.Close(); err != nil && innerErr == nil {
		return fmt.Errorf("closing redis client: %w", err)
	}
	return innerErr
}

package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// BoltStore runs traversals against Memgraph or Neo4j over Bolt
type BoltStore struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *logrus.Logger
}

// NewBoltStore creates a driver for cfg.URI. No connection is made until first use.
func NewBoltStore(cfg domain.GraphConfig, logger *logrus.Logger) (*BoltStore, error) {
	auth := neo4j.NoAuth()
	if cfg.Username != "" {
		auth = neo4j.BasicAuth(cfg.Username, cfg.Password, "")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("creating bolt driver for %s: %w", cfg.URI, err)
	}
	return &BoltStore{driver: driver, database: cfg.Database, logger: logger}, nil
}

// VerifyConnectivity checks that the server is reachable
func (b *BoltStore) VerifyConnectivity(ctx context.Context) error {
	return b.driver.VerifyConnectivity(ctx)
}

func (b *BoltStore) queryOptions() []neo4j.ExecuteQueryConfigurationOption {
	if b.database == "" {
		return nil
	}
	return []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithDatabase(b.database)}
}

// MatchPatients executes the traversal as one query
func (b *BoltStore) MatchPatients(ctx context.Context, t Traversal) ([]int64, error) {
	query, params := t.Cypher()
	result, err := neo4j.ExecuteQuery(ctx, b.driver, query, params, neo4j.EagerResultTransformer, b.queryOptions()...)
	if err != nil {
		return nil, fmt.Errorf("executing traversal: %w", err)
	}

	mrns := make([]int64, 0, len(result.Records))
	for _, record := range result.Records {
		mrn, isNil, err := neo4j.GetRecordValue[int64](record, "mrn")
		if err != nil {
			return nil, fmt.Errorf("reading mrn: %w", err)
		}
		if isNil {
			continue
		}
		mrns = append(mrns, mrn)
	}
	return mrns, nil
}

// RelationshipTypes lists the relationship types present in the graph
func (b *BoltStore) RelationshipTypes(ctx context.Context) ([]string, error) {
	result, err := neo4j.ExecuteQuery(ctx, b.driver,
		"MATCH ()-[r]->() RETURN DISTINCT type(r) AS rel_type", nil,
		neo4j.EagerResultTransformer, b.queryOptions()...)
	if err != nil {
		return nil, fmt.Errorf("listing relationship types: %w", err)
	}

	types := make([]string, 0, len(result.Records))
	for _, record := range result.Records {
		relType, _, err := neo4j.GetRecordValue[string](record, "rel_type")
		if err != nil {
			return nil, fmt.Errorf("reading relationship type: %w", err)
		}
		types = append(types, relType)
	}
	return types, nil
}

// Close releases the driver's connections
func (b *BoltStore) Close(ctx context.Context) error {
	if err := b.driver.Close(ctx); err != nil {
		return fmt.Errorf("closing bolt driver: %w", err)
	}
	b.logger.Info("Graph store connection closed")
	return nil
}

// Package app assembles the cohort engine from configuration. It is shared by
// the HTTP server, the MCP server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/cohort"
	"github.com/tso500-cohort-explorer/internal/config"
	"github.com/tso500-cohort-explorer/internal/database"
	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/graph"
	"github.com/tso500-cohort-explorer/internal/loader"
	"github.com/tso500-cohort-explorer/internal/repository"
	"github.com/tso500-cohort-explorer/internal/survival"
	"github.com/tso500-cohort-explorer/internal/tabular"
)

// Graph store status after startup
const (
	GraphReady    = "ready"
	GraphDegraded = "degraded"
)

// App is a fully wired engine over one loaded dataset
type App struct {
	Config  *domain.Config
	Logger  *logrus.Logger
	Dataset *loader.Dataset
	Service *cohort.Service
	// Breaker is nil unless the graph store is remote.
	Breaker *graph.ResilientStore
	// GraphStatus is GraphDegraded when the graph store was unreachable at startup.
	GraphStatus string

	store graph.Store
}

// LoadConfig reads configuration from path, or from the default search path when path is empty
func LoadConfig(path string) (*domain.Config, error) {
	var (
		manager *config.Manager
		err     error
	)
	if path == "" {
		manager, err = config.NewManager()
	} else {
		manager, err = config.NewManagerFromFile(path)
	}
	if err != nil {
		return nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, err
	}
	return manager.GetConfig(), nil
}

// New loads the tabular dataset, connects the graph store and builds the cohort service.
// Configuration errors are fatal; an unreachable graph store is not.
func New(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, GraphStatus: GraphReady}

	dataset, err := a.loadDataset(ctx)
	if err != nil {
		return nil, err
	}
	a.Dataset = dataset

	if err := a.connectGraph(ctx); err != nil {
		a.Close()
		return nil, err
	}

	tab, err := tabular.NewFilter(dataset.Table)
	if err != nil {
		a.Close()
		return nil, err
	}
	graphFilter := graph.NewFilter(a.store, cfg.Graph.Demographics, cfg.Graph.QueryTimeout, logger)

	resolver, err := cohort.NewResolver(tab, graphFilter, cfg.Cohort.MemoSize, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	table, err := survivalTable(cfg.Survival)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Service = cohort.NewService(resolver, dataset.Clinical, survival.NewEstimator(table, dataset.Clinical), cfg.Cohort, logger)

	logger.WithFields(logrus.Fields{
		"tabular":  cfg.Tabular.Driver,
		"graph":    cfg.Graph.Driver,
		"status":   a.GraphStatus,
		"patients": len(dataset.Table.Patients()),
		"records":  dataset.Table.Len(),
		"version":  dataset.Version,
	}).Info("Cohort engine ready")
	return a, nil
}

// OpenSource opens the configured tabular store
func OpenSource(ctx context.Context, cfg domain.TabularConfig, logger *logrus.Logger) (domain.TabularSource, error) {
	tables := repository.WithDefaults(cfg.Tables)
	if err := repository.ValidateTableNames(tables); err != nil {
		return nil, err
	}

	switch cfg.Driver {
	case domain.TabularDriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		return repository.NewSQLSource(db, tables, logger), nil
	case domain.TabularDriverPostgres:
		db, err := database.NewConnection(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		return repository.NewPgSource(db, tables, logger), nil
	}
	return nil, domain.NewConfigurationError("tabular", fmt.Sprintf("unknown driver %q", cfg.Driver))
}

func (a *App) loadDataset(ctx context.Context) (*loader.Dataset, error) {
	source, err := OpenSource(ctx, a.Config.Tabular, a.Logger)
	if err != nil {
		return nil, err
	}
	// The dataset is held in memory; the store is not read again.
	defer func() {
		if err := source.Close(); err != nil {
			a.Logger.WithError(err).Warn("Failed to close tabular store")
		}
	}()
	return loader.Load(ctx, source, a.Logger)
}

func (a *App) connectGraph(ctx context.Context) error {
	cfg := a.Config.Graph

	switch cfg.Driver {
	case domain.GraphDriverMemory:
		a.store = graph.NewMemoryStore(a.Dataset.Table.Patients(), a.Dataset.Clinical)
		return nil
	case domain.GraphDriverBolt:
	default:
		return domain.NewConfigurationError("graph", fmt.Sprintf("unknown driver %q", cfg.Driver))
	}

	bolt, err := graph.Connect(ctx, cfg, a.Logger)
	if err != nil && !errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	if err == nil {
		err = graph.VerifySchema(ctx, bolt)
		if domain.IsConfigurationError(err) {
			_ = bolt.Close(context.Background())
			return err
		}
	}
	if err != nil {
		a.GraphStatus = GraphDegraded
		a.Logger.WithError(err).Warn("Starting without graph store; relationship filters will be degraded")
	}

	a.Breaker = graph.NewResilientStore(bolt, cfg.Breaker, a.Logger)
	a.store = a.Breaker

	if a.Config.Cache.Enabled {
		client, err := graph.NewCacheClient(ctx, a.Config.Cache)
		if err != nil {
			a.Logger.WithError(err).Warn("Graph result cache disabled")
			return nil
		}
		a.store = graph.NewCachedStore(a.store, client, a.Config.Cache, a.Dataset.Version, a.Logger)
	}
	return nil
}

func survivalTable(cfg domain.SurvivalConfig) (*survival.Table, error) {
	table := survival.DefaultTable()
	if cfg.ParamsFile != "" {
		loaded, err := survival.LoadTable(cfg.ParamsFile)
		if err != nil {
			return nil, err
		}
		table = loaded
	}
	if cfg.Seed != 0 {
		table.Seed = cfg.Seed
	}
	if cfg.MaxStrata > 0 {
		table.MaxStrata = cfg.MaxStrata
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// Close releases the graph store, including its cache client
func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.store != nil {
		if err := a.store.Close(ctx); err != nil {
			a.Logger.WithError(err).Warn("Failed to close graph store")
		}
	}
}

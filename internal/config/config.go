// Package config loads the engine configuration from file, environment and defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/repository"
)

// EnvPrefix prefixes every environment override, e.g. COHORT_GRAPH_URI
const EnvPrefix = "COHORT"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	config *domain.Config
}

var _ domain.ConfigManager = (*Manager)(nil)

// NewManager loads config.yaml from the standard search paths
func NewManager() (*Manager, error) {
	return NewManagerFromFile("")
}

// NewManagerFromFile loads the given file instead of searching; "" searches
func NewManagerFromFile(path string) (*Manager, error) {
	m := &Manager{v: viper.New()}
	if err := m.loadConfig(path); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig(path string) error {
	v := m.v
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/cohort-explorer/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// The file is optional when searching; defaults and environment suffice.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults registers every key so environment overrides bind during Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Tabular store defaults
	v.SetDefault("tabular.driver", domain.TabularDriverSQLite)
	v.SetDefault("tabular.sqlite_path", "./data/cohort.db")
	v.SetDefault("tabular.postgres.host", "localhost")
	v.SetDefault("tabular.postgres.port", 5432)
	v.SetDefault("tabular.postgres.database", "tso500")
	v.SetDefault("tabular.postgres.username", "postgres")
	v.SetDefault("tabular.postgres.password", "")
	v.SetDefault("tabular.postgres.ssl_mode", "disable")
	v.SetDefault("tabular.postgres.max_conns", 10)
	v.SetDefault("tabular.postgres.min_conns", 1)
	v.SetDefault("tabular.postgres.conn_max_lifetime", "30m")
	v.SetDefault("tabular.postgres.conn_max_idle_time", "5m")
	v.SetDefault("tabular.tables.demographics", repository.DefaultDemographicsTable)
	v.SetDefault("tabular.tables.variants", repository.DefaultVariantsTable)
	v.SetDefault("tabular.tables.protocols", repository.DefaultProtocolsTable)
	v.SetDefault("tabular.tables.enrollments", repository.DefaultEnrollmentsTable)
	v.SetDefault("tabular.tables.interventions", repository.DefaultInterventionsTable)
	v.SetDefault("tabular.tables.adverse_events", repository.DefaultAdverseEventsTable)

	// Graph store defaults
	v.SetDefault("graph.driver", domain.GraphDriverMemory)
	v.SetDefault("graph.uri", "bolt://127.0.0.1:7687")
	v.SetDefault("graph.username", "")
	v.SetDefault("graph.password", "")
	v.SetDefault("graph.database", "")
	v.SetDefault("graph.query_timeout", "5s")
	v.SetDefault("graph.demographics", false)
	v.SetDefault("graph.connect_timeout", "30s")
	v.SetDefault("graph.breaker.max_requests", 5)
	v.SetDefault("graph.breaker.interval", "30s")
	v.SetDefault("graph.breaker.timeout", "60s")
	v.SetDefault("graph.breaker.min_requests", 3)
	v.SetDefault("graph.breaker.failure_ratio", 0.6)

	// Cache defaults
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.redis_url", "redis://localhost:6379")
	v.SetDefault("cache.default_ttl", "1h")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")
	v.SetDefault("cache.key_prefix", "cohort:graph:")

	// Cohort view defaults
	v.SetDefault("cohort.memo_size", 256)
	v.SetDefault("cohort.oncoprint_genes", 8)
	v.SetDefault("cohort.oncoprint_samples", 10)
	v.SetDefault("cohort.top_genes", 10)
	v.SetDefault("cohort.histogram_bins", 20)
	v.SetDefault("cohort.body_systems", 8)

	// Survival defaults
	v.SetDefault("survival.params_file", "")
	v.SetDefault("survival.seed", 42)
	v.SetDefault("survival.max_strata", 4)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetTabularConfig returns tabular store configuration
func (m *Manager) GetTabularConfig() *domain.TabularConfig {
	return &m.config.Tabular
}

// GetGraphConfig returns graph store configuration
func (m *Manager) GetGraphConfig() *domain.GraphConfig {
	return &m.config.Graph
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return domain.NewConfigurationError("server", fmt.Sprintf("invalid port: %d", config.Server.Port))
	}

	switch config.Tabular.Driver {
	case domain.TabularDriverSQLite:
		if config.Tabular.SQLitePath == "" {
			return domain.NewConfigurationError("tabular", "sqlite path is required", "tabular.sqlite_path")
		}
	case domain.TabularDriverPostgres:
		var missing []string
		if config.Tabular.Postgres.Host == "" {
			missing = append(missing, "tabular.postgres.host")
		}
		if config.Tabular.Postgres.Database == "" {
			missing = append(missing, "tabular.postgres.database")
		}
		if config.Tabular.Postgres.Username == "" {
			missing = append(missing, "tabular.postgres.username")
		}
		if len(missing) > 0 {
			return domain.NewConfigurationError("tabular", "postgres settings are required", missing...)
		}
	default:
		return domain.NewConfigurationError("tabular", fmt.Sprintf("unknown driver %q", config.Tabular.Driver))
	}
	if err := repository.ValidateTableNames(config.Tabular.Tables); err != nil {
		return domain.NewConfigurationError("tabular", err.Error())
	}

	switch config.Graph.Driver {
	case domain.GraphDriverMemory:
	case domain.GraphDriverBolt:
		u, err := url.Parse(config.Graph.URI)
		if err != nil || u.Host == "" {
			return domain.NewConfigurationError("graph", fmt.Sprintf("invalid uri %q", config.Graph.URI))
		}
	default:
		return domain.NewConfigurationError("graph", fmt.Sprintf("unknown driver %q", config.Graph.Driver))
	}
	if config.Graph.QueryTimeout <= 0 {
		return domain.NewConfigurationError("graph", "query timeout must be positive", "graph.query_timeout")
	}
	if r := config.Graph.Breaker.FailureRatio; r <= 0 || r > 1 {
		return domain.NewConfigurationError("graph", fmt.Sprintf("breaker failure ratio %v outside (0,1]", r))
	}

	if config.Cache.Enabled && config.Cache.RedisURL == "" {
		return domain.NewConfigurationError("cache", "redis url is required when the cache is enabled", "cache.redis_url")
	}
	if config.Survival.MaxStrata <= 0 {
		return domain.NewConfigurationError("survival", "max strata must be positive", "survival.max_strata")
	}
	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return domain.NewConfigurationError("rate_limit", "rate and burst must be positive")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return domain.NewConfigurationError("logging", fmt.Sprintf("invalid log level: %s", config.Logging.Level))
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Tabular     TabularConfig   `mapstructure:"tabular"`
	Graph       GraphConfig     `mapstructure:"graph"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Cohort      CohortConfig    `mapstructure:"cohort"`
	Survival    SurvivalConfig  `mapstructure:"survival"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Logging     LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Tabular drivers
const (
	TabularDriverSQLite   = "sqlite"
	TabularDriverPostgres = "postgres"
)

// TabularConfig locates the read-only demographic, variant and clinical tables
type TabularConfig struct {
	Driver     string         `mapstructure:"driver"`
	SQLitePath string         `mapstructure:"sqlite_path"`
	Postgres   DatabaseConfig `mapstructure:"postgres"`
	Tables     TableNames     `mapstructure:"tables"`
}

// TableNames maps logical tables to their names in the store
type TableNames struct {
	Demographics  string `mapstructure:"demographics"`
	Variants      string `mapstructure:"variants"`
	Protocols     string `mapstructure:"protocols"`
	Enrollments   string `mapstructure:"enrollments"`
	Interventions string `mapstructure:"interventions"`
	AdverseEvents string `mapstructure:"adverse_events"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// Graph drivers
const (
	GraphDriverMemory = "memory"
	GraphDriverBolt   = "bolt"
)

// GraphConfig configures the property-graph store
type GraphConfig struct {
	Driver       string        `mapstructure:"driver"`
	URI          string        `mapstructure:"uri"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	Database     string        `mapstructure:"database"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	// Demographics pushes sex/age into the traversal alongside relationship predicates.
	Demographics   bool                 `mapstructure:"demographics"`
	Breaker        CircuitBreakerConfig `mapstructure:"breaker"`
	ConnectTimeout time.Duration        `mapstructure:"connect_timeout"`
}

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MinRequests  uint32        `mapstructure:"min_requests"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
}

// CacheConfig represents the redis graph-result cache configuration
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
}

// CohortConfig bounds memoization and view sizes
type CohortConfig struct {
	MemoSize         int `mapstructure:"memo_size"`
	OncoprintGenes   int `mapstructure:"oncoprint_genes"`
	OncoprintSamples int `mapstructure:"oncoprint_samples"`
	TopGenes         int `mapstructure:"top_genes"`
	HistogramBins    int `mapstructure:"histogram_bins"`
	BodySystems      int `mapstructure:"body_systems"`
}

// SurvivalConfig configures the synthetic survival estimator
type SurvivalConfig struct {
	ParamsFile string `mapstructure:"params_file"`
	Seed       uint64 `mapstructure:"seed"`
	MaxStrata  int    `mapstructure:"max_strata"`
}

// RateLimitConfig configures per-client request limiting on the HTTP API
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

package domain

import (
	"context"
)

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetTabularConfig() *TabularConfig
	GetGraphConfig() *GraphConfig
	Validate() error
}

// TabularSource reads the static demographic, variant and clinical tables.
// Implementations never write to the store.
type TabularSource interface {
	// Validate checks that every table and column the engine reads exists.
	Validate(ctx context.Context) error
	// Columns lists the columns of the joined demographics and variants tables.
	Columns(ctx context.Context) ([]string, error)
	LoadPatients(ctx context.Context) ([]Patient, error)
	LoadVariants(ctx context.Context) ([]Variant, error)
	LoadClinical(ctx context.Context) (*ClinicalData, error)
	Close() error
}

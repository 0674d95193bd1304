package app

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/fixture"
	"github.com/tso500-cohort-explorer/internal/predicate"
	"github.com/tso500-cohort-explorer/internal/survival"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(t *testing.T) *domain.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cohort.db")
	data := fixture.Generate(fixture.Options{Patients: 25, Seed: 9})
	require.NoError(t, fixture.WriteSQLite(context.Background(), path, data))

	return &domain.Config{
		Tabular: domain.TabularConfig{Driver: domain.TabularDriverSQLite, SQLitePath: path},
		Graph: domain.GraphConfig{
			Driver:       domain.GraphDriverMemory,
			QueryTimeout: time.Second,
		},
		Cohort:   domain.CohortConfig{MemoSize: 8},
		Survival: domain.SurvivalConfig{Seed: 7, MaxStrata: 2},
	}
}

func TestNewWithSQLiteAndMemoryGraph(t *testing.T) {
	// Arrange
	cfg := testConfig(t)

	// Act
	a, err := New(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer a.Close()

	// Assert
	assert.Equal(t, GraphReady, a.GraphStatus)
	assert.Nil(t, a.Breaker)
	assert.Len(t, a.Dataset.Table.Patients(), 25)

	res, err := a.Service.Resolve(context.Background(), predicate.Default().WithProtocol("PROT_001"))
	require.NoError(t, err)
	assert.False(t, res.Degraded)

	est, err := a.Service.Survival(context.Background(), predicate.Default(), survival.KeyIntervention)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), est.Seed)
	assert.LessOrEqual(t, len(est.Curves), 2)
}

func TestNewUnknownDrivers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Graph.Driver = "gremlin"

	_, err := New(context.Background(), cfg, testLogger())
	assert.True(t, domain.IsConfigurationError(err))

	cfg = testConfig(t)
	cfg.Tabular.Driver = "csv"

	_, err = New(context.Background(), cfg, testLogger())
	assert.True(t, domain.IsConfigurationError(err))
}

func TestNewMissingDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tabular.SQLitePath = filepath.Join(t.TempDir(), "absent.db")

	_, err := New(context.Background(), cfg, testLogger())

	assert.True(t, domain.IsConfigurationError(err))
}

func TestNewInvalidTableName(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tabular.Tables.Variants = "variants; DROP TABLE demographics"

	_, err := New(context.Background(), cfg, testLogger())

	assert.True(t, domain.IsValidationError(err))
}

func TestNewUnreachableBoltStartsDegraded(t *testing.T) {
	if testing.Short() {
		t.Skip("retries connectivity")
	}
	cfg := testConfig(t)
	cfg.Graph = domain.GraphConfig{
		Driver:         domain.GraphDriverBolt,
		URI:            "bolt://127.0.0.1:1",
		QueryTimeout:   500 * time.Millisecond,
		ConnectTimeout: 300 * time.Millisecond,
		Breaker: domain.CircuitBreakerConfig{
			MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, MinRequests: 1, FailureRatio: 0.5,
		},
	}

	a, err := New(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, GraphDegraded, a.GraphStatus)
	require.NotNil(t, a.Breaker)

	res, err := a.Service.Resolve(context.Background(), predicate.Default().WithProtocol("PROT_001"))
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, []predicate.Field{predicate.FieldProtocol}, res.Unapplied)
	assert.Len(t, res.Patients, 25)
}

func TestSurvivalTableFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "survival.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 99\nsex:\n  values:\n    female: {scale: 800, event_probability: 0.1}\n"), 0o600))

	table, err := survivalTable(domain.SurvivalConfig{ParamsFile: path})
	require.NoError(t, err)

	assert.Equal(t, uint64(99), table.Seed)
	assert.Equal(t, survival.DefaultMaxStrata, table.MaxStrata)
	assert.Equal(t, 800.0, table.Lookup(survival.KeySex, "female").Scale)
}

func TestSurvivalTableRejectsBadOverride(t *testing.T) {
	_, err := survivalTable(domain.SurvivalConfig{ParamsFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graph:\n  driver: memory\nsurvival:\n  seed: 5\n"), 0o600))

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, uint64(5), cfg.Survival.Seed)
	assert.Equal(t, domain.TabularDriverSQLite, cfg.Tabular.Driver)
}

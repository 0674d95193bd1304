package database

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tso500-cohort-explorer/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestDSN(t *testing.T) {
	dsn := DSN(domain.DatabaseConfig{
		Host: "db", Port: 5433, Database: "cohort", Username: "reader", Password: "secret", SSLMode: "disable",
	})

	assert.Equal(t, "host=db port=5433 dbname=cohort user=reader password=secret sslmode=disable", dsn)
}

func TestOpenSQLiteMissingFile(t *testing.T) {
	_, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "absent.db"), testLogger())

	assert.True(t, domain.IsConfigurationError(err))
}

func TestOpenSQLiteIsReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cohort.db")
	seed, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = seed.Exec("CREATE TABLE demographics (mrn INTEGER, age INTEGER, sex TEXT)")
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	db, err := OpenSQLite(context.Background(), path, testLogger())
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM demographics").Scan(&n))
	assert.Zero(t, n)

	_, err = db.Exec("INSERT INTO demographics VALUES (1, 40, 'female')")
	assert.Error(t, err)
}

func TestDatabaseConnection(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	db, err := NewConnection(ctx, domain.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		Database:        "testdb",
		Username:        "testuser",
		Password:        "testpass",
		MaxConns:        4,
		MinConns:        1,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
		SSLMode:         "disable",
	}, testLogger())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Health(ctx))
	assert.NotZero(t, db.Stats().TotalConns())

	_, err = db.Pool.Exec(ctx, "CREATE TABLE t (id int)")
	assert.Error(t, err, "sessions are read-only")
}

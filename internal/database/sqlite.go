package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// OpenSQLite opens an existing SQLite database for reading. A missing file is
// a configuration error rather than an empty database.
func OpenSQLite(ctx context.Context, path string, logger *logrus.Logger) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, domain.NewConfigurationError("tabular", fmt.Sprintf("sqlite database %q is not readable: %v", path, err))
	}

	// Pragmas in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger.WithField("path", path).Info("SQLite database opened")
	return db, nil
}

package repository

import (
	"context"
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// SQLSource reads the tabular store through database/sql (SQLite in practice)
type SQLSource struct {
	reader
	db *sql.DB
}

var _ domain.TabularSource = (*SQLSource)(nil)

// sqlRows adapts *sql.Rows to resultRows
type sqlRows struct {
	*sql.Rows
}

func (r sqlRows) Close() { _ = r.Rows.Close() }

// NewSQLSource creates a source over db using the configured table names
func NewSQLSource(db *sql.DB, tables domain.TableNames, logger *logrus.Logger) *SQLSource {
	s := &SQLSource{db: db}
	s.reader = reader{
		query: func(ctx context.Context, query string) (resultRows, error) {
			rows, err := db.QueryContext(ctx, query)
			if err != nil {
				return nil, err
			}
			return sqlRows{rows}, nil
		},
		schema: newSchema(tables),
		log:    logger,
	}
	return s
}

// Close closes the underlying database
func (s *SQLSource) Close() error {
	return s.db.Close()
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/database"
	"github.com/tso500-cohort-explorer/internal/domain"
)

// PgSource reads the tabular store from PostgreSQL through a pgx pool
type PgSource struct {
	reader
	db *database.DB
}

var _ domain.TabularSource = (*PgSource)(nil)

// pgRows adapts pgx.Rows to resultRows
type pgRows struct {
	pgx.Rows
}

func (r pgRows) Columns() ([]string, error) {
	fields := r.FieldDescriptions()
	if len(fields) == 0 {
		// Query errors surface on the cursor, not from Query itself.
		for r.Next() {
		}
		if err := r.Err(); err != nil {
			return nil, err
		}
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out, nil
}

// NewPgSource creates a source over db using the configured table names
func NewPgSource(db *database.DB, tables domain.TableNames, logger *logrus.Logger) *PgSource {
	s := &PgSource{db: db}
	s.reader = reader{
		query: func(ctx context.Context, query string) (resultRows, error) {
			rows, err := db.Pool.Query(ctx, query)
			if err != nil {
				return nil, err
			}
			return pgRows{rows}, nil
		},
		schema: newSchema(tables),
		log:    logger,
	}
	return s
}

// Close closes the connection pool
func (s *PgSource) Close() error {
	s.db.Close()
	return nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/FranksOps/serprank/internal/rank"
	"github.com/FranksOps/serprank/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS rank_records (
	run_id TEXT NOT NULL,
	idx INTEGER NOT NULL,
	domain TEXT NOT NULL,
	keyword TEXT NOT NULL,
	rank TEXT NOT NULL,
	position INTEGER,
	status TEXT NOT NULL,
	location TEXT,
	country TEXT,
	language TEXT,
	checked_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, idx)
);
`

var columns = []string{
	"run_id", "idx", "domain", "keyword", "rank", "position",
	"status", "location", "country", "language", "checked_at",
}

// New connects to dsn and ensures the schema exists.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

// Save copies all rows of table in a single COPY.
func (b *postgresBackend) Save(ctx context.Context, table *rank.Table) error {
	rows := storage.Rows(table)
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		r := rows[i]
		return []any{
			r.RunID, r.Index, r.Domain, r.Keyword, r.Rank, r.Position,
			r.Status, r.Location, r.Country, r.Language, r.CheckedAt,
		}, nil
	})

	n, err := b.pool.CopyFrom(ctx, pgx.Identifier{"rank_records"}, columns, src)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if int(n) != len(rows) {
		return fmt.Errorf("postgres: copied %d of %d rows", n, len(rows))
	}
	return nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}

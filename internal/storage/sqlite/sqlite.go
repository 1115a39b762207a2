package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FranksOps/serprank/internal/rank"
	"github.com/FranksOps/serprank/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
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
	checked_at DATETIME NOT NULL,
	PRIMARY KEY (run_id, idx)
);
`

const insertRow = `
INSERT INTO rank_records (
	run_id, idx, domain, keyword, rank, position, status, location, country, language, checked_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// New opens (or creates) the SQLite database at dsn.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

// Save inserts all rows of table in one transaction.
func (b *sqliteBackend) Save(ctx context.Context, table *rank.Table) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertRow)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	defer stmt.Close()

	for _, r := range storage.Rows(table) {
		_, err := stmt.ExecContext(ctx,
			r.RunID, r.Index, r.Domain, r.Keyword, r.Rank, r.Position,
			r.Status, r.Location, r.Country, r.Language, r.CheckedAt,
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert %q: %w", r.Keyword, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}

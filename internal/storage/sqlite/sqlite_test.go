package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/FranksOps/serprank/internal/rank"
)

func TestSQLiteBackend(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "ranks.db")
	b, err := New(dsn)
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	table := rank.NewTable("example.com", "Canada", "ca", "en")
	table.Append(rank.Record{Keyword: "shoes", Outcome: rank.Found(7), Location: "Canada"})
	table.Append(rank.Record{Keyword: "boots", Outcome: rank.NotFound(), Location: "Canada"})
	table.Append(rank.Record{Keyword: "shoes", Outcome: rank.Failed("timeout"), Location: "Canada"})

	ctx := context.Background()
	if err := b.Save(ctx, table); err != nil {
		t.Fatalf("Failed to save table: %v", err)
	}

	db := b.(*sqliteBackend).db
	rows, err := db.QueryContext(ctx,
		`SELECT keyword, rank, position, status, country FROM rank_records WHERE run_id = ? ORDER BY idx`, table.RunID)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()

	type got struct {
		keyword, rank, status, country string
		position                       sql.NullInt64
	}
	var all []got
	for rows.Next() {
		var g got
		if err := rows.Scan(&g.keyword, &g.rank, &g.position, &g.status, &g.country); err != nil {
			t.Fatal(err)
		}
		all = append(all, g)
	}
	if err := rows.Err(); err != nil {
		t.Fatal(err)
	}

	if len(all) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(all))
	}
	if all[0].keyword != "shoes" || !all[0].position.Valid || all[0].position.Int64 != 7 || all[0].country != "ca" {
		t.Errorf("unexpected first row %+v", all[0])
	}
	if all[1].position.Valid || all[1].rank != rank.NotFoundLabel {
		t.Errorf("unexpected second row %+v", all[1])
	}
	if all[2].status != "error" || all[2].rank != "Error: timeout" {
		t.Errorf("unexpected third row %+v", all[2])
	}

	// saving the same run twice violates the primary key
	if err := b.Save(ctx, table); err == nil {
		t.Error("expected duplicate run to fail")
	}
}

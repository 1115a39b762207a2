// Package storage writes finished rank tables to export sinks.
package storage

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/serprank/internal/rank"
)

// Backend receives completed tables. Each Save writes one whole run.
type Backend interface {
	Save(ctx context.Context, table *rank.Table) error
	Close() error
}

// Row is the flattened form of one record used by the structured sinks.
type Row struct {
	RunID     string    `json:"run_id"`
	Index     int       `json:"index"` // 1-based submission order
	Domain    string    `json:"domain"`
	Keyword   string    `json:"keyword"`
	Rank      string    `json:"rank"`
	Position  *int      `json:"position"` // nil unless found
	Status    string    `json:"status"`   // found, not_found or error
	Location  string    `json:"location"`
	Country   string    `json:"country"`
	Language  string    `json:"language"`
	CheckedAt time.Time `json:"checked_at"`
}

// Rows flattens table in record order. The table is not modified.
func Rows(table *rank.Table) []Row {
	recs := table.Records()
	checked := table.FinishedAt
	if checked.IsZero() {
		checked = table.StartedAt
	}
	rows := make([]Row, len(recs))
	for i, rec := range recs {
		row := Row{
			RunID:     table.RunID,
			Index:     i + 1,
			Domain:    table.Domain,
			Keyword:   rec.Keyword,
			Rank:      rec.Rank(),
			Status:    rec.Outcome.Kind.String(),
			Location:  rec.Location,
			Country:   table.Country,
			Language:  table.Language,
			CheckedAt: checked.UTC(),
		}
		if rec.Outcome.Kind == rank.KindFound {
			pos := rec.Outcome.Position
			row.Position = &pos
		}
		rows[i] = row
	}
	return rows
}

// SaveAll writes table to every backend concurrently and returns the first
// error. Backends are not closed.
func SaveAll(ctx context.Context, table *rank.Table, backends ...Backend) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, b := range backends {
		g.Go(func() error {
			if err := b.Save(ctx, table); err != nil {
				return fmt.Errorf("export %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

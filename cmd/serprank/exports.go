package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/FranksOps/serprank/internal/storage"
	"github.com/FranksOps/serprank/internal/storage/csvbackend"
	"github.com/FranksOps/serprank/internal/storage/jsonbackend"
	"github.com/FranksOps/serprank/internal/storage/postgres"
	"github.com/FranksOps/serprank/internal/storage/sqlite"
)

// openExport opens one sink from a "kind=target" definition, e.g.
// "sqlite=ranks.db" or "postgres=postgres://localhost/ranks".
func openExport(ctx context.Context, def string) (storage.Backend, error) {
	kind, target, ok := strings.Cut(def, "=")
	if !ok || target == "" {
		return nil, fmt.Errorf("export %q: want kind=target", def)
	}
	switch strings.ToLower(kind) {
	case "csv":
		return csvbackend.New(target)
	case "json", "ndjson", "jsonl":
		return jsonbackend.New(target)
	case "sqlite":
		return sqlite.New(target)
	case "postgres", "pg":
		return postgres.New(ctx, target)
	default:
		return nil, fmt.Errorf("export %q: unknown kind %q (csv, json, sqlite, postgres)", def, kind)
	}
}

// openExports opens every def, closing the ones already open on failure.
func openExports(ctx context.Context, defs []string) ([]storage.Backend, error) {
	var backends []storage.Backend
	for _, def := range defs {
		b, err := openExport(ctx, def)
		if err != nil {
			_ = closeAll(backends)
			return nil, err
		}
		backends = append(backends, b)
	}
	return backends, nil
}

func closeAll(backends []storage.Backend) error {
	var errs []error
	for _, b := range backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

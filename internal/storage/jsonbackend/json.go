// Package jsonbackend appends rank tables to a newline-delimited JSON file,
// one object per record.
package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FranksOps/serprank/internal/rank"
	"github.com/FranksOps/serprank/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// New opens filePath for appending, creating it if needed. Runs saved to the
// same file accumulate.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("ndjson: %w", err)
	}
	return &jsonBackend{file: f}, nil
}

func (b *jsonBackend) Save(ctx context.Context, table *rank.Table) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	w := bufio.NewWriter(b.file)
	if err := Encode(w, table); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("ndjson: %w", err)
	}
	return nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}

// Encode writes one JSON line per record of table.
func Encode(w io.Writer, table *rank.Table) error {
	enc := json.NewEncoder(w)
	for _, row := range storage.Rows(table) {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("ndjson: %w", err)
		}
	}
	return nil
}

// Decode reads every row from r. Blank lines are skipped.
func Decode(r io.Reader) ([]storage.Row, error) {
	scanner := bufio.NewScanner(r)
	var rows []storage.Row
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row storage.Row
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("ndjson: line %d: %w", len(rows)+1, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ndjson: %w", err)
	}
	return rows, nil
}

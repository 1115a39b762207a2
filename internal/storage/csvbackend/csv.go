// Package csvbackend exports rank tables as comma-separated values.
package csvbackend

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/FranksOps/serprank/internal/rank"
	"github.com/FranksOps/serprank/internal/storage"
)

const (
	// FileName is the default download and output name.
	FileName = "rankings.csv"
	// ContentType is the MIME type of the export.
	ContentType = "text/csv"
)

var (
	headers         = []string{"Keyword", "Rank Position"}
	headersLocation = []string{"Keyword", "Rank Position", "Location"}
)

// ErrBadHeader is returned by Decode for input that is not an export.
var ErrBadHeader = errors.New("csv: unexpected header")

// Encode writes table as UTF-8 CSV with a header row. The Location column is
// present only when table.ShowLocation is set. table is only read.
func Encode(w io.Writer, table *rank.Table) error {
	cw := csv.NewWriter(w)
	header := headers
	if table.ShowLocation {
		header = headersLocation
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	for _, rec := range table.Records() {
		row := []string{rec.Keyword, rec.Rank()}
		if table.ShowLocation {
			row = append(row, rec.Location)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	return nil
}

// Decode parses an export back into records. Rank cells go through
// rank.ParseOutcome, so Record.Rank() reproduces the exported text.
func Decode(r io.Reader) ([]rank.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty input", ErrBadHeader)
		}
		return nil, fmt.Errorf("csv: %w", err)
	}
	if !equal(header, headers) && !equal(header, headersLocation) {
		return nil, fmt.Errorf("%w: %q", ErrBadHeader, header)
	}
	width := len(header)

	var recs []rank.Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		if len(row) != width {
			return nil, fmt.Errorf("csv: line %d: got %d fields, want %d", len(recs)+2, len(row), width)
		}
		rec := rank.Record{Keyword: row[0], Outcome: rank.ParseOutcome(row[1])}
		if width == 3 {
			rec.Location = row[2]
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	path string
}

// New returns a Backend that writes each saved table to path, replacing any
// previous content. A directory path gets FileName appended.
func New(path string) (storage.Backend, error) {
	if path == "" {
		path = FileName
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, FileName)
	}
	return &csvBackend{path: path}, nil
}

func (b *csvBackend) Save(ctx context.Context, table *rank.Table) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := os.Create(b.path)
	if err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	if err := Encode(f, table); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("csv: %w", err)
	}
	return nil
}

func (b *csvBackend) Close() error { return nil }

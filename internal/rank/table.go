package rank

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one row of a Table.
type Record struct {
	Keyword  string  `json:"keyword"`
	Outcome  Outcome `json:"-"`
	Location string  `json:"location,omitempty"` // label, e.g. "United States"
}

// Rank returns the rank cell as rendered in tables and exports.
func (r Record) Rank() string { return r.Outcome.String() }

// Table holds the records of one run in keyword submission order. Records
// are appended once and never modified.
type Table struct {
	RunID        string
	Domain       string
	Location     string // label
	Country      string // code
	Language     string
	ShowLocation bool // render the Location column
	StartedAt    time.Time
	FinishedAt   time.Time

	mu      sync.RWMutex
	records []Record
}

// NewTable starts an empty table with a fresh run ID.
func NewTable(domain, location, country, language string) *Table {
	return &Table{
		RunID:     uuid.NewString(),
		Domain:    domain,
		Location:  location,
		Country:   country,
		Language:  language,
		StartedAt: time.Now(),
	}
}

// Append adds rec after the existing records.
func (t *Table) Append(rec Record) {
	t.mu.Lock()
	t.records = append(t.records, rec)
	t.mu.Unlock()
}

// Records returns a copy of the rows in insertion order.
func (t *Table) Records() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Duration returns how long the run took, or zero while it is still running.
func (t *Table) Duration() time.Duration {
	if t.FinishedAt.IsZero() {
		return 0
	}
	return t.FinishedAt.Sub(t.StartedAt)
}

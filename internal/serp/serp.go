package serp

import (
	"context"
	"errors"
)

// MaxResults is the size of the single result page requested per keyword.
const MaxResults = 100

// ErrBlocked is wrapped by providers when the engine answered with a bot
// challenge instead of results.
var ErrBlocked = errors.New("serp: blocked by bot protection")

// Query is one search request.
type Query struct {
	Text     string
	Country  string // gl, e.g. "us"
	Language string // hl, e.g. "en"
	Num      int    // result cap; <= 0 or > MaxResults means MaxResults
}

// Limit returns the effective result cap.
func (q Query) Limit() int {
	if q.Num <= 0 || q.Num > MaxResults {
		return MaxResults
	}
	return q.Num
}

// Result is one organic entry in the order the engine returned it.
type Result struct {
	Link     string `json:"link"`
	Title    string `json:"title,omitempty"`
	Position int    `json:"position"` // 1-based, order of appearance
}

// Provider abstracts a search engine backend: a hosted SERP API, scraping,
// or a test double. Search makes exactly one upstream call and returns at
// most q.Limit() results.
type Provider interface {
	Name() string
	Search(ctx context.Context, q Query) ([]Result, error)
}

// number rewrites Position to order of appearance and truncates to limit.
func number(results []Result, limit int) []Result {
	if len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Position = i + 1
	}
	return results
}

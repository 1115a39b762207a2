package rank

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/serprank/internal/metrics"
	"github.com/FranksOps/serprank/internal/serp"
)

// MatchMode selects how a result link is compared against the domain.
type MatchMode int

const (
	// MatchSubstring accepts any link containing the domain text anywhere,
	// including paths, query strings and longer host names.
	MatchSubstring MatchMode = iota
	// MatchHost accepts links whose host is the domain or a subdomain of it.
	MatchHost
)

// ParseMatchMode maps "substring" (or "") and "host" to a MatchMode.
func ParseMatchMode(s string) (MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "substring":
		return MatchSubstring, nil
	case "host":
		return MatchHost, nil
	default:
		return MatchSubstring, fmt.Errorf("rank: unknown match mode %q", s)
	}
}

func (m MatchMode) String() string {
	if m == MatchHost {
		return "host"
	}
	return "substring"
}

// Query is the immutable input of a single resolution.
type Query struct {
	Keyword  string
	Domain   string
	Country  string
	Language string
}

// Resolver turns a keyword into an Outcome with one provider call.
type Resolver struct {
	provider serp.Provider
	match    MatchMode
	logger   *slog.Logger
}

// NewResolver binds a provider. A nil logger uses slog.Default().
func NewResolver(provider serp.Provider, match MatchMode, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{provider: provider, match: match, logger: logger}
}

// Resolve searches q.Keyword once and reports where q.Domain first appears.
// Provider failures are returned as a Failed outcome, never as an error.
func (r *Resolver) Resolve(ctx context.Context, q Query) Outcome {
	engine := r.provider.Name()
	start := time.Now()

	results, err := r.provider.Search(ctx, serp.Query{
		Text:     q.Keyword,
		Country:  q.Country,
		Language: q.Language,
		Num:      serp.MaxResults,
	})
	elapsed := time.Since(start)
	if err != nil {
		r.logger.Warn("rank lookup failed", "keyword", q.Keyword, "engine", engine, "err", err)
		metrics.RecordLookup(engine, metrics.OutcomeError, elapsed, 0)
		return Failed(err.Error())
	}

	pos := FindPosition(results, q.Domain, r.match)
	if pos == 0 {
		r.logger.Debug("domain not ranked", "keyword", q.Keyword, "results", len(results))
		metrics.RecordLookup(engine, metrics.OutcomeNotFound, elapsed, 0)
		return NotFound()
	}
	r.logger.Debug("domain ranked", "keyword", q.Keyword, "position", pos)
	metrics.RecordLookup(engine, metrics.OutcomeFound, elapsed, pos)
	return Found(pos)
}

// FindPosition returns the 1-based index of the first result matching
// domain, or 0 when none does. Positions follow slice order.
func FindPosition(results []serp.Result, domain string, mode MatchMode) int {
	if domain == "" {
		return 0
	}
	for i, res := range results {
		if matches(res.Link, domain, mode) {
			return i + 1
		}
	}
	return 0
}

func matches(link, domain string, mode MatchMode) bool {
	if mode != MatchHost {
		return strings.Contains(link, domain)
	}
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	d := strings.ToLower(strings.TrimSuffix(domain, "."))
	return host == d || strings.HasSuffix(host, "."+d)
}

// Package pipeline runs a rank check: validate the request, resolve each
// keyword in order with a minimum interval between lookups, and collect the
// outcomes into a table.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/serprank/internal/input"
	"github.com/FranksOps/serprank/internal/rank"
	"github.com/FranksOps/serprank/pkg/ratelimit"
)

// DefaultInterval is the minimum spacing between consecutive lookups.
const DefaultInterval = time.Second

// Resolver resolves one keyword. *rank.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, q rank.Query) rank.Outcome
}

var _ Resolver = (*rank.Resolver)(nil)

// Pipeline runs keywords through a Resolver strictly one at a time.
type Pipeline struct {
	Resolver Resolver
	// Interval is the minimum spacing between the starts of consecutive
	// lookups, not a pause after each one returns: a lookup that takes 0.9s
	// with a 1s interval is followed by roughly 0.1s of waiting, and one
	// slower than the interval by none. Zero means DefaultInterval; negative
	// disables pacing.
	Interval time.Duration
	Jitter   float64
	Logger   *slog.Logger
	// OnProgress, if set, receives a snapshot after every phase change and
	// after each keyword. It runs on the pipeline goroutine.
	OnProgress func(State)
}

// Run validates req and resolves every keyword. A validation failure returns
// a *input.ValidationError and no table; nothing is looked up. Otherwise the
// table holds exactly one record per keyword in submission order. If ctx is
// canceled mid-run, the remaining keywords are recorded as failed and ctx's
// error is returned alongside the complete table.
func (p *Pipeline) Run(ctx context.Context, req input.Request) (*rank.Table, error) {
	if p.Resolver == nil {
		return nil, errors.New("pipeline: resolver is nil")
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p.emit(State{Phase: PhaseCollecting})

	req = req.Normalize()
	if err := req.Validate(); err != nil {
		logger.Warn("rank check blocked", "err", err)
		p.emit(State{Phase: PhaseBlocked, Err: err})
		return nil, err
	}
	loc, err := req.ResolveLocation()
	if err != nil {
		// Validate already covers this.
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	table := rank.NewTable(req.Domain, loc.Label, loc.Country, req.Lang())
	table.ShowLocation = req.LocationSelected()
	total := len(req.Keywords)

	logger.Info("rank check started",
		"run_id", table.RunID,
		"domain", req.Domain,
		"keywords", total,
		"location", loc.Label,
	)
	p.emit(State{Phase: PhaseResolving, Total: total})

	interval := p.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	limiter := ratelimit.Every(interval, p.Jitter)
	defer limiter.Stop()

	var runErr error
	for i, kw := range req.Keywords {
		var out rank.Outcome
		if runErr == nil && i > 0 {
			runErr = limiter.Wait(ctx)
		}
		if runErr == nil {
			runErr = ctx.Err()
		}
		if runErr != nil {
			out = rank.Failed(runErr.Error())
		} else {
			out = p.Resolver.Resolve(ctx, rank.Query{
				Keyword:  kw,
				Domain:   req.Domain,
				Country:  loc.Country,
				Language: req.Lang(),
			})
		}

		table.Append(rank.Record{Keyword: kw, Outcome: out, Location: loc.Label})
		logger.Debug("keyword resolved", "keyword", kw, "rank", out.String(), "index", i+1, "total", total)
		p.emit(State{
			Phase:     PhaseResolving,
			Completed: i + 1,
			Total:     total,
			Current:   kw,
			Records:   table.Records(),
		})
	}

	table.FinishedAt = time.Now()
	p.emit(State{Phase: PhaseDone, Completed: total, Total: total, Records: table.Records()})

	if runErr != nil {
		logger.Warn("rank check interrupted", "run_id", table.RunID, "err", runErr)
		return table, runErr
	}
	logger.Info("rank check finished", "run_id", table.RunID, "duration", table.Duration())
	return table, nil
}

func (p *Pipeline) emit(s State) {
	if p.OnProgress != nil {
		p.OnProgress(s)
	}
}

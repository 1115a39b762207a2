package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Limiter spaces out consecutive operations so that no two start closer
// together than a minimum interval, optionally stretched by random jitter.
// It is safe for concurrent use by multiple goroutines.
type Limiter struct {
	ticker   *time.Ticker
	jitter   float64 // 0.0 to 1.0
	interval time.Duration
	ch       <-chan time.Time
}

// Every creates a limiter that releases at most one operation per interval.
// Jitter is clamped to [0, 1]. An interval <= 0 yields a limiter that never blocks.
func Every(interval time.Duration, jitter float64) *Limiter {
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}

	if interval <= 0 {
		return &Limiter{jitter: jitter}
	}

	ticker := time.NewTicker(interval)
	return &Limiter{
		ticker:   ticker,
		jitter:   jitter,
		interval: interval,
		ch:       ticker.C,
	}
}

// NewLimiter creates a limiter from a requests-per-second rate.
// If rps is <= 0, the limiter does not block.
func NewLimiter(rps float64, jitter float64) *Limiter {
	if rps <= 0 {
		return Every(0, jitter)
	}
	return Every(time.Duration(float64(time.Second)/rps), jitter)
}

// Interval reports the configured minimum spacing. Zero means unlimited.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Wait blocks until the next slot opens or ctx is done. Ticks that fire while
// the caller is busy are buffered, so a slow operation does not add a second
// full interval on top of its own duration.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.ch == nil {
		return ctx.Err()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.ch:
	}

	// Only positive jitter delays; a ticker cannot release early.
	if l.jitter > 0 {
		extra := time.Duration(float64(l.interval) * l.jitter * ((rand.Float64() * 2) - 1.0))
		if extra > 0 {
			timer := time.NewTimer(extra)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// Stop releases any resources associated with the limiter.
func (l *Limiter) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
}

package proxy

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// ErrUnknownProxy is returned when reporting on a URL the pool never handed out.
var ErrUnknownProxy = errors.New("proxy: not in pool")

type entry struct {
	url       *url.URL
	key       string
	failures  int
	successes int
	lastUsed  time.Time
	benchedAt time.Time // zero while healthy
}

// Config defines settings for the Proxy Pool.
type Config struct {
	// MaxFailures before a proxy is benched.
	MaxFailures int
	// Cooldown is how long a benched proxy sits out.
	Cooldown time.Duration
}

// Pool rotates outbound requests across a set of proxies, benching any proxy
// that fails MaxFailures times in a row net of successes.
type Pool struct {
	mu      sync.Mutex
	entries []*entry
	cursor  int
	cfg     Config
	now     func() time.Time
}

// NewPool creates a new proxy pool. Zero config values get defaults of
// 3 failures and a 5 minute cooldown.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	return &Pool{cfg: cfg, now: time.Now}
}

// LoadFile reads proxies from a file, one URL per line. Blank lines and
// lines starting with '#' are skipped.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	var raws []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raws = append(raws, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read proxy file: %w", err)
	}
	return p.Add(raws...)
}

// Add parses raw proxy URLs and appends them. A missing scheme means http.
func (p *Pool) Add(rawURLs ...string) error {
	parsed := make([]*entry, 0, len(rawURLs))
	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("parse proxy %q: %w", raw, err)
		}
		parsed = append(parsed, &entry{url: u, key: u.String()})
	}

	p.mu.Lock()
	p.entries = append(p.entries, parsed...)
	p.mu.Unlock()
	return nil
}

// Len reports how many proxies the pool holds, benched or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Next returns the next healthy proxy, or nil when the pool is empty or
// every proxy is benched.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.entries {
		e := p.entries[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.entries)

		if !e.benchedAt.IsZero() {
			if now.Sub(e.benchedAt) < p.cfg.Cooldown {
				continue
			}
			e.benchedAt = time.Time{}
			e.failures = 0
		}
		e.lastUsed = now
		return e.url
	}
	return nil
}

// MarkSuccess records a successful request through proxyURL.
func (p *Pool) MarkSuccess(proxyURL *url.URL) error {
	return p.report(proxyURL, true)
}

// MarkFailure records a failed request through proxyURL, benching it once
// failures reach the configured maximum.
func (p *Pool) MarkFailure(proxyURL *url.URL) error {
	return p.report(proxyURL, false)
}

func (p *Pool) report(proxyURL *url.URL, ok bool) error {
	if proxyURL == nil {
		return errors.New("proxy: nil url")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := proxyURL.String()
	for _, e := range p.entries {
		if e.key != key {
			continue
		}
		if ok {
			e.successes++
			if e.failures > 0 {
				e.failures--
			}
			return nil
		}
		e.failures++
		if e.failures >= p.cfg.MaxFailures && e.benchedAt.IsZero() {
			e.benchedAt = p.now()
		}
		return nil
	}
	return ErrUnknownProxy
}

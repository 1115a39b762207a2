package serp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/FranksOps/serprank/internal/scraper"
	"github.com/PuerkitoBio/goquery"
)

// DefaultGoogleBase is the results page GoogleScrape fetches.
const DefaultGoogleBase = "https://www.google.com/search"

// GoogleScrape reads rankings straight off Google's HTML results page. It
// needs no API key but is subject to Google's bot defences; a challenge page
// surfaces as ErrBlocked.
type GoogleScrape struct {
	fetcher *scraper.Fetcher
	baseURL string
}

var _ Provider = (*GoogleScrape)(nil)

// NewGoogleScrape wraps fetcher. baseURL may be empty.
func NewGoogleScrape(fetcher *scraper.Fetcher, baseURL string) (*GoogleScrape, error) {
	if fetcher == nil {
		return nil, errors.New("google: fetcher is nil")
	}
	if baseURL == "" {
		baseURL = DefaultGoogleBase
	}
	return &GoogleScrape{fetcher: fetcher, baseURL: baseURL}, nil
}

// Name returns the engine identifier.
func (g *GoogleScrape) Name() string { return "scrape" }

// Search fetches one results page and extracts organic links in order.
func (g *GoogleScrape) Search(ctx context.Context, q Query) ([]Result, error) {
	params := url.Values{
		"q":   {q.Text},
		"num": {strconv.Itoa(q.Limit())},
	}
	if q.Country != "" {
		params.Set("gl", q.Country)
	}
	if q.Language != "" {
		params.Set("hl", q.Language)
	}

	page, err := g.fetcher.Fetch(ctx, g.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}
	if page.Blocked {
		return nil, fmt.Errorf("google: %w (%s)", ErrBlocked, page.BlockedBy)
	}
	if page.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google: unexpected status %d", page.StatusCode)
	}

	results, err := ParseResults(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("google: %w", err)
	}
	return number(results, q.Limit()), nil
}

// ParseResults extracts organic result links from a Google results page.
// Organic entries are anchors wrapping an <h3> title; the no-JS layout
// instead links through /url?q=<target>. Google-owned links and repeated
// links (sitelinks) are skipped.
func ParseResults(r io.Reader) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	var results []Result
	seen := make(map[string]struct{})

	add := func(href, title string) {
		link := resolveLink(href)
		if link == "" {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		results = append(results, Result{Link: link, Title: strings.TrimSpace(title)})
	}

	doc.Find("a:has(h3)").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		add(href, s.Find("h3").First().Text())
	})

	if len(results) == 0 {
		doc.Find(`a[href^="/url?"]`).Each(func(_ int, s *goquery.Selection) {
			href, _ := s.Attr("href")
			add(href, s.Text())
		})
	}

	return results, nil
}

// resolveLink unwraps /url?q= redirects and rejects anything that is not an
// external http(s) link.
func resolveLink(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if u.Path == "/url" {
		target := u.Query().Get("q")
		if target == "" {
			target = u.Query().Get("url")
		}
		if u, err = url.Parse(target); err != nil {
			return ""
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "google.com" || strings.HasSuffix(host, ".google.com") || strings.HasSuffix(host, ".googleusercontent.com") {
		return ""
	}
	return u.String()
}

package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/FranksOps/serprank/internal/fingerprint"
	"github.com/FranksOps/serprank/internal/pipeline"
	"github.com/FranksOps/serprank/internal/rank"
	"github.com/FranksOps/serprank/internal/scraper"
	"github.com/FranksOps/serprank/internal/serp"
	"github.com/FranksOps/serprank/internal/web"
	"github.com/FranksOps/serprank/pkg/httpclient"
	"github.com/FranksOps/serprank/pkg/proxy"
	"github.com/FranksOps/serprank/pkg/useragent"
)

// newResolverFactory builds the transport stack for s.Engine once and
// returns a factory binding it to an API key, plus a func releasing the stack.
func newResolverFactory(s settings, logger *slog.Logger) (web.ResolverFactory, func(), error) {
	match, err := rank.ParseMatchMode(s.Match)
	if err != nil {
		return nil, nil, err
	}

	switch s.Engine {
	case engineScrape:
		fetcher, err := newFetcher(s, logger)
		if err != nil {
			return nil, nil, err
		}
		provider, err := serp.NewGoogleScrape(fetcher, s.GoogleURL)
		if err != nil {
			fetcher.Close()
			return nil, nil, err
		}
		resolver := rank.NewResolver(provider, match, logger)
		factory := func(string) (pipeline.Resolver, error) { return resolver, nil }
		return factory, fetcher.Close, nil

	default:
		client, err := newAPIClient(s)
		if err != nil {
			return nil, nil, err
		}
		factory := func(apiKey string) (pipeline.Resolver, error) {
			provider, err := serp.NewSerpAPI(serp.SerpAPIConfig{
				APIKey:  apiKey,
				BaseURL: s.SerpAPIURL,
				Client:  client,
			})
			if err != nil {
				return nil, err
			}
			return rank.NewResolver(provider, match, logger), nil
		}
		return factory, client.CloseIdleConnections, nil
	}
}

// apiMaxRedirects bounds redirects followed from the SerpApi endpoint.
const apiMaxRedirects = 5

func newAPIClient(s settings) (*httpclient.Client, error) {
	profile, err := fingerprint.ParseProfile(s.Fingerprint)
	if err != nil {
		return nil, err
	}
	transport, err := fingerprint.Transport(profile, http.ProxyFromEnvironment)
	if err != nil {
		return nil, err
	}
	return httpclient.New(httpclient.Config{
		Timeout:      s.Timeout,
		MaxRedirects: apiMaxRedirects,
		Transport:    transport,
		UserAgent: func() string { return "serprank/" + version },
	})
}

func newFetcher(s settings, logger *slog.Logger) (*scraper.Fetcher, error) {
	profile := fingerprint.ProfileChrome
	if s.Fingerprint != "" {
		p, err := fingerprint.ParseProfile(s.Fingerprint)
		if err != nil {
			return nil, err
		}
		profile = p
	}

	cfg := scraper.FetchConfig{
		Timeout:        s.Timeout,
		UseCookieJar:   true,
		Fingerprint:    profile,
		AcceptLanguage: s.Language + ",en;q=0.5",
	}

	if s.ProxyFile != "" {
		pool := proxy.NewPool(proxy.Config{})
		if err := pool.LoadFile(s.ProxyFile); err != nil {
			return nil, err
		}
		logger.Info("loaded proxies", "count", pool.Len(), "file", s.ProxyFile)
		cfg.ProxyPool = pool
	}

	if s.UserAgents != "" {
		uas, err := readLines(s.UserAgents)
		if err != nil {
			return nil, err
		}
		cfg.UAPool = useragent.NewPool(uas)
	}

	return scraper.NewFetcher(cfg)
}

// readLines returns the non-blank, non-comment lines of path.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}

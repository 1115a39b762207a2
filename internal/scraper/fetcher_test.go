package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/serprank/internal/fingerprint"
	"github.com/FranksOps/serprank/pkg/proxy"
	"github.com/FranksOps/serprank/pkg/useragent"
)

func TestFetcher_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "TestBrowser/1.0" {
			t.Errorf("expected pooled User-Agent, got %q", r.Header.Get("User-Agent"))
		}
		if r.Header.Get("Accept-Language") != "de-DE,de;q=0.9" {
			t.Errorf("unexpected Accept-Language %q", r.Header.Get("Accept-Language"))
		}
		w.Header().Set("X-Test", "true")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	fetcher, err := NewFetcher(FetchConfig{
		Timeout:        5 * time.Second,
		Fingerprint:    fingerprint.ProfileGo,
		UAPool:         useragent.NewPool([]string{"TestBrowser/1.0"}),
		AcceptLanguage: "de-DE,de;q=0.9",
	})
	if err != nil {
		t.Fatalf("NewFetcher: %v", err)
	}
	defer fetcher.Close()

	page, err := fetcher.Fetch(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if page.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", page.StatusCode)
	}
	if string(page.Body) != "ok" {
		t.Errorf("expected body 'ok', got %s", string(page.Body))
	}
	if page.Headers.Get("X-Test") != "true" {
		t.Errorf("expected X-Test header 'true', got %v", page.Headers["X-Test"])
	}
	if page.Duration == 0 {
		t.Errorf("expected non-zero duration")
	}
	if page.Blocked {
		t.Errorf("plain page flagged as blocked by %s", page.BlockedBy)
	}
}

func TestFetcher_DetectsChallenge(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/sorry/index?continue=search", http.StatusFound)
	})
	mux.HandleFunc("/sorry/index", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Our systems have detected unusual traffic from your computer network."))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{Timeout: 5 * time.Second, Fingerprint: fingerprint.ProfileGo})
	page, err := fetcher.Fetch(context.Background(), ts.URL+"/search?q=golang")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !page.Blocked || page.BlockedBy != "Google" {
		t.Errorf("expected Google challenge detection, got blocked=%v by %q", page.Blocked, page.BlockedBy)
	}
	if !strings.Contains(page.FinalURL, "/sorry/") {
		t.Errorf("expected final URL to follow the redirect, got %s", page.FinalURL)
	}
}

func TestFetcher_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	fetcher, _ := NewFetcher(FetchConfig{
		Timeout:     10 * time.Millisecond,
		Fingerprint: fingerprint.ProfileGo,
	})

	_, err := fetcher.Fetch(context.Background(), ts.URL)
	if err == nil || !strings.Contains(err.Error(), "request failed") {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestFetcher_Proxy(t *testing.T) {
	// Acts as the proxy: answers every forwarded request itself.
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer proxyServer.Close()

	pPool := proxy.NewPool(proxy.Config{MaxFailures: 1, Cooldown: time.Second})
	if err := pPool.Add(proxyServer.URL); err != nil {
		t.Fatalf("failed to add proxy: %v", err)
	}

	fetcher, _ := NewFetcher(FetchConfig{
		Timeout:     5 * time.Second,
		Fingerprint: fingerprint.ProfileGo,
		ProxyPool:   pPool,
	})

	targetServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer targetServer.Close()

	page, err := fetcher.Fetch(context.Background(), targetServer.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.StatusCode != http.StatusTeapot {
		t.Errorf("expected 418 Teapot from proxy, got %d", page.StatusCode)
	}
}

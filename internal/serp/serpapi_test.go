package serp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FranksOps/serprank/pkg/httpclient"
)

func newSerpAPI(t *testing.T, handler http.HandlerFunc) *SerpAPI {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	p, err := NewSerpAPI(SerpAPIConfig{APIKey: "secret-key", BaseURL: ts.URL})
	require.NoError(t, err)
	return p
}

func TestSerpAPI_RequestParameters(t *testing.T) {
	p := newSerpAPI(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "best running shoes", q.Get("q"))
		assert.Equal(t, "secret-key", q.Get("api_key"))
		assert.Equal(t, "us", q.Get("gl"))
		assert.Equal(t, "en", q.Get("hl"))
		assert.Equal(t, "100", q.Get("num"))
		fmt.Fprint(w, `{"organic_results":[]}`)
	})

	results, err := p.Search(context.Background(), Query{Text: "best running shoes", Country: "us", Language: "en"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSerpAPI_OrganicResultsInOrder(t *testing.T) {
	p := newSerpAPI(t, func(w http.ResponseWriter, r *http.Request) {
		// position fields deliberately disagree with order of appearance
		fmt.Fprint(w, `{
			"search_metadata": {"status": "Success"},
			"organic_results": [
				{"position": 3, "title": "Other", "link": "https://other.com"},
				{"position": 7, "title": "Example", "link": "https://example.com/page"},
				{"title": "No position", "link": "https://third.org"}
			]
		}`)
	})

	results, err := p.Search(context.Background(), Query{Text: "q"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, Result{Link: "https://other.com", Title: "Other", Position: 1}, results[0])
	assert.Equal(t, "https://example.com/page", results[1].Link)
	assert.Equal(t, 2, results[1].Position)
	assert.Equal(t, 3, results[2].Position)
}

func TestSerpAPI_TruncatesToLimit(t *testing.T) {
	p := newSerpAPI(t, func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		b.WriteString(`{"organic_results":[`)
		for i := 0; i < 120; i++ {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, `{"link":"https://site%d.com"}`, i)
		}
		b.WriteString(`]}`)
		fmt.Fprint(w, b.String())
	})

	results, err := p.Search(context.Background(), Query{Text: "q"})
	require.NoError(t, err)
	assert.Len(t, results, MaxResults)
}

func TestSerpAPI_NoResultsMessageIsEmptyPage(t *testing.T) {
	p := newSerpAPI(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"search_metadata":{"status":"Success"},"error":"Google hasn't returned any results for this query."}`)
	})

	results, err := p.Search(context.Background(), Query{Text: "zzqxj"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSerpAPI_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name: "invalid key",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"error":"Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key"}`)
			},
			wantMsg: "status 401: Invalid API key",
		},
		{
			name: "error field with 200",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"error":"Your account has run out of searches."}`)
			},
			wantMsg: "run out of searches",
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `<html>not json</html>`)
			},
			wantMsg: "malformed response",
		},
		{
			name: "server error without json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				fmt.Fprint(w, `upstream down`)
			},
			wantMsg: "unexpected status 502",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newSerpAPI(t, tt.handler)
			_, err := p.Search(context.Background(), Query{Text: "q"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.NotContains(t, err.Error(), "secret-key")
		})
	}
}

func TestSerpAPI_TransportErrorIsRedacted(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := ts.URL
	ts.Close() // nothing listens any more

	p, err := NewSerpAPI(SerpAPIConfig{APIKey: "secret-key", BaseURL: base})
	require.NoError(t, err)

	_, err = p.Search(context.Background(), Query{Text: "q"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")
	assert.Contains(t, err.Error(), "REDACTED")

	var urlErr interface{ Timeout() bool }
	assert.True(t, errors.As(err, &urlErr), "redaction must keep the cause unwrappable")
}

func TestSerpAPI_TransportErrorRedactsEscapedKey(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := ts.URL
	ts.Close()

	const key = "abc+def/ghi"
	p, err := NewSerpAPI(SerpAPIConfig{APIKey: key, BaseURL: base})
	require.NoError(t, err)

	_, err = p.Search(context.Background(), Query{Text: "q"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), key)
	assert.NotContains(t, err.Error(), url.QueryEscape(key))
	assert.Contains(t, err.Error(), "api_key=REDACTED")
}

func TestNewSerpAPI(t *testing.T) {
	_, err := NewSerpAPI(SerpAPIConfig{APIKey: "  "})
	require.Error(t, err)

	client, err := httpclient.New(httpclient.Config{})
	require.NoError(t, err)
	p, err := NewSerpAPI(SerpAPIConfig{APIKey: "k", Client: client})
	require.NoError(t, err)
	assert.Equal(t, DefaultSerpAPIBase, p.baseURL)
	assert.Equal(t, "serpapi", p.Name())
}

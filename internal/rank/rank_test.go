package rank

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FranksOps/serprank/internal/serp"
)

type stubProvider struct {
	results []serp.Result
	err     error
	calls   []serp.Query
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Search(_ context.Context, q serp.Query) ([]serp.Result, error) {
	s.calls = append(s.calls, q)
	return s.results, s.err
}

func links(ls ...string) []serp.Result {
	out := make([]serp.Result, len(ls))
	for i, l := range ls {
		out[i] = serp.Result{Link: l, Position: i + 1}
	}
	return out
}

func TestResolve_Found(t *testing.T) {
	p := &stubProvider{results: links("https://other.com", "https://example.com/page")}
	r := NewResolver(p, MatchSubstring, nil)

	out := r.Resolve(context.Background(), Query{Keyword: "shoes", Domain: "example.com", Country: "us", Language: "en"})
	assert.Equal(t, Found(2), out)
	assert.Equal(t, "2", out.String())

	require.Len(t, p.calls, 1)
	assert.Equal(t, serp.Query{Text: "shoes", Country: "us", Language: "en", Num: 100}, p.calls[0])
}

func TestResolve_EmptyResults(t *testing.T) {
	r := NewResolver(&stubProvider{}, MatchSubstring, nil)
	out := r.Resolve(context.Background(), Query{Keyword: "shoes", Domain: "example.com"})
	assert.Equal(t, KindNotFound, out.Kind)
	assert.Equal(t, "Not in top 100", out.String())
}

func TestResolve_Failure(t *testing.T) {
	p := &stubProvider{err: errors.New("serpapi: status 401: Invalid API key")}
	r := NewResolver(p, MatchSubstring, nil)

	out := r.Resolve(context.Background(), Query{Keyword: "shoes", Domain: "example.com"})
	assert.Equal(t, KindFailed, out.Kind)
	assert.Equal(t, "Error: serpapi: status 401: Invalid API key", out.String())
	assert.NotEqual(t, NotFoundLabel, out.String())
	assert.Len(t, p.calls, 1, "failures are not retried")
}

func TestFindPosition(t *testing.T) {
	results := links(
		"https://blog.example.com.evil.net/",
		"https://other.com/?ref=example.com",
		"https://shop.example.com/",
		"https://example.com/",
	)
	tests := []struct {
		name   string
		domain string
		mode   MatchMode
		want   int
	}{
		{"substring hits longer host first", "example.com", MatchSubstring, 1},
		{"host ignores query and foreign hosts", "example.com", MatchHost, 3},
		{"host exact", "shop.example.com", MatchHost, 3},
		{"host case insensitive", "EXAMPLE.com", MatchHost, 3},
		{"substring is case sensitive", "EXAMPLE.com", MatchSubstring, 0},
		{"no match", "nowhere.org", MatchSubstring, 0},
		{"empty domain", "", MatchSubstring, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindPosition(results, tt.domain, tt.mode))
		})
	}
}

func TestParseMatchMode(t *testing.T) {
	m, err := ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, MatchSubstring, m)

	m, err = ParseMatchMode("HOST")
	require.NoError(t, err)
	assert.Equal(t, MatchHost, m)
	assert.Equal(t, "host", m.String())

	_, err = ParseMatchMode("regex")
	assert.Error(t, err)
}

func TestOutcome_StringAndParse(t *testing.T) {
	for _, o := range []Outcome{Found(1), Found(100), NotFound(), Failed("timeout")} {
		assert.Equal(t, o, ParseOutcome(o.String()), o.String())
	}
	assert.Equal(t, "Error: unknown error", Failed("  ").String())
	assert.Equal(t, "Error: status 502: <html> <body>down</body>", Failed(" status 502:\t<html>\r\n<body>down</body>\r\n").String())
	assert.Equal(t, KindFailed, ParseOutcome("0").Kind)
	assert.Equal(t, "", Outcome{}.String())
}

func TestTable_AppendKeepsOrderAndDuplicates(t *testing.T) {
	tbl := NewTable("example.com", "India", "in", "en")
	require.NotEmpty(t, tbl.RunID)

	tbl.Append(Record{Keyword: "a", Outcome: Found(3)})
	tbl.Append(Record{Keyword: "b", Outcome: NotFound()})
	tbl.Append(Record{Keyword: "a", Outcome: Failed("boom")})

	recs := tbl.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"a", "b", "a"}, []string{recs[0].Keyword, recs[1].Keyword, recs[2].Keyword})

	recs[0].Keyword = "mutated"
	assert.Equal(t, "a", tbl.Records()[0].Keyword, "Records returns a copy")
	assert.Equal(t, 3, tbl.Len())
	assert.Zero(t, tbl.Duration())
}

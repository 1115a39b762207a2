package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/FranksOps/serprank/internal/rank"
)

func sampleTable(showLocation bool) *rank.Table {
	t := rank.NewTable("example.com", "United States", "us", "en")
	t.ShowLocation = showLocation
	t.Append(rank.Record{Keyword: "shoes", Outcome: rank.Found(8), Location: "United States"})
	t.Append(rank.Record{Keyword: "boots", Outcome: rank.Found(3), Location: "United States"})
	t.Append(rank.Record{Keyword: "sandals", Outcome: rank.Found(3), Location: "United States"})
	t.Append(rank.Record{Keyword: "socks", Outcome: rank.NotFound(), Location: "United States"})
	t.Append(rank.Record{Keyword: "<script>alert(1)</script>", Outcome: rank.Failed("timeout"), Location: "United States"})
	t.FinishedAt = t.StartedAt.Add(5 * time.Second)
	return t
}

func TestGenerateSummary(t *testing.T) {
	summary := GenerateSummary(sampleTable(false))

	if summary.Keywords != 5 {
		t.Errorf("expected 5 keywords, got %d", summary.Keywords)
	}
	if summary.Found != 3 || summary.NotFound != 1 || summary.Errors != 1 {
		t.Errorf("unexpected counts %+v", summary)
	}
	if summary.BestRank != 3 || summary.BestKeyword != "boots" {
		t.Errorf("expected best rank 3 for boots, got %d for %q", summary.BestRank, summary.BestKeyword)
	}
	if got := summary.AverageRank; got < 4.66 || got > 4.67 {
		t.Errorf("expected average rank 4.67, got %v", got)
	}
	if summary.Duration != 5*time.Second {
		t.Errorf("expected 5s duration, got %v", summary.Duration)
	}
}

func TestGenerateSummary_Empty(t *testing.T) {
	summary := GenerateSummary(rank.NewTable("example.com", "India", "in", "en"))
	if summary.Keywords != 0 || summary.BestRank != 0 || summary.AverageRank != 0 {
		t.Errorf("unexpected summary for empty table: %+v", summary)
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, sampleTable(false))
	out := buf.String()

	for _, want := range []string{"KEYWORD", "RANK POSITION", "shoes", "Not in top 100", "Error: timeout", "TOTAL 5", "3 FOUND"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "LOCATION") {
		t.Error("Location column rendered without ShowLocation")
	}
	if strings.Index(out, "shoes") > strings.Index(out, "boots") {
		t.Error("rows are not in submission order")
	}

	buf.Reset()
	RenderTable(&buf, sampleTable(true))
	if !strings.Contains(buf.String(), "LOCATION") || !strings.Contains(buf.String(), "United States") {
		t.Errorf("expected Location column:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleTable(false)); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if doc.Summary.Found != 3 || len(doc.Rows) != 5 {
		t.Errorf("unexpected document %+v", doc.Summary)
	}
	if doc.Rows[3].Rank != "Not in top 100" {
		t.Errorf("unexpected row %+v", doc.Rows[3])
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, GenerateSummary(sampleTable(false))); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Domain:        example.com", "Found:         3", "Best rank:     3 (boots)", "Average rank:  4.7"} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, sampleTable(true), "/download/abc"); err != nil {
		t.Fatalf("WriteHTML failed: %v", err)
	}
	out := buf.String()

	if !strings.Contains(out, "<title>Rank Report: example.com</title>") {
		t.Error("HTML output missing title")
	}
	if strings.Contains(out, "<script>alert(1)</script>") {
		t.Error("keyword was not escaped")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Error("escaped keyword missing")
	}
	if !strings.Contains(out, `href="/download/abc"`) {
		t.Error("download link missing")
	}
	if !strings.Contains(out, "<th>Location</th>") {
		t.Error("location header missing")
	}
}

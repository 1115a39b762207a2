// Package report renders rank tables for people: a terminal table, a short
// summary in text or JSON, and a standalone HTML page.
package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"text/template"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/FranksOps/serprank/internal/rank"
	"github.com/FranksOps/serprank/internal/storage"
)

// Summary contains aggregated figures about one rank check.
type Summary struct {
	RunID       string        `json:"run_id"`
	Domain      string        `json:"domain"`
	Location    string        `json:"location"`
	Language    string        `json:"language"`
	Keywords    int           `json:"keywords"`
	Found       int           `json:"found"`
	NotFound    int           `json:"not_found"`
	Errors      int           `json:"errors"`
	BestRank    int           `json:"best_rank,omitempty"`
	BestKeyword string        `json:"best_keyword,omitempty"`
	AverageRank float64       `json:"average_rank,omitempty"` // over found keywords
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    time.Duration `json:"duration"`
}

// GenerateSummary counts outcomes in table. Ties for the best rank go to the
// keyword submitted first.
func GenerateSummary(t *rank.Table) Summary {
	s := Summary{
		RunID:     t.RunID,
		Domain:    t.Domain,
		Location:  t.Location,
		Language:  t.Language,
		StartTime: t.StartedAt,
		EndTime:   t.FinishedAt,
		Duration:  t.Duration(),
	}

	total := 0
	for _, rec := range t.Records() {
		s.Keywords++
		switch rec.Outcome.Kind {
		case rank.KindFound:
			s.Found++
			pos := rec.Outcome.Position
			total += pos
			if s.BestRank == 0 || pos < s.BestRank {
				s.BestRank = pos
				s.BestKeyword = rec.Keyword
			}
		case rank.KindNotFound:
			s.NotFound++
		default:
			s.Errors++
		}
	}
	if s.Found > 0 {
		s.AverageRank = float64(total) / float64(s.Found)
	}
	return s
}

// RenderTable writes table as a bordered terminal table with a totals
// footer. The Location column follows table.ShowLocation.
func RenderTable(w io.Writer, t *rank.Table) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)

	header := table.Row{"Keyword", "Rank Position"}
	if t.ShowLocation {
		header = append(header, "Location")
	}
	tw.AppendHeader(header)

	for _, rec := range t.Records() {
		row := table.Row{rec.Keyword, rec.Rank()}
		if t.ShowLocation {
			row = append(row, rec.Location)
		}
		tw.AppendRow(row)
	}

	s := GenerateSummary(t)
	footer := table.Row{fmt.Sprintf("Total %d", s.Keywords), fmt.Sprintf("%d found", s.Found)}
	if t.ShowLocation {
		footer = append(footer, "")
	}
	tw.AppendFooter(footer)
	tw.Render()
}

// Document is the JSON form of a finished check.
type Document struct {
	Summary Summary       `json:"summary"`
	Rows    []storage.Row `json:"rows"`
}

// WriteJSON writes the summary and every row of t as indented JSON.
func WriteJSON(w io.Writer, t *rank.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	doc := Document{Summary: GenerateSummary(t), Rows: storage.Rows(t)}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

const textTmpl = `Rank Check Summary
------------------
Domain:        {{.Domain}}
Location:      {{.Location}} ({{.Language}})
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Keywords:      {{.Keywords}}
Found:         {{.Found}}
Not in top 100: {{.NotFound}}
Errors:        {{.Errors}}
{{- if .BestRank}}
Best rank:     {{.BestRank}} ({{.BestKeyword}})
Average rank:  {{printf "%.1f" .AverageRank}}
{{- end}}
`

var textReport = template.Must(template.New("textReport").Parse(textTmpl))

// WriteText writes a human-readable summary.
func WriteText(w io.Writer, summary Summary) error {
	if err := textReport.Execute(w, summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// HTMLTable is the data behind the results fragment shared by WriteHTML
// and the web UI.
type HTMLTable struct {
	Summary      Summary
	ShowLocation bool
	Records      []rank.Record
	DownloadURL  string
}

// NewHTMLTable prepares t for HTMLResults. downloadURL may be empty.
func NewHTMLTable(t *rank.Table, downloadURL string) HTMLTable {
	return HTMLTable{
		Summary:      GenerateSummary(t),
		ShowLocation: t.ShowLocation,
		Records:      t.Records(),
		DownloadURL:  downloadURL,
	}
}

// HTMLResults is the results fragment. Execute it with an HTMLTable.
const HTMLResults = `{{define "results"}}
  <div class="stat-card"><div>Keywords</div><div class="stat-val">{{.Summary.Keywords}}</div></div>
  <div class="stat-card"><div>Found</div><div class="stat-val" style="color: green;">{{.Summary.Found}}</div></div>
  <div class="stat-card"><div>Not in top 100</div><div class="stat-val">{{.Summary.NotFound}}</div></div>
  <div class="stat-card"><div>Errors</div><div class="stat-val" style="color: {{if gt .Summary.Errors 0}}red{{else}}inherit{{end}};">{{.Summary.Errors}}</div></div>
  <table>
    <tr><th>Keyword</th><th>Rank Position</th>{{if .ShowLocation}}<th>Location</th>{{end}}</tr>
    {{- range .Records}}
    <tr><td>{{.Keyword}}</td><td>{{.Rank}}</td>{{if $.ShowLocation}}<td>{{.Location}}</td>{{end}}</tr>
    {{- end}}
  </table>
  {{- if .DownloadURL}}
  <p><a href="{{.DownloadURL}}" download>Download rankings.csv</a></p>
  {{- end}}
{{end}}`

// HTMLStyle is the stylesheet used by the HTML pages.
const HTMLStyle = `
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
`

const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Rank Report: {{.Summary.Domain}}</title>
<style>{{style}}</style>
</head>
<body>
  <h1>Rank Report: {{.Summary.Domain}}</h1>
  <p><strong>Location:</strong> {{.Summary.Location}} &middot; <strong>Duration:</strong> {{.Summary.Duration}}</p>
  {{template "results" .}}
</body>
</html>
`

var htmlReport = htmltemplate.Must(
	htmltemplate.Must(htmltemplate.New("htmlReport").Funcs(StyleFuncs).Parse(htmlTmpl)).Parse(HTMLResults),
)

// StyleFuncs exposes HTMLStyle to html/template as {{style}}.
var StyleFuncs = htmltemplate.FuncMap{
	"style": func() htmltemplate.CSS { return htmltemplate.CSS(HTMLStyle) },
}

// WriteHTML writes a standalone HTML report for t. Keywords and error text
// are escaped.
func WriteHTML(w io.Writer, t *rank.Table, downloadURL string) error {
	if err := htmlReport.Execute(w, NewHTMLTable(t, downloadURL)); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// Package web serves a small HTML front end for rank checks: a form, the
// results table and a CSV download of the last runs.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/serprank/internal/input"
	"github.com/FranksOps/serprank/internal/pipeline"
	"github.com/FranksOps/serprank/internal/rank"
	"github.com/FranksOps/serprank/internal/report"
	"github.com/FranksOps/serprank/internal/storage/csvbackend"
)

// DefaultMaxTables bounds how many finished runs are kept for download.
const DefaultMaxTables = 50

// ResolverFactory builds a resolver bound to apiKey.
type ResolverFactory func(apiKey string) (pipeline.Resolver, error)

// Config configures the Server.
type Config struct {
	Addr string
	// NewResolver is called once per check with the submitted (or default)
	// API key.
	NewResolver ResolverFactory
	// DefaultAPIKey is used when the form's key field is left empty.
	DefaultAPIKey string
	// NoAPIKey accepts checks without a key, for engines that need none.
	NoAPIKey bool
	// Language is the hl code sent with every lookup; empty means
	// input.DefaultLanguage.
	Language  string
	Interval  time.Duration
	Jitter    float64
	MaxTables int
	Logger    *slog.Logger
}

// Server holds finished tables in memory, oldest evicted first.
type Server struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	tables map[string]*rank.Table
	order  []string
}

// New validates cfg and returns a Server.
func New(cfg Config) (*Server, error) {
	if cfg.NewResolver == nil {
		return nil, errors.New("web: resolver factory is nil")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.MaxTables <= 0 {
		cfg.MaxTables = DefaultMaxTables
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, logger: logger, tables: make(map[string]*rank.Table)}, nil
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /check", s.handleCheck)
	mux.HandleFunc("GET /download/{runID}", s.handleDownload)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("web server listening", "addr", s.cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("web: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type pageData struct {
	Locations []input.Location
	Form      formValues
	Warning   string
	Results   *report.HTMLTable
	NeedKey   bool
}

type formValues struct {
	Domain   string
	Keywords string
	Location string
}

func (s *Server) page(form formValues) pageData {
	return pageData{
		Locations: input.Locations,
		Form:      form,
		NeedKey:   s.cfg.DefaultAPIKey == "" && !s.cfg.NoAPIKey,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.page(formValues{Location: input.DefaultLocation.Label}))
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	form := formValues{
		Domain:   r.PostFormValue("domain"),
		Keywords: r.PostFormValue("keywords"),
		Location: r.PostFormValue("location"),
	}
	data := s.page(form)

	apiKey := r.PostFormValue("api_key")
	if apiKey == "" {
		apiKey = s.cfg.DefaultAPIKey
	}
	req := input.Request{
		APIKey:   apiKey,
		Domain:   form.Domain,
		Keywords: input.ParseKeywords(form.Keywords),
		Location: form.Location,
		Language: s.cfg.Language,
		NoAPIKey: s.cfg.NoAPIKey,
	}
	if err := req.Validate(); err != nil {
		data.Warning = err.Error()
		s.render(w, http.StatusUnprocessableEntity, data)
		return
	}

	resolver, err := s.cfg.NewResolver(req.APIKey)
	if err != nil {
		s.logger.Error("build resolver", "err", err)
		data.Warning = err.Error()
		s.render(w, http.StatusInternalServerError, data)
		return
	}

	// From here on the page streams: the form first, then one progress
	// line per keyword, then the results.
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}
	if err := pageTmpl.ExecuteTemplate(w, "top", data); err != nil {
		s.logger.Error("render page", "err", err)
		return
	}
	flush()

	p := &pipeline.Pipeline{
		Resolver: resolver,
		Interval: s.cfg.Interval,
		Jitter:   s.cfg.Jitter,
		Logger:   s.logger,
		OnProgress: func(st pipeline.State) {
			line, ok := newProgressLine(st)
			if !ok {
				return
			}
			if err := pageTmpl.ExecuteTemplate(w, "progress", line); err != nil {
				s.logger.Warn("render progress", "err", err)
			}
			flush()
		},
	}
	table, err := p.Run(r.Context(), req)
	switch {
	case table == nil:
		data.Warning = err.Error()
	case err != nil:
		data.Warning = "check interrupted: " + err.Error()
	}
	if table != nil {
		s.store(table)
		results := report.NewHTMLTable(table, "/download/"+table.RunID)
		data.Results = &results
	}
	if err := pageTmpl.ExecuteTemplate(w, "bottom", data); err != nil {
		s.logger.Error("render page", "err", err)
	}
}

// progressLine is one streamed "[i/N] keyword → rank" entry.
type progressLine struct {
	Completed int
	Total     int
	Keyword   string
	Rank      string
	Percent   int
}

func newProgressLine(st pipeline.State) (progressLine, bool) {
	if st.Phase != pipeline.PhaseResolving || st.Completed == 0 {
		return progressLine{}, false
	}
	rec, _ := st.Last()
	return progressLine{
		Completed: st.Completed,
		Total:     st.Total,
		Keyword:   rec.Keyword,
		Rank:      rec.Rank(),
		Percent:   int(st.Fraction()*100 + 0.5),
	}, true
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	table, ok := s.lookup(r.PathValue("runID"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	if err := csvbackend.Encode(&buf, table); err != nil {
		s.logger.Error("encode csv", "run_id", table.RunID, "err", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", csvbackend.ContentType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+csvbackend.FileName+`"`)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) store(t *rank.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.RunID] = t
	s.order = append(s.order, t.RunID)
	for len(s.order) > s.cfg.MaxTables {
		delete(s.tables, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Server) lookup(runID string) (*rank.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[runID]
	return t, ok
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, data); err != nil {
		s.logger.Error("render page", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

const pageHTML = `{{template "top" .}}{{template "bottom" .}}`

const topHTML = `{{define "top"}}<!DOCTYPE html>
<html>
<head>
<title>serprank</title>
<style>{{style}}
  form label { display: block; margin-top: 12px; }
  input[type=text], input[type=password], textarea, select { width: 420px; }
  .warning { padding: 10px; background: #fff3cd; border: 1px solid #e0c060; }
  .progress { margin: 2px 0; font-family: monospace; }
  .progress progress { width: 200px; vertical-align: middle; }
</style>
</head>
<body>
  <h1>Keyword Rank Checker</h1>
  <form method="post" action="/check">
    <label>SerpApi key{{if not .NeedKey}} (optional){{end}}
      <input type="password" name="api_key" autocomplete="off"></label>
    <label>Target domain
      <input type="text" name="domain" value="{{.Form.Domain}}" placeholder="example.com"></label>
    <label>Keywords (comma or newline separated)
      <textarea name="keywords" rows="8">{{.Form.Keywords}}</textarea></label>
    <label>Location
      <select name="location">
      {{- range .Locations}}
        <option value="{{.Label}}"{{if eq .Label $.Form.Location}} selected{{end}}>{{.Label}}</option>
      {{- end}}
      </select></label>
    <p><button type="submit">Check rankings</button></p>
  </form>
{{end}}`

const progressHTML = `{{define "progress"}}  <p class="progress"><progress value="{{.Completed}}" max="{{.Total}}"></progress> [{{.Completed}}/{{.Total}}] {{.Keyword}} → {{.Rank}} ({{.Percent}}%)</p>
{{end}}`

const bottomHTML = `{{define "bottom"}}
  {{- if .Warning}}
  <p class="warning">{{.Warning}}</p>
  {{- end}}
  {{- with .Results}}
  <h2>Results for {{.Summary.Domain}}</h2>
  {{template "results" .}}
  {{- end}}
</body>
</html>
{{end}}`

var pageTmpl = template.Must(template.New("page").Funcs(report.StyleFuncs).Parse(
	pageHTML + topHTML + progressHTML + bottomHTML + report.HTMLResults,
))

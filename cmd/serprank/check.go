package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FranksOps/serprank/internal/input"
	"github.com/FranksOps/serprank/internal/metrics"
	"github.com/FranksOps/serprank/internal/pipeline"
	"github.com/FranksOps/serprank/internal/rank"
	"github.com/FranksOps/serprank/internal/report"
	"github.com/FranksOps/serprank/internal/storage"
	"github.com/FranksOps/serprank/internal/storage/csvbackend"
)

type checkFlags struct {
	keywords     string
	keywordsFile string
	job          string
	exports      []string
	format       string
	quiet        bool
	// languageSet reports an explicit --language, which beats the job file.
	languageSet bool
}

func newCheckCmd(a *app) *cobra.Command {
	var f checkFlags
	cmd := &cobra.Command{
		Use:   "check [keyword...]",
		Short: "Look up the rank of a domain for each keyword",
		Example: `  serprank check --domain example.com --keywords "running shoes, trail shoes"
  serprank check --domain example.com --keywords-file kw.txt --location "United States" --export sqlite=ranks.db
  serprank check --job job.yaml --format json --output ""`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.languageSet = cmd.Flags().Changed("language")
			return runCheck(cmd.Context(), a, f, args)
		},
	}

	fl := cmd.Flags()
	fl.String("domain", "", "target domain, matched as a substring of result links")
	fl.StringVar(&f.keywords, "keywords", "", "keywords separated by commas or newlines")
	fl.StringVar(&f.keywordsFile, "keywords-file", "", "file of keywords separated by commas or newlines")
	fl.StringVar(&f.job, "job", "", "YAML job file with domain, location, language and keywords")
	fl.String("location", "", `search location label or country code (default "India")`)
	fl.String("language", input.DefaultLanguage, "interface language code (hl)")
	fl.String("output", csvbackend.FileName, `CSV file to write ("" to skip)`)
	fl.StringArrayVar(&f.exports, "export", nil, "extra export, kind=target: csv, json, sqlite or postgres (repeatable)")
	fl.StringVar(&f.format, "format", "table", "stdout format: table, text, json or html")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "suppress the progress line")

	for key, flag := range map[string]string{
		"domain": "domain", "location": "location", "language": "language", "output": "output",
	} {
		_ = a.v.BindPFlag(key, fl.Lookup(flag))
	}
	return cmd
}

// buildRequest merges the job file, flags and positional keywords. Flags
// override job values, and a job's language beats one that only comes from
// the environment, config file or default. Keyword sources are concatenated in the order job,
// --keywords-file, --keywords, arguments.
func buildRequest(s settings, f checkFlags, args []string) (input.Request, error) {
	var req input.Request
	if f.job != "" {
		job, err := input.LoadJob(f.job)
		if err != nil {
			return req, err
		}
		req = job.Request()
	}

	if f.keywordsFile != "" {
		data, err := os.ReadFile(f.keywordsFile)
		if err != nil {
			return req, fmt.Errorf("read keywords file: %w", err)
		}
		req.Keywords = append(req.Keywords, input.ParseKeywords(string(data))...)
	}
	req.Keywords = append(req.Keywords, input.ParseKeywords(f.keywords)...)
	req.Keywords = append(req.Keywords, input.ParseKeywords(strings.Join(args, "\n"))...)

	if s.Domain != "" {
		req.Domain = s.Domain
	}
	if s.Location != "" {
		req.Location = s.Location
	}
	if f.languageSet || req.Language == "" {
		req.Language = s.Language
	}
	req.APIKey = s.APIKey
	req.NoAPIKey = s.Engine == engineScrape
	return req, nil
}

func runCheck(ctx context.Context, a *app, f checkFlags, args []string) error {
	s, err := a.settings()
	if err != nil {
		return err
	}
	if !validFormat(f.format) {
		return fmt.Errorf("unknown format %q (table, text, json or html)", f.format)
	}

	req, err := buildRequest(s, f, args)
	if err != nil {
		return err
	}
	if err := req.Validate(); err != nil {
		fmt.Fprintf(a.stderr, "warning: %v\n", err)
		return err
	}

	backends, err := openExports(ctx, f.exports)
	if err != nil {
		return err
	}
	defer func() { _ = closeAll(backends) }()

	if s.MetricsPort > 0 {
		srv := metrics.Start(s.MetricsPort, a.logger)
		defer func() { _ = srv.Stop(context.Background()) }()
	}

	factory, cleanup, err := newResolverFactory(s, a.logger)
	if err != nil {
		return err
	}
	defer cleanup()

	resolver, err := factory(req.APIKey)
	if err != nil {
		return err
	}

	p := &pipeline.Pipeline{
		Resolver: resolver,
		Interval: s.pacing(),
		Jitter:   s.Jitter,
		Logger:   a.logger,
	}
	if !f.quiet {
		p.OnProgress = progressPrinter(a.stderr)
	}

	table, runErr := p.Run(ctx, req)
	if table == nil {
		return runErr
	}

	if err := writeStdout(a.stdout, f.format, table); err != nil {
		return err
	}

	if s.Output != "" {
		out, err := csvbackend.New(s.Output)
		if err != nil {
			return err
		}
		backends = append(backends, out)
	}
	// exports outlive an interrupted run so the partial table is kept
	if err := storage.SaveAll(context.WithoutCancel(ctx), table, backends...); err != nil {
		return err
	}
	if s.Output != "" {
		a.logger.Info("rankings written", "path", s.Output, "rows", table.Len())
	}
	return runErr
}

func validFormat(format string) bool {
	switch format {
	case "table", "text", "json", "html":
		return true
	}
	return false
}

func writeStdout(w io.Writer, format string, table *rank.Table) error {
	switch format {
	case "json":
		return report.WriteJSON(w, table)
	case "html":
		return report.WriteHTML(w, table, "")
	case "text":
		report.RenderTable(w, table)
		fmt.Fprintln(w)
		return report.WriteText(w, report.GenerateSummary(table))
	default:
		report.RenderTable(w, table)
		return nil
	}
}

// progressPrinter writes "[i/N] keyword -> rank (pct%)" after each keyword.
func progressPrinter(w io.Writer) func(pipeline.State) {
	return func(st pipeline.State) {
		if st.Phase != pipeline.PhaseResolving || st.Completed == 0 {
			return
		}
		rec, _ := st.Last()
		fmt.Fprintf(w, "[%d/%d] %s → %s (%.0f%%)\n",
			st.Completed, st.Total, rec.Keyword, rec.Rank(), st.Fraction()*100)
	}
}

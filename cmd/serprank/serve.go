package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/FranksOps/serprank/internal/metrics"
	"github.com/FranksOps/serprank/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web form",
		Long: `serve starts an HTML front end: enter a key, a domain and keywords, pick a
location, and download the results as rankings.csv. Finished runs are kept in
memory only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}

			factory, cleanup, err := newResolverFactory(s, a.logger)
			if err != nil {
				return err
			}
			defer cleanup()

			if s.MetricsPort > 0 {
				srv := metrics.Start(s.MetricsPort, a.logger)
				defer func() { _ = srv.Stop(context.Background()) }()
			}

			srv, err := web.New(web.Config{
				Addr:          s.Listen,
				NewResolver:   factory,
				DefaultAPIKey: s.APIKey,
				NoAPIKey:      s.Engine == engineScrape,
				Language:      s.Language,
				Interval:      s.pacing(),
				Jitter:        s.Jitter,
				Logger:        a.logger,
			})
			if err != nil {
				return err
			}
			return srv.ListenAndServe(cmd.Context())
		},
	}
	cmd.Flags().String("listen", ":8080", "address to listen on")
	_ = a.v.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	return cmd
}

package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values for LookupsTotal.
const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

var (
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serprank_lookups_total",
			Help: "Total number of keyword rank lookups by outcome",
		},
		[]string{"engine", "outcome"},
	)

	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "serprank_lookup_duration_seconds",
			Help:    "Duration of a single search provider call in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"engine"},
	)

	RankPosition = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "serprank_rank_position",
			Help:    "Position of the target domain when found",
			Buckets: []float64{1, 3, 5, 10, 20, 30, 50, 100},
		},
		[]string{"engine"},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "serprank_proxy_failures_total",
			Help: "Total number of proxy failures while fetching result pages",
		},
		[]string{"proxy"},
	)
)

// RecordLookup updates the lookup metrics. position is only observed for
// OutcomeFound.
func RecordLookup(engine, outcome string, d time.Duration, position int) {
	LookupsTotal.WithLabelValues(engine, outcome).Inc()
	LookupDuration.WithLabelValues(engine).Observe(d.Seconds())
	if outcome == OutcomeFound {
		RankPosition.WithLabelValues(engine).Observe(float64(position))
	}
}

// Server encapsulates an HTTP server for Prometheus metrics.
type Server struct {
	srv *http.Server
}

// Start begins listening on the specified port and exposes /metrics.
func Start(port int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "port", port, "err", err)
		}
	}()

	return &Server{srv: srv}
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

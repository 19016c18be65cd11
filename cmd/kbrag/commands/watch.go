package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/54b3r/kbrag-go/internal/ingestion"
	"github.com/54b3r/kbrag-go/internal/logging"
)

// NewWatchCmd constructs the `kbrag watch <dir>` command.
func NewWatchCmd() *cobra.Command {
	var (
		metricsAddr string
		settle      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Add new and changed files in a directory as they appear",
		Long: `Watch a directory and run 'kbrag add' on every supported file that is created
or written. A file is added once it has gone --settle without further events,
so multi-part writes are ingested once. Failed adds are logged and watching
continues. Subdirectories are not watched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.FromContext(cmd.Context())
			return withBackend(cmd.Context(), log, func(ctx context.Context, b *backend) error {
				reg := prometheus.NewRegistry()
				p, err := newPipeline(b, ingestion.NewMetrics(reg))
				if err != nil {
					return fmt.Errorf("watch: %w", err)
				}
				w, err := ingestion.NewWatcher(args[0], p)
				if err != nil {
					return fmt.Errorf("watch: %w", err)
				}
				w.Settle = settle

				if metricsAddr != "" {
					go serveMetrics(ctx, log, metricsAddr, reg)
				}

				log.Info("watching", slog.String("dir", args[0]))
				return w.Run(ctx)
			})
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", ingestion.DefaultSettle, "Quiet period after the last write before a file is added")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve ingestion metrics on this address (e.g. 127.0.0.1:9100)")
	return cmd
}

// serveMetrics serves reg on addr until ctx is cancelled.
func serveMetrics(ctx context.Context, log *slog.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics listener failed", slog.Any("error", err))
	}
}

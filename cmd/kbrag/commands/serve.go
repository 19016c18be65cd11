package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/kbrag-go/internal/logging"
	"github.com/54b3r/kbrag-go/internal/query"
	"github.com/54b3r/kbrag-go/internal/server"
)

// NewServeCmd constructs the `kbrag serve` command, which starts the HTTP API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the kbrag HTTP API",
		Long: `Start the HTTP API in front of the query service.

Routes:
  POST /api/query                 search with filters and agency boost
  GET  /api/methodology/{task}    methodology shortcut
  GET  /api/examples              client example catalogue
  GET  /api/examples/{client}     case-study shortcut
  GET  /api/stats                 document count
  GET  /api/health, /api/ready    probes
  GET  /metrics                   Prometheus metrics

Set KBRAG_API_KEY to require a Bearer token on the /api routes.

Examples:
  kbrag serve
  kbrag serve --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.FromContext(cmd.Context())
			return withBackend(cmd.Context(), log, func(ctx context.Context, b *backend) error {
				svc, err := newQueryService(b, query.NewMetrics(prometheus.DefaultRegisterer))
				if err != nil {
					return fmt.Errorf("serve: %w", err)
				}
				log.Info("serve starting", slog.String("collection", svc.Collection()))

				srv, err := server.New(svc, &server.Config{
					Host:    host,
					Port:    port,
					Logger:  log,
					Pingers: b.pingers,
					APIKey:  os.Getenv("KBRAG_API_KEY"),
				})
				if err != nil {
					return fmt.Errorf("serve: failed to create server: %w", err)
				}
				return srv.Start(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&host, "host", getEnvOrDefault("KBRAG_HOST", "127.0.0.1"), "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", getEnvInt("KBRAG_PORT", 8080), "TCP port to listen on")
	return cmd
}

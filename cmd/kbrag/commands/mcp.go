package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/54b3r/kbrag-go/internal/logging"
	"github.com/54b3r/kbrag-go/internal/mcpserver"
)

// NewMCPCmd constructs the `kbrag mcp` command.
func NewMCPCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the knowledge base over the Model Context Protocol",
		Long: `Run an MCP server exposing query_knowledge, get_methodology, list_examples,
get_example and get_deliverable_schema, plus the rag://stats resource.

The server speaks stdio by default. Use --http to serve the streamable HTTP
transport instead. Logs always go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.FromContext(cmd.Context())
			return withBackend(cmd.Context(), log, func(ctx context.Context, b *backend) error {
				svc, err := newQueryService(b, nil)
				if err != nil {
					return fmt.Errorf("mcp: %w", err)
				}
				srv, err := mcpserver.NewServer(&mcpserver.Ports{Knowledge: svc, SchemaDir: schemaDir()})
				if err != nil {
					return fmt.Errorf("mcp: %w", err)
				}

				if httpAddr != "" {
					log.Info("mcp: serving streamable HTTP", slog.String("addr", httpAddr))
					return srv.RunHTTP(ctx, httpAddr)
				}
				log.Info("mcp: serving stdio")
				return srv.Run(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve streamable HTTP on this address instead of stdio (e.g. 127.0.0.1:8081)")
	return cmd
}

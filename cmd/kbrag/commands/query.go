package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/spf13/cobra"

	"github.com/54b3r/kbrag-go/internal/knowledge"
	"github.com/54b3r/kbrag-go/internal/logging"
	"github.com/54b3r/kbrag-go/internal/query"
)

// NewQueryCmd constructs the `kbrag query <text>` command.
func NewQueryCmd() *cobra.Command {
	var (
		n           int
		contentType string
		topic       string
		noBoost     bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Query the knowledge base",
		Long: `Embed the query, search the collection, rerank agency material ahead of
course material, and print the formatted results.

Examples:
  kbrag query "how to structure brand campaigns"
  kbrag query "negative keywords" --content-type methodology --n 5
  kbrag query "headline length" --topic ad_copy --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.FromContext(cmd.Context())
			return withBackend(cmd.Context(), log, func(ctx context.Context, b *backend) error {
				svc, err := newQueryService(b, nil)
				if err != nil {
					return fmt.Errorf("query: %w", err)
				}

				if asJSON {
					return printDocuments(ctx, cmd, svc, args[0], n, !noBoost, contentType, topic)
				}

				req := query.NewRequest(args[0])
				req.N = n
				req.ContentType = contentType
				req.Topic = topic
				req.BoostAgency = !noBoost
				fmt.Fprintln(cmd.OutOrStdout(), svc.QueryKnowledge(ctx, req))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&n, "n", "n", query.DefaultN, "Number of results")
	cmd.Flags().StringVar(&contentType, "content-type", "", "Only return chunks with this content_type")
	cmd.Flags().StringVar(&topic, "topic", "", "Only return chunks with this topic")
	cmd.Flags().BoolVar(&noBoost, "no-boost", false, "Do not rank agency material ahead of course material")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the results as eino documents in JSON")
	return cmd
}

// printDocuments runs the query through the eino retriever adapter and
// prints the documents as indented JSON.
func printDocuments(ctx context.Context, cmd *cobra.Command, svc *query.Service, text string, n int, boost bool, contentType, topic string) error {
	r, err := query.NewRetriever(svc, n, boost)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	dsl := map[string]any{}
	if contentType != "" {
		dsl[knowledge.KeyContentType] = contentType
	}
	if topic != "" {
		dsl[knowledge.KeyTopic] = topic
	}

	docs, err := r.Retrieve(ctx, text, retriever.WithDSLInfo(dsl))
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

// NewStatsCmd constructs the `kbrag stats` command.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the number of embedded documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.FromContext(cmd.Context())
			return withBackend(cmd.Context(), log, func(ctx context.Context, b *backend) error {
				svc, err := newQueryService(b, nil)
				if err != nil {
					return fmt.Errorf("stats: %w", err)
				}
				text, err := svc.Stats(ctx)
				if err != nil {
					return fmt.Errorf("stats: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
}

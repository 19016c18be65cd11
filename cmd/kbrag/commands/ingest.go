package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/54b3r/kbrag-go/internal/ingestion"
	"github.com/54b3r/kbrag-go/internal/logging"
)

// NewRebuildCmd constructs the `kbrag rebuild` command.
func NewRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Drop and rebuild the knowledge base collection from every source",
		Long: `Delete the collection and rebuild it from:

  - the agency markdown files in <root>/Data Examples
  - case studies and audit rules in <root>/extracted_raw.json (see 'kbrag extract')
  - course transcripts (*.txt) under <root>/transcripts

Near-duplicate chunks are removed before anything is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.FromContext(cmd.Context())
			return withBackend(cmd.Context(), log, func(ctx context.Context, b *backend) error {
				p, err := newPipeline(b, nil)
				if err != nil {
					return fmt.Errorf("rebuild: %w", err)
				}
				n, err := p.Rebuild(ctx)
				if err != nil {
					return fmt.Errorf("rebuild: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt collection with %d chunks\n", n)
				return nil
			})
		},
	}
}

// NewAddCmd constructs the `kbrag add <path>` command.
func NewAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Add one file to the knowledge base",
		Long: `Chunk one .txt, .md, .csv or .xlsx file and append it to the collection.

Files inside the Data Examples directory are tagged as agency material with
priority 2, everything else as course material. The file's chunks are
deduplicated among themselves only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.FromContext(cmd.Context())
			path := args[0]
			return withBackend(cmd.Context(), log, func(ctx context.Context, b *backend) error {
				p, err := newPipeline(b, nil)
				if err != nil {
					return fmt.Errorf("add: %w", err)
				}
				n, err := p.AddFile(ctx, path)
				if err != nil {
					return fmt.Errorf("add: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d chunks from %s\n", n, path)
				return nil
			})
		},
	}
}

// NewExtractCmd constructs the `kbrag extract` command.
func NewExtractCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract case studies and audit rules into extracted_raw.json",
		Long: `Scan the Data Examples directory: every .xlsx becomes a case study summary and
every .docx contributes its rule-like paragraphs. The result is written as
JSON and read by 'kbrag rebuild'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.FromContext(cmd.Context())
			src := sourcesFromEnv()
			if out == "" {
				out = src.ExtractedJSON
			}

			e, err := ingestion.Extract(src.DataExamplesDir)
			if err != nil {
				return fmt.Errorf("extract: %w", err)
			}
			if err := ingestion.WriteExtracted(out, e); err != nil {
				return fmt.Errorf("extract: %w", err)
			}

			log.Info("extraction complete",
				slog.String("dir", src.DataExamplesDir),
				slog.Int("case_studies", len(e.CaseStudies)),
				slog.Int("audits", len(e.Audits)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d case studies and %d audits to %s\n",
				len(e.CaseStudies), len(e.Audits), filepath.Clean(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default: KBRAG_EXTRACTED_JSON or <root>/extracted_raw.json)")
	return cmd
}

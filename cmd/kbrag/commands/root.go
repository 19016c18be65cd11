// Package commands defines all Cobra CLI commands for the kbrag binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/54b3r/kbrag-go/internal/audit"
	"github.com/54b3r/kbrag-go/internal/config"
	"github.com/54b3r/kbrag-go/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kbrag",
		Short: "Build and query the agency knowledge base",
		Long: `kbrag ingests agency methodology, case studies, audit rules and course
transcripts into a vector store and answers reranked queries.

Paths and backends are configured through environment variables
(KBRAG_ROOT, KBRAG_STORE, EMBEDDING_PROVIDER, ...) or a YAML config file
(~/.kbrag/config.yaml). Environment variables always win.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}

			// Config may have changed LOG_LEVEL/LOG_FORMAT.
			log = logging.New()
			cmd.SetContext(logging.WithLogger(cmd.Context(), log))

			audit.LogCommandStart(log, cmd.Name(), path)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.kbrag/config.yaml)")

	root.AddCommand(
		NewRebuildCmd(),
		NewAddCmd(),
		NewQueryCmd(),
		NewStatsCmd(),
		NewExtractCmd(),
		NewServeCmd(),
		NewMCPCmd(),
		NewWatchCmd(),
		NewToolsCmd(),
		NewVersionCmd(),
	)

	return root
}

package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/spf13/cobra"

	"github.com/54b3r/kbrag-go/internal/logging"
	"github.com/54b3r/kbrag-go/internal/tools"
)

// NewToolsCmd constructs the `kbrag tools` command.
func NewToolsCmd() *cobra.Command {
	var call string
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List or invoke the eino agent tools",
		Long: `Print the definitions of the eino tools that expose the knowledge base to
an agent, or invoke one with JSON arguments.

Examples:
  kbrag tools
  kbrag tools --call get_methodology --args '{"task_type":"ad_copy"}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.FromContext(cmd.Context())
			return withBackend(cmd.Context(), log, func(ctx context.Context, b *backend) error {
				svc, err := newQueryService(b, nil)
				if err != nil {
					return fmt.Errorf("tools: %w", err)
				}
				all := tools.All(svc)

				if call == "" {
					infos := make([]*schema.ToolInfo, 0, len(all))
					for _, t := range tools.BaseTools(all) {
						info, err := t.Info(ctx)
						if err != nil {
							return fmt.Errorf("tools: %w", err)
						}
						infos = append(infos, info)
					}
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(infos)
				}

				for _, t := range all {
					if t.Name() != call {
						continue
					}
					out, err := t.InvokableRun(ctx, argsJSON)
					if err != nil {
						return fmt.Errorf("tools: %s: %w", call, err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), out)
					return nil
				}
				return fmt.Errorf("tools: unknown tool %q", call)
			})
		},
	}

	cmd.Flags().StringVar(&call, "call", "", "Invoke the named tool instead of listing")
	cmd.Flags().StringVar(&argsJSON, "args", "{}", "JSON arguments for --call")
	return cmd
}

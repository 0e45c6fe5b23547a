package commands

import (
	"github.com/spf13/cobra"

	"github.com/hostforge/hostforge/cmd/hostforge/handlers"
)

// History returns the history command.
func History() *cobra.Command {
	var (
		configPath string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show previous provisioning runs",
		Long: `History lists recent runs from the run journal, newest first.
Given a run ID it shows the stages of that run.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return handlers.History(cmd.Context(), configPath, limit, runID)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (YAML or TOML)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")

	return cmd
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/hostforge/hostforge/cmd/hostforge/handlers"
)

// Check returns the check command.
func Check() *cobra.Command {
	var (
		configPath string
		verbosity  int
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether this host can be provisioned",
		Long: `Check runs only the precondition checks (privilege, OS version and
CPU features) and prints the detected host profile. Nothing is installed.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Check(cmd.Context(), configPath, verbosity)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (YAML or TOML)")
	cmd.Flags().CountVarP(&verbosity, "verbose", "v", "Increase diagnostic output (repeatable)")

	return cmd
}

package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/hostforge/hostforge/cmd/hostforge/handlers"
)

// Install returns the install command.
func Install() *cobra.Command {
	opts := handlers.InstallOptions{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Provision this host and launch the application",
		Long: `Install runs the provisioning pipeline on this host:

  1. PRECONDITIONS   root privilege, supported OS version, CPU features
  2. SYSTEM_DEPS     apt index refresh and base packages
  3. DB_ENGINE       MongoDB repository, signing key, package and service
  4. ARTIFACT_FETCH  fresh install root, release bundle, geo data files
  5. RUNTIME_ENV     Python virtual environment and requirements
  6. ALIAS           shell alias in the invoking user's profile
  7. LAUNCH          hand the process over to the application menu

The pipeline stops at the first failing stage; rerunning it is safe.
The install root is deleted and recreated on every run.

Example:
  sudo hostforge install --yes
  sudo hostforge install -c /etc/hostforge/hostforge.yaml --no-launch`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Version = version
			return handlers.Install(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (YAML or TOML)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Replace an existing installation without asking")
	cmd.Flags().BoolVar(&opts.NoLaunch, "no-launch", false, "Do not hand over to the application after provisioning")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", time.Duration(0), "Overall time limit for the run (0 for none)")
	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase diagnostic output (repeatable)")

	return cmd
}

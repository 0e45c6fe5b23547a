// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hostforge/hostforge/cmd/hostforge/handlers"
)

// Root returns the root command for the hostforge CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hostforge",
		Short:         "Provision a host for the appstack application",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w\n\n%s", handlers.ErrUsage, err, c.UsageString())
	})

	cmd.AddCommand(Install())
	cmd.AddCommand(Check())
	cmd.AddCommand(History())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}

// usageArgs wraps a positional argument validator so its errors map to the
// usage exit code.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return fmt.Errorf("%w: %w", handlers.ErrUsage, err)
		}
		return nil
	}
}

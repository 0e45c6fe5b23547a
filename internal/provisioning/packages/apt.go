package packages

import (
	"context"
	"fmt"

	"github.com/hostforge/hostforge/internal/platform/system"
)

// noninteractive keeps debconf from prompting during installs.
const noninteractive = "DEBIAN_FRONTEND=noninteractive"

// Apt drives apt-get through a command runner.
type Apt struct {
	runner system.Runner
}

// NewApt creates an apt client.
func NewApt(runner system.Runner) *Apt {
	return &Apt{runner: runner}
}

// Update refreshes the package index.
func (a *Apt) Update(ctx context.Context) error {
	cmd := system.Command{Name: "apt-get", Args: []string{"update"}, Env: []string{noninteractive}}
	if err := a.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to refresh package index: %w", err)
	}
	return nil
}

// Install installs packages in one batched call. Already installed packages
// are left to apt to skip.
func (a *Apt) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	args := append([]string{"install", "-y"}, pkgs...)
	cmd := system.Command{Name: "apt-get", Args: args, Env: []string{noninteractive}}
	if err := a.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to install packages: %w", err)
	}
	return nil
}

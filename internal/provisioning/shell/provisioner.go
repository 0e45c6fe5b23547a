package shell

import (
	"errors"
	"fmt"
	"os"
	"os/user"

	"github.com/hostforge/hostforge/internal/provisioning"
)

// Provisioner adds the alias. Its failures are warnings.
type Provisioner struct {
	Getenv     func(string) string
	LookupUser func(string) (*user.User, error)
}

// NewProvisioner creates the ALIAS phase.
func NewProvisioner() *Provisioner {
	return &Provisioner{Getenv: os.Getenv, LookupUser: user.Lookup}
}

// Name implements provisioning.Phase.
func (p *Provisioner) Name() string { return "shell alias" }

// Stage implements provisioning.Phase.
func (p *Provisioner) Stage() provisioning.Stage { return provisioning.StageAlias }

// Provision runs EnsureAlias and never fails the pipeline.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	if err := p.EnsureAlias(ctx); err != nil {
		provisioning.LogWarning(ctx.Observer, provisioning.StageAlias.String(),
			fmt.Sprintf("alias not installed: %v", err))
	}
	return nil
}

// EnsureAlias appends the alias to the invoking user's profile if absent.
func (p *Provisioner) EnsureAlias(ctx *provisioning.Context) error {
	cfg := ctx.Config
	phase := provisioning.StageAlias.String()
	name := cfg.Shell.AliasName
	line := BuildAlias(name, cfg.InstallRoot, cfg.Runtime.VenvDir, cfg.Launch.EntryPoint)

	profile, err := ResolveProfile(cfg.Shell.ProfileFile, p.Getenv, p.LookupUser)
	if err != nil {
		return err
	}

	_, statErr := os.Stat(profile.Path)
	created := errors.Is(statErr, os.ErrNotExist)

	added, err := Ensure(profile.Path, name, line, cfg.Shell.MatchMode)
	if err != nil {
		return err
	}
	if !added {
		provisioning.LogResourceExists(ctx.Observer, phase, "alias "+name, profile.Path)
		return nil
	}

	if created && profile.UID >= 0 {
		if err := os.Lchown(profile.Path, profile.UID, profile.GID); err != nil {
			ctx.Log.Error(err, "failed to hand profile to invoking user", "path", profile.Path)
		}
	}

	ctx.State.AliasAdded = true
	provisioning.LogResourceCreated(ctx.Observer, phase, "alias "+name, profile.Path)
	ctx.Observer.Info("Open a new shell or run 'source %s' to use '%s'", profile.Path, name)
	return nil
}

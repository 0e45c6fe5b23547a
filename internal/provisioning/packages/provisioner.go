package packages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hostforge/hostforge/internal/platform/system"
	"github.com/hostforge/hostforge/internal/provisioning"
)

// KeyFetcher downloads the repository signing key.
type KeyFetcher interface {
	Bytes(ctx context.Context, url string) ([]byte, error)
}

// SystemProvisioner installs the configured system package set.
type SystemProvisioner struct {
	apt *Apt
}

// NewSystemProvisioner creates the SYSTEM_DEPS phase.
func NewSystemProvisioner(apt *Apt) *SystemProvisioner {
	return &SystemProvisioner{apt: apt}
}

// Name implements provisioning.Phase.
func (p *SystemProvisioner) Name() string { return "system packages" }

// Stage implements provisioning.Phase.
func (p *SystemProvisioner) Stage() provisioning.Stage { return provisioning.StageSystemDeps }

// Provision refreshes the index and installs all packages in one call.
func (p *SystemProvisioner) Provision(ctx *provisioning.Context) error {
	pkgs := ctx.Config.Packages
	ctx.Observer.Info("Installing %d system packages: %s", len(pkgs), strings.Join(pkgs, " "))

	if err := p.apt.Update(ctx); err != nil {
		return provisioning.Fail(provisioning.DependencyInstallFailure, "apt-update", err)
	}
	if err := p.apt.Install(ctx, pkgs...); err != nil {
		return provisioning.Fail(provisioning.DependencyInstallFailure, "apt-install", err)
	}

	provisioning.LogResourceCreated(ctx.Observer, provisioning.StageSystemDeps.String(), "system packages", "apt")
	return nil
}

// DatabaseProvisioner installs and starts the database engine.
type DatabaseProvisioner struct {
	apt  *Apt
	keys KeyFetcher
}

// NewDatabaseProvisioner creates the DB_ENGINE phase.
func NewDatabaseProvisioner(apt *Apt, keys KeyFetcher) *DatabaseProvisioner {
	return &DatabaseProvisioner{apt: apt, keys: keys}
}

// Name implements provisioning.Phase.
func (p *DatabaseProvisioner) Name() string { return "database engine" }

// Stage implements provisioning.Phase.
func (p *DatabaseProvisioner) Stage() provisioning.Stage { return provisioning.StageDBEngine }

// Provision installs the engine unless its binary is already on PATH.
func (p *DatabaseProvisioner) Provision(ctx *provisioning.Context) error {
	db := ctx.Config.Database
	phase := provisioning.StageDBEngine.String()

	if path, err := ctx.Runner.LookPath(db.Binary); err == nil {
		ctx.State.DBSkipped = true
		provisioning.LogResourceExists(ctx.Observer, phase, "database engine", path)
		return nil
	}

	if ctx.State.Host == nil {
		return provisioning.Fail(provisioning.UnexpectedCommandFailure, "resolve-repository",
			errors.New("host profile missing; preconditions did not run"))
	}
	repo, err := RepositoryFor(ctx.State.Host.ID)
	if err != nil {
		return provisioning.Fail(provisioning.UnexpectedCommandFailure, "resolve-repository", err)
	}

	ctx.Observer.Info("Importing signing key from %s", db.KeyURL)
	armored, err := p.keys.Bytes(ctx, db.KeyURL)
	if err != nil {
		return provisioning.Fail(provisioning.DependencyInstallFailure, "fetch-key", err)
	}
	keyring, err := Dearmor(armored)
	if err != nil {
		return provisioning.Fail(provisioning.DependencyInstallFailure, "import-key", err)
	}
	if err := writeFile(db.KeyringPath, keyring, 0o644); err != nil {
		return provisioning.Fail(provisioning.DependencyInstallFailure, "import-key", err)
	}

	line := repo.SourceLine(db)
	if err := writeFile(db.SourcesFile, []byte(line+"\n"), 0o644); err != nil {
		return provisioning.Fail(provisioning.DependencyInstallFailure, "register-repository", err)
	}
	provisioning.LogResourceCreated(ctx.Observer, phase, "repository source", db.SourcesFile)

	if err := p.apt.Update(ctx); err != nil {
		return provisioning.Fail(provisioning.DependencyInstallFailure, "apt-update", err)
	}
	if err := p.apt.Install(ctx, db.Package); err != nil {
		return provisioning.Fail(provisioning.DependencyInstallFailure, "install-engine", err)
	}

	for _, action := range []string{"enable", "start"} {
		if err := systemctl(ctx, action, db.Service); err != nil {
			return provisioning.Fail(provisioning.DependencyInstallFailure, "service-"+action, err)
		}
	}

	provisioning.LogResourceCreated(ctx.Observer, phase, "database engine", db.Service)
	return nil
}

func systemctl(ctx *provisioning.Context, action, unit string) error {
	cmd := system.Command{Name: "systemctl", Args: []string{action, unit}}
	if err := ctx.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to %s service %s: %w", action, unit, err)
	}
	return nil
}

package runtime

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hostforge/hostforge/internal/platform/system"
	"github.com/hostforge/hostforge/internal/provisioning"
)

// ErrManifestMissing is returned when the bundle has no requirements file.
var ErrManifestMissing = errors.New("dependency manifest not found in bundle")

// Provisioner builds the isolated Python environment.
type Provisioner struct {
	// Getenv defaults to os.Getenv; tests override it.
	Getenv func(string) string
}

// NewProvisioner creates the RUNTIME_ENV phase.
func NewProvisioner() *Provisioner {
	return &Provisioner{Getenv: os.Getenv}
}

// Name implements provisioning.Phase.
func (p *Provisioner) Name() string { return "runtime environment" }

// Stage implements provisioning.Phase.
func (p *Provisioner) Stage() provisioning.Stage { return provisioning.StageRuntimeEnv }

// Provision runs BuildEnv.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	return p.BuildEnv(ctx)
}

// BuildEnv creates <root>/<venv>, upgrades pip and installs the manifest.
// Every command runs with the install root as working directory.
func (p *Provisioner) BuildEnv(ctx *provisioning.Context) error {
	cfg := ctx.Config.Runtime
	root := ctx.Config.InstallRoot
	venv := filepath.Join(root, cfg.VenvDir)
	manifest := filepath.Join(root, cfg.Manifest)

	if _, err := os.Stat(manifest); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("%w: %s", ErrManifestMissing, manifest)
		}
		return provisioning.Fail(provisioning.RuntimeEnvFailure, "check-manifest", err)
	}

	ctx.Observer.Info("Creating virtual environment at %s", venv)
	create := system.Command{Name: cfg.Python, Args: []string{"-m", "venv", venv}, Dir: root}
	if err := ctx.Runner.Run(ctx, create); err != nil {
		return provisioning.Fail(provisioning.RuntimeEnvFailure, "create-venv",
			fmt.Errorf("failed to create virtual environment: %w", err))
	}

	act := Activate(venv, p.Getenv("PATH"))
	defer act.Release()

	pip := func(args ...string) system.Command {
		return system.Command{Name: act.Bin("pip"), Args: args, Dir: root, Env: act.Env()}
	}

	if err := ctx.Runner.Run(ctx, pip("install", "--upgrade", "pip")); err != nil {
		return provisioning.Fail(provisioning.RuntimeEnvFailure, "upgrade-pip",
			fmt.Errorf("failed to upgrade pip: %w", err))
	}

	ctx.Observer.Info("Installing Python requirements from %s", cfg.Manifest)
	if err := ctx.Runner.Run(ctx, pip("install", "-r", manifest)); err != nil {
		ctx.Observer.Error("Failed to install Python requirements from %s; the application cannot start without them", manifest)
		return provisioning.Fail(provisioning.RuntimeEnvFailure, "pip-install",
			fmt.Errorf("failed to install Python requirements: %w", err))
	}

	ctx.State.Runtime = &provisioning.RuntimeEnvironment{Root: root, VenvDir: venv, Python: act.Bin("python")}
	provisioning.LogResourceCreated(ctx.Observer, provisioning.StageRuntimeEnv.String(), "virtual environment", venv)
	return nil
}

package handlers

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/platform/download"
	"github.com/hostforge/hostforge/internal/platform/registry"
	"github.com/hostforge/hostforge/internal/platform/s3"
	"github.com/hostforge/hostforge/internal/platform/system"
	"github.com/hostforge/hostforge/internal/provisioning"
	"github.com/hostforge/hostforge/internal/provisioning/artifact"
	"github.com/hostforge/hostforge/internal/provisioning/launch"
	"github.com/hostforge/hostforge/internal/provisioning/packages"
	"github.com/hostforge/hostforge/internal/provisioning/preflight"
	"github.com/hostforge/hostforge/internal/provisioning/runtime"
	"github.com/hostforge/hostforge/internal/provisioning/shell"
	"github.com/hostforge/hostforge/internal/runlock"
	"github.com/hostforge/hostforge/internal/ui/report"
)

// hostEnv holds the process-level queries the stages make.
type hostEnv struct {
	EUID       func() int
	Machine    func() (string, error)
	Getenv     func(string) string
	Environ    func() []string
	LookupUser func(string) (*user.User, error)
}

func realHost() hostEnv {
	return hostEnv{
		EUID:       system.EffectiveUID,
		Machine:    system.MachineType,
		Getenv:     os.Getenv,
		Environ:    os.Environ,
		LookupUser: user.Lookup,
	}
}

// Factory variables; tests replace them.
var (
	newReporter = report.New

	newRunner = func(log logr.Logger, t *config.Timeouts) system.Runner {
		return system.NewExecRunner(log, t.Command)
	}

	newSources = func(log logr.Logger, cfg *config.Config, t *config.Timeouts) *artifact.Sources {
		return &artifact.Sources{
			HTTP: download.NewClient(log, t),
			ObjectStore: func(ctx context.Context) (artifact.ObjectStore, error) {
				c, err := s3.NewClient(ctx, cfg.Artifact.S3)
				if err != nil {
					return nil, err
				}
				return c, nil
			},
			Registry: registry.NewClient(),
		}
	}

	newKeyFetcher = func(log logr.Logger, t *config.Timeouts) packages.KeyFetcher {
		return download.NewClient(log, t)
	}

	newRunID = uuid.NewString

	currentHost = realHost

	acquireLock = runlock.Acquire

	handoff = func(h *provisioning.Handoff) error {
		return launch.Handoff(h, os.Chdir, system.Exec)
	}

	isInteractive = isInteractiveTTY
)

// loadConfig reads path, or the default location when path is empty.
// Configuration problems are usage errors.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if err := packages.CheckCoverage(cfg.Host.Distros); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return cfg, nil
}

// stages builds the full pipeline phases in stage order.
func stages(runner system.Runner, sources *artifact.Sources, keys packages.KeyFetcher, h hostEnv) []provisioning.Phase {
	apt := packages.NewApt(runner)

	pre := preflight.NewProvisioner()
	pre.EUID = h.EUID
	pre.Machine = h.Machine

	fetch := artifact.NewProvisioner(sources)
	fetch.Machine = h.Machine

	env := runtime.NewProvisioner()
	env.Getenv = h.Getenv

	alias := shell.NewProvisioner()
	alias.Getenv = h.Getenv
	alias.LookupUser = h.LookupUser

	entry := launch.NewProvisioner()
	entry.Environ = h.Environ

	return []provisioning.Phase{
		pre,
		packages.NewSystemProvisioner(apt),
		packages.NewDatabaseProvisioner(apt, keys),
		fetch,
		env,
		alias,
		entry,
	}
}

func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

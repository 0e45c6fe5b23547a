package handlers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/platform/system"
	"github.com/hostforge/hostforge/internal/provisioning"
	"github.com/hostforge/hostforge/internal/provisioning/preflight"
)

var stdout io.Writer = os.Stdout

// Check handles the check command.
//
// It runs only the precondition stage, which never changes the host,
// and prints the resulting host profile.
func Check(ctx context.Context, configPath string, verbosity int) error {
	rep := newReporter(verbosity)
	log := rep.Logger()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	timeouts := config.LoadTimeouts()
	runner := newRunner(log, timeouts)
	h := currentHost()

	pre := preflight.NewProvisioner()
	pre.EUID = h.EUID
	pre.Machine = h.Machine

	pctx := provisioning.NewContext(ctx, cfg, newRunID(), runner, provisioning.NewConsoleObserver(rep), log)

	if err := provisioning.NewPipeline(pre).Run(pctx); err != nil {
		return err
	}

	machine, err := h.Machine()
	if err != nil {
		return fmt.Errorf("failed to detect architecture: %w", err)
	}
	printProfile(stdout, pctx.State.Host, machine, cfg.Host.CPUFlags)
	return nil
}

func printProfile(w io.Writer, host *provisioning.HostProfile, machine string, wanted []string) {
	arch, known := system.ArchTag(machine)
	if !known {
		arch += " (unmapped)"
	}

	var flags []string
	for _, f := range wanted {
		if host.HasFlag(f) {
			flags = append(flags, f)
		}
	}

	codename := host.Codename
	if codename == "" {
		codename = "-"
	}

	_, _ = fmt.Fprintf(w, "OS:           %s\n", host.ID)
	_, _ = fmt.Fprintf(w, "Version:      %s\n", host.VersionID)
	_, _ = fmt.Fprintf(w, "Codename:     %s\n", codename)
	_, _ = fmt.Fprintf(w, "Architecture: %s\n", arch)
	_, _ = fmt.Fprintf(w, "CPU features: %s\n", strings.Join(flags, ", "))
}

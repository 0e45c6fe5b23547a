package preflight

import (
	"strings"

	"github.com/hostforge/hostforge/internal/platform/system"
	"github.com/hostforge/hostforge/internal/provisioning"
	"github.com/hostforge/hostforge/internal/util/prerequisites"
)

// Provisioner runs the precondition checks. It only reads the host.
type Provisioner struct {
	// EUID and Machine default to the real host; tests override them.
	EUID    func() int
	Machine func() (string, error)
}

// NewProvisioner creates the PRECONDITIONS phase.
func NewProvisioner() *Provisioner {
	return &Provisioner{
		EUID:    system.EffectiveUID,
		Machine: system.MachineType,
	}
}

// Name implements provisioning.Phase.
func (p *Provisioner) Name() string { return "preconditions" }

// Stage implements provisioning.Phase.
func (p *Provisioner) Stage() provisioning.Stage { return provisioning.StagePreconditions }

// Provision checks privilege, then OS and CPU compatibility, and stores the
// host profile in the pipeline state.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	if err := CheckPrivilege(p.EUID()); err != nil {
		return provisioning.Fail(provisioning.PreconditionFailure, "privilege", err)
	}
	ctx.Observer.Success("Running with root privileges")

	host, err := p.checkCompatibility(ctx)
	if err != nil {
		return err
	}
	ctx.State.Host = host

	ctx.Observer.Success("Host %s is supported", host)
	return nil
}

func (p *Provisioner) checkCompatibility(ctx *provisioning.Context) (*provisioning.HostProfile, error) {
	cfg := ctx.Config.Host

	rel, err := ReadOSRelease(cfg.OSReleasePath)
	if err != nil {
		return nil, provisioning.Fail(provisioning.PreconditionFailure, "os-release", err)
	}
	version, err := CheckOS(rel, cfg.Distros)
	if err != nil {
		return nil, provisioning.Fail(provisioning.PreconditionFailure, "os-version", err)
	}

	flags, err := ReadCPUFlags(cfg.CPUInfoPath)
	if err != nil {
		return nil, provisioning.Fail(provisioning.PreconditionFailure, "cpu-feature", err)
	}
	if err := CheckCPU(flags, cfg.CPUFlags, p.fallbackURL(ctx)); err != nil {
		return nil, provisioning.Fail(provisioning.PreconditionFailure, "cpu-feature", err)
	}

	host := &provisioning.HostProfile{
		ID:        rel.ID,
		VersionID: rel.VersionID,
		Version:   version,
		Codename:  rel.Codename,
		CPUFlags:  flags,
	}
	if host.Codename == "" {
		host.Codename = p.codename(ctx)
	}
	return host, nil
}

func (p *Provisioner) fallbackURL(ctx *provisioning.Context) string {
	url := ctx.Config.Host.CPUFallbackURL
	if !strings.Contains(url, "{arch}") {
		return url
	}
	machine, err := p.Machine()
	if err != nil {
		ctx.Log.V(1).Info("machine type unavailable", "error", err.Error())
		return url
	}
	arch, _ := system.ArchTag(machine)
	return strings.ReplaceAll(url, "{arch}", arch)
}

// codename asks the configured helper tools when os-release has no
// VERSION_CODENAME. The codename is informational, so a missing helper or a
// failing lookup leaves it empty.
func (p *Provisioner) codename(ctx *provisioning.Context) string {
	tools := prerequisites.FromConfig(ctx.Config.Host.HelperTools)
	if res := prerequisites.Check(ctx.Runner.LookPath, tools); res.HasErrors() {
		ctx.Log.V(1).Info("codename unknown", "reason", res.Error().Error())
		return ""
	}

	out, err := ctx.Runner.Output(ctx, system.Command{Name: "lsb_release", Args: []string{"-cs"}})
	if err != nil {
		ctx.Log.V(1).Info("codename unknown", "error", err.Error())
		return ""
	}
	return strings.TrimSpace(string(out))
}

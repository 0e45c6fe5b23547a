// Package launch implements the LAUNCH stage. The stage itself only
// prepares the handoff; the process image is replaced by the caller after
// the run has been recorded.
package launch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hostforge/hostforge/internal/provisioning"
	"github.com/hostforge/hostforge/internal/provisioning/runtime"
)

// Provisioner prepares the entry point for execution.
type Provisioner struct {
	// Environ defaults to os.Environ; tests override it.
	Environ func() []string
}

// NewProvisioner creates the LAUNCH phase.
func NewProvisioner() *Provisioner {
	return &Provisioner{Environ: os.Environ}
}

// Name implements provisioning.Phase.
func (p *Provisioner) Name() string { return "launch" }

// Stage implements provisioning.Phase.
func (p *Provisioner) Stage() provisioning.Stage { return provisioning.StageLaunch }

// Provision marks the entry point executable and records the handoff in
// the pipeline state.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	root := ctx.Config.InstallRoot
	entry := filepath.Join(root, ctx.Config.Launch.EntryPoint)

	fi, err := os.Stat(entry)
	if err != nil {
		return provisioning.Fail(provisioning.UnexpectedCommandFailure, "chmod-entry",
			fmt.Errorf("entry point %s: %w", entry, err))
	}
	if fi.IsDir() {
		return provisioning.Fail(provisioning.UnexpectedCommandFailure, "chmod-entry",
			fmt.Errorf("entry point %s is a directory", entry))
	}
	if err := os.Chmod(entry, fi.Mode().Perm()|0o111); err != nil {
		return provisioning.Fail(provisioning.UnexpectedCommandFailure, "chmod-entry", err)
	}

	env := p.Environ()
	if rt := ctx.State.Runtime; rt != nil {
		act := runtime.Activate(rt.VenvDir, lookup(env, "PATH"))
		env = MergeEnv(env, act.Env())
		act.Release()
	}

	ctx.State.Handoff = &provisioning.Handoff{
		Path: entry,
		Args: []string{entry},
		Dir:  root,
		Env:  env,
	}
	ctx.Observer.Info("Entry point ready: %s", entry)
	return nil
}

// Execer replaces the current process.
type Execer func(path string, argv, env []string) error

// ErrNoHandoff is returned when the pipeline did not prepare a handoff.
var ErrNoHandoff = errors.New("no launch prepared")

// Handoff changes into the install root and executes the entry point. On
// success it does not return.
func Handoff(h *provisioning.Handoff, chdir func(string) error, exec Execer) error {
	if h == nil {
		return ErrNoHandoff
	}
	if err := chdir(h.Dir); err != nil {
		return fmt.Errorf("failed to enter %s: %w", h.Dir, err)
	}
	return exec(h.Path, h.Args, h.Env)
}

// MergeEnv returns base with the KEY=VALUE entries of overlay replacing
// entries of the same key.
func MergeEnv(base, overlay []string) []string {
	keys := make(map[string]bool, len(overlay))
	for _, kv := range overlay {
		k, _, _ := strings.Cut(kv, "=")
		keys[k] = true
	}
	out := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if !keys[k] {
			out = append(out, kv)
		}
	}
	return append(out, overlay...)
}

func lookup(env []string, key string) string {
	for i := len(env) - 1; i >= 0; i-- {
		if k, v, ok := strings.Cut(env[i], "="); ok && k == key {
			return v
		}
	}
	return ""
}

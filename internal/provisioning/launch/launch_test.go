package launch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/platform/system/systemtest"
	"github.com/hostforge/hostforge/internal/provisioning"
	"github.com/hostforge/hostforge/internal/provisioning/provisioningtest"
)

func launchConfig(t *testing.T, withEntry bool) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.InstallRoot = t.TempDir()
	if withEntry {
		require.NoError(t, os.WriteFile(filepath.Join(cfg.InstallRoot, "menu.sh"), []byte("#!/bin/sh\n"), 0o644))
	}
	return cfg
}

func newLauncher() *Provisioner {
	p := NewProvisioner()
	p.Environ = func() []string { return []string{"HOME=/root", "PATH=/usr/bin:/bin"} }
	return p
}

func TestProvision_PreparesHandoff(t *testing.T) {
	t.Parallel()
	cfg := launchConfig(t, true)
	ctx, obs := provisioningtest.NewContext(cfg, systemtest.NewFakeRunner())
	venv := filepath.Join(cfg.InstallRoot, "venv")
	ctx.State.Runtime = &provisioning.RuntimeEnvironment{Root: cfg.InstallRoot, VenvDir: venv}

	require.NoError(t, newLauncher().Provision(ctx))

	entry := filepath.Join(cfg.InstallRoot, "menu.sh")
	fi, err := os.Stat(entry)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), fi.Mode().Perm())

	h := ctx.State.Handoff
	require.NotNil(t, h)
	assert.Equal(t, entry, h.Path)
	assert.Equal(t, []string{entry}, h.Args)
	assert.Equal(t, cfg.InstallRoot, h.Dir)
	assert.Contains(t, h.Env, "HOME=/root")
	assert.Contains(t, h.Env, "VIRTUAL_ENV="+venv)
	assert.Contains(t, h.Env, "PATH="+venv+"/bin:/usr/bin:/bin")
	assert.NotContains(t, h.Env, "PATH=/usr/bin:/bin")
	assert.True(t, obs.HasMessage("info", "Entry point ready"))
}

func TestProvision_MissingEntryPoint(t *testing.T) {
	t.Parallel()
	ctx, _ := provisioningtest.NewContext(launchConfig(t, false), systemtest.NewFakeRunner())

	err := newLauncher().Provision(ctx)
	require.Error(t, err)
	var se *provisioning.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "chmod-entry", se.Step)
	assert.Nil(t, ctx.State.Handoff)
}

func TestHandoff(t *testing.T) {
	t.Parallel()
	h := &provisioning.Handoff{Path: "/opt/appstack/menu.sh", Args: []string{"/opt/appstack/menu.sh"}, Dir: "/opt/appstack"}

	var dir, path string
	err := Handoff(h,
		func(d string) error { dir = d; return nil },
		func(p string, _, _ []string) error { path = p; return nil })
	require.NoError(t, err)
	assert.Equal(t, "/opt/appstack", dir)
	assert.Equal(t, "/opt/appstack/menu.sh", path)

	execErr := errors.New("exec format error")
	err = Handoff(h, func(string) error { return nil }, func(string, []string, []string) error { return execErr })
	assert.ErrorIs(t, err, execErr)

	err = Handoff(h, func(string) error { return os.ErrNotExist }, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.ErrorIs(t, Handoff(nil, nil, nil), ErrNoHandoff)
}

func TestMergeEnv(t *testing.T) {
	t.Parallel()
	got := MergeEnv([]string{"A=1", "PATH=/bin", "B=2"}, []string{"PATH=/venv/bin:/bin", "C=3"})
	assert.Equal(t, []string{"A=1", "B=2", "PATH=/venv/bin:/bin", "C=3"}, got)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, Default().Validate())
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hostforge.yaml")
	data := `
install_root: /srv/app
packages: [python3, git]
artifact:
  bundle_url: https://example.com/app-{arch}.zip
  geo_data_policy: warn
shell:
  alias_name: app
  match_mode: line
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/app", cfg.InstallRoot)
	assert.Equal(t, []string{"python3", "git"}, cfg.Packages)
	assert.Equal(t, "https://example.com/app-{arch}.zip", cfg.Artifact.BundleURL)
	assert.Equal(t, GeoDataWarn, cfg.Artifact.GeoDataPolicy)
	assert.Equal(t, "app", cfg.Shell.AliasName)
	assert.Equal(t, MatchLine, cfg.Shell.MatchMode)

	// untouched sections keep their defaults
	assert.Equal(t, "mongod", cfg.Database.Binary)
	assert.Equal(t, "menu.sh", cfg.Launch.EntryPoint)
	assert.Len(t, cfg.Artifact.GeoData, 2)
}

func TestLoad_TOMLOverlay(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "hostforge.toml")
	data := `
install_root = "/srv/toml"

[database]
series = "8.0"

[launch]
entry_point = "bin/start.sh"
enabled = false
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/toml", cfg.InstallRoot)
	assert.Equal(t, "8.0", cfg.Database.Series)
	assert.Equal(t, "mongod", cfg.Database.Service)
	assert.Equal(t, "bin/start.sh", cfg.Launch.EntryPoint)
	assert.False(t, cfg.Launch.Enabled)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("install_root: [unterminated"), 0o600))
	_, err = Load(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("install_root: relative/path"), 0o600))
	_, err = Load(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "filesystem root",
			mutate:  func(c *Config) { c.InstallRoot = "/" },
			wantErr: "must not be the filesystem root",
		},
		{
			name:    "no distros",
			mutate:  func(c *Config) { c.Host.Distros = nil },
			wantErr: "host.distros",
		},
		{
			name:    "no cpu flags",
			mutate:  func(c *Config) { c.Host.CPUFlags = nil },
			wantErr: "host.cpu_flags",
		},
		{
			name:    "geo file with path",
			mutate:  func(c *Config) { c.Artifact.GeoData[0].Name = "../geoip.dat" },
			wantErr: "artifact.geo_data[0]",
		},
		{
			name:    "unknown geo policy",
			mutate:  func(c *Config) { c.Artifact.GeoDataPolicy = "ignore" },
			wantErr: "geo_data_policy",
		},
		{
			name:    "alias with quote",
			mutate:  func(c *Config) { c.Shell.AliasName = "app'x" },
			wantErr: "shell.alias_name",
		},
		{
			name:    "absolute entry point",
			mutate:  func(c *Config) { c.Launch.EntryPoint = "/usr/bin/menu" },
			wantErr: "launch.entry_point",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDistroFor(t *testing.T) {
	t.Parallel()
	cfg := Default()

	d, ok := cfg.DistroFor("debian")
	require.True(t, ok)
	assert.Equal(t, "12", d.MinVersion)

	_, ok = cfg.DistroFor("fedora")
	assert.False(t, ok)
}

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate checks the configuration for values no stage can work with.
func (c *Config) Validate() error {
	var errs []error

	if c.InstallRoot == "" || !filepath.IsAbs(c.InstallRoot) {
		errs = append(errs, fmt.Errorf("install_root must be an absolute path, got %q", c.InstallRoot))
	} else if filepath.Clean(c.InstallRoot) == "/" {
		errs = append(errs, errors.New("install_root must not be the filesystem root"))
	}

	if len(c.Host.Distros) == 0 {
		errs = append(errs, errors.New("host.distros must list at least one distribution"))
	}
	for i, d := range c.Host.Distros {
		if d.ID == "" || d.MinVersion == "" {
			errs = append(errs, fmt.Errorf("host.distros[%d]: id and min_version are required", i))
		}
	}
	if len(c.Host.CPUFlags) == 0 {
		errs = append(errs, errors.New("host.cpu_flags must list at least one flag"))
	}
	if len(c.Packages) == 0 {
		errs = append(errs, errors.New("packages must not be empty"))
	}

	if c.Database.Binary == "" || c.Database.Package == "" || c.Database.Service == "" {
		errs = append(errs, errors.New("database.binary, database.package and database.service are required"))
	}

	if c.Artifact.BundleURL == "" {
		errs = append(errs, errors.New("artifact.bundle_url is required"))
	}
	for i, g := range c.Artifact.GeoData {
		if g.URL == "" || g.Name == "" || strings.Contains(g.Name, "/") {
			errs = append(errs, fmt.Errorf("artifact.geo_data[%d]: url and a plain file name are required", i))
		}
	}
	switch c.Artifact.GeoDataPolicy {
	case GeoDataFatal, GeoDataWarn:
	default:
		errs = append(errs, fmt.Errorf("artifact.geo_data_policy must be %q or %q, got %q",
			GeoDataFatal, GeoDataWarn, c.Artifact.GeoDataPolicy))
	}

	if c.Runtime.Python == "" || c.Runtime.VenvDir == "" || c.Runtime.Manifest == "" {
		errs = append(errs, errors.New("runtime.python, runtime.venv_dir and runtime.manifest are required"))
	}

	if c.Shell.AliasName == "" || strings.ContainsAny(c.Shell.AliasName, " ='\"") {
		errs = append(errs, fmt.Errorf("shell.alias_name is not a valid alias name: %q", c.Shell.AliasName))
	}
	switch c.Shell.MatchMode {
	case MatchSubstring, MatchLine:
	default:
		errs = append(errs, fmt.Errorf("shell.match_mode must be %q or %q, got %q",
			MatchSubstring, MatchLine, c.Shell.MatchMode))
	}

	if c.Launch.EntryPoint == "" || filepath.IsAbs(c.Launch.EntryPoint) {
		errs = append(errs, fmt.Errorf("launch.entry_point must be a path relative to install_root, got %q", c.Launch.EntryPoint))
	}

	return errors.Join(errs...)
}

// DistroFor returns the supported distro entry for an OS identifier.
func (c *Config) DistroFor(id string) (Distro, bool) {
	for _, d := range c.Host.Distros {
		if d.ID == id {
			return d, true
		}
	}
	return Distro{}, false
}

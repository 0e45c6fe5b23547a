package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/platform/system"
	"github.com/hostforge/hostforge/internal/provisioning"
)

// Provisioner replaces the install root with a fresh bundle.
type Provisioner struct {
	sources *Sources

	// Machine defaults to uname; tests override it.
	Machine func() (string, error)
}

// NewProvisioner creates the ARTIFACT_FETCH phase.
func NewProvisioner(sources *Sources) *Provisioner {
	return &Provisioner{sources: sources, Machine: system.MachineType}
}

// Name implements provisioning.Phase.
func (p *Provisioner) Name() string { return "application bundle" }

// Stage implements provisioning.Phase.
func (p *Provisioner) Stage() provisioning.Stage { return provisioning.StageArtifactFetch }

// Provision runs FetchAndPlace.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	return p.FetchAndPlace(ctx)
}

// FetchAndPlace deletes and recreates the install root, extracts the bundle
// into it, downloads the geo data files and marks the helper script
// executable. When the bundle cannot be fetched or extracted the root is
// left empty.
func (p *Provisioner) FetchAndPlace(ctx *provisioning.Context) error {
	cfg := ctx.Config
	root := cfg.InstallRoot
	phase := provisioning.StageArtifactFetch.String()

	removed, err := resetRoot(root)
	if err != nil {
		return provisioning.Fail(provisioning.ArtifactFetchFailure, "reset-root", err)
	}
	if removed {
		provisioning.LogResourceDeleted(ctx.Observer, phase, "previous install root", root)
	}
	provisioning.LogResourceCreated(ctx.Observer, phase, "empty install root", root)

	machine, err := p.Machine()
	if err != nil {
		return provisioning.Fail(provisioning.ArtifactFetchFailure, "detect-arch", err)
	}
	arch, known := system.ArchTag(machine)
	if !known {
		provisioning.LogWarning(ctx.Observer, phase,
			fmt.Sprintf("unrecognized machine type %q, using it unmapped in the bundle URL", machine))
	}

	bundleURL := strings.ReplaceAll(cfg.Artifact.BundleURL, "{arch}", arch)
	ctx.State.Target = &provisioning.InstallTarget{Root: root, Arch: arch, BundleURL: bundleURL}

	if err := p.placeBundle(ctx, bundleURL, arch, root); err != nil {
		// full replace: never leave a partial tree behind
		if _, rerr := resetRoot(root); rerr != nil {
			ctx.Log.Error(rerr, "failed to empty install root")
		}
		return err
	}

	if err := p.fetchGeoData(ctx, arch, root); err != nil {
		return err
	}

	markExecutable(ctx, filepath.Join(root, cfg.Artifact.ExecutableScript))
	return nil
}

func (p *Provisioner) placeBundle(ctx *provisioning.Context, bundleURL, arch, root string) error {
	format := FormatOf(bundleURL)
	if format == FormatUnknown {
		return provisioning.Fail(provisioning.ArtifactFetchFailure, "download-bundle",
			fmt.Errorf("%w: cannot infer archive format of %s", ErrUnsupportedSource, bundleURL))
	}

	tmp, err := os.CreateTemp("", "hostforge-bundle-*")
	if err != nil {
		return provisioning.Fail(provisioning.ArtifactFetchFailure, "download-bundle", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(tmpPath) }()

	ctx.Observer.Info("Downloading %s", bundleURL)
	size, err := p.sources.Fetch(ctx, bundleURL, arch, tmpPath)
	if err != nil {
		return provisioning.Fail(provisioning.ArtifactFetchFailure, "download-bundle", err)
	}

	files, err := Extract(format, tmpPath, root)
	if err != nil {
		return provisioning.Fail(provisioning.ArtifactFetchFailure, "extract-bundle", err)
	}

	ctx.Observer.Success("Extracted %s bundle (%s, %d files) into %s", format, humanize.Bytes(uint64(size)), files, root)
	return nil
}

func (p *Provisioner) fetchGeoData(ctx *provisioning.Context, arch, root string) error {
	phase := provisioning.StageArtifactFetch.String()
	for _, geo := range ctx.Config.Artifact.GeoData {
		dst := filepath.Join(root, geo.Name)
		size, err := p.sources.Fetch(ctx, geo.URL, arch, dst)
		if err != nil {
			if ctx.Config.Artifact.GeoDataPolicy == config.GeoDataWarn {
				provisioning.LogWarning(ctx.Observer, phase, fmt.Sprintf("skipping %s: %v", geo.Name, err))
				continue
			}
			return provisioning.Fail(provisioning.ArtifactFetchFailure, "download-geodata", err)
		}
		provisioning.LogResourceCreated(ctx.Observer, phase, "geo data ("+humanize.Bytes(uint64(size))+")", geo.Name)
	}
	return nil
}

// resetRoot replaces root with an empty directory and reports whether
// something was there before.
func resetRoot(root string) (bool, error) {
	_, err := os.Lstat(root)
	existed := err == nil
	if err := os.RemoveAll(root); err != nil {
		return existed, fmt.Errorf("failed to remove %s: %w", root, err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return existed, fmt.Errorf("failed to create %s: %w", root, err)
	}
	return existed, nil
}

// markExecutable sets the execute bits of path if it exists.
func markExecutable(ctx *provisioning.Context, path string) {
	fi, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		ctx.Log.V(1).Info("script not in bundle, skipping chmod", "path", path)
		return
	}
	if err == nil {
		err = os.Chmod(path, fi.Mode().Perm()|0o111)
	}
	if err != nil {
		provisioning.LogWarning(ctx.Observer, provisioning.StageArtifactFetch.String(),
			fmt.Sprintf("could not mark %s executable: %v", path, err))
	}
}

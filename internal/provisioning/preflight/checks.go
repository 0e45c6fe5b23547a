package preflight

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/hostforge/hostforge/internal/config"
)

// Sentinel errors for the individual checks.
var (
	ErrNotRoot           = errors.New("must be run as root")
	ErrUnsupportedOS     = errors.New("unsupported operating system")
	ErrMissingCPUFeature = errors.New("missing required CPU feature")
)

// CheckPrivilege fails unless euid is 0.
func CheckPrivilege(euid int) error {
	if euid != 0 {
		return fmt.Errorf("%w (effective uid %d); re-run with sudo", ErrNotRoot, euid)
	}
	return nil
}

// ParseVersion parses an os-release VERSION_ID leniently. Leading zeros in
// numeric segments are dropped, so "22.04" compares as 22.4.
func ParseVersion(raw string) (*semver.Version, error) {
	parts := strings.Split(raw, ".")
	for i, p := range parts {
		trimmed := strings.TrimLeft(p, "0")
		if trimmed == "" && p != "" {
			trimmed = "0"
		}
		parts[i] = trimmed
	}
	return semver.NewVersion(strings.Join(parts, "."))
}

// CheckOS verifies rel against the supported distributions and returns the
// parsed version.
func CheckOS(rel OSRelease, distros []config.Distro) (*semver.Version, error) {
	unsupported := func() error {
		name := strings.TrimSpace(rel.ID + " " + rel.VersionID)
		if name == "" {
			name = "unknown"
		}
		return fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedOS, name, describe(distros))
	}

	var distro *config.Distro
	for i := range distros {
		if distros[i].ID == rel.ID {
			distro = &distros[i]
			break
		}
	}
	if distro == nil || rel.VersionID == "" {
		return nil, unsupported()
	}

	version, err := ParseVersion(rel.VersionID)
	if err != nil {
		return nil, unsupported()
	}
	constraint, err := semver.NewConstraint(">= " + distro.MinVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum version %q for %s: %w", distro.MinVersion, distro.ID, err)
	}
	if !constraint.Check(version) {
		return nil, unsupported()
	}
	return version, nil
}

func describe(distros []config.Distro) string {
	parts := make([]string, len(distros))
	for i, d := range distros {
		parts[i] = fmt.Sprintf("%s >= %s", d.ID, d.MinVersion)
	}
	return strings.Join(parts, ", ")
}

// ParseCPUFlags collects the feature tokens of every "flags" (x86) or
// "Features" (arm) line of a cpuinfo listing.
func ParseCPUFlags(r io.Reader) (map[string]struct{}, error) {
	flags := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "flags", "Features":
			for _, f := range strings.Fields(value) {
				flags[f] = struct{}{}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return flags, nil
}

// ReadCPUFlags reads the cpuinfo file at path.
func ReadCPUFlags(path string) (map[string]struct{}, error) {
	// #nosec G304 - path comes from configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CPU descriptor: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ParseCPUFlags(f)
}

// CheckCPU requires at least one of required in flags. The error suggests
// fallbackURL when it is set.
func CheckCPU(flags map[string]struct{}, required []string, fallbackURL string) error {
	for _, r := range required {
		if _, ok := flags[r]; ok {
			return nil
		}
	}
	hint := ""
	if fallbackURL != "" {
		hint = "; download the build without these extensions from " + fallbackURL
	}
	return fmt.Errorf("%w: none of %s found%s", ErrMissingCPUFeature, strings.Join(required, ", "), hint)
}

// Package shell implements the ALIAS stage: a convenience alias in the
// invoking user's shell profile that re-enters the runtime environment and
// starts the application menu.
package shell

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hostforge/hostforge/internal/config"
)

// BuildAlias renders the alias definition line.
func BuildAlias(name, root, venvDir, entry string) string {
	activate := filepath.Join(root, venvDir, "bin", "activate")
	return fmt.Sprintf("alias %s='cd %s && source %s && %s'", name, root, activate, filepath.Join(root, entry))
}

// Present reports whether content already defines the alias. In substring
// mode any line mentioning name counts; in line mode only an identical line.
func Present(content, name, line, mode string) bool {
	for _, l := range strings.Split(content, "\n") {
		switch mode {
		case config.MatchLine:
			if strings.TrimSpace(l) == line {
				return true
			}
		default:
			if strings.Contains(l, name) {
				return true
			}
		}
	}
	return false
}

// Ensure appends line to the profile at path unless Present finds it. It
// reports whether the file was changed.
func Ensure(path, name, line, mode string) (bool, error) {
	// #nosec G304 - profile path is resolved from the invoking user
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	content := string(data)
	if Present(content, name, line, mode) {
		return false, nil
	}

	entry := line + "\n"
	if content != "" && !strings.HasSuffix(content, "\n") {
		entry = "\n" + entry
	}

	// #nosec G302 G304 - shell profiles are user readable
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if _, err := f.WriteString(entry); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("failed to append to %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return true, nil
}

// Profile identifies the profile file of the invoking user.
type Profile struct {
	Path string

	// UID and GID own a newly created profile. -1 keeps the creator.
	UID, GID int
}

// ResolveProfile locates profile for the user that invoked hostforge. When
// run through sudo that is SUDO_USER, not root.
func ResolveProfile(profile string, getenv func(string) string, lookup func(string) (*user.User, error)) (Profile, error) {
	out := Profile{UID: -1, GID: -1}

	if sudoUser := getenv("SUDO_USER"); sudoUser != "" && sudoUser != "root" {
		u, err := lookup(sudoUser)
		if err != nil {
			return out, fmt.Errorf("failed to look up invoking user %s: %w", sudoUser, err)
		}
		out.UID, _ = strconv.Atoi(u.Uid)
		out.GID, _ = strconv.Atoi(u.Gid)
		out.Path = join(u.HomeDir, profile)
		return out, nil
	}

	home := getenv("HOME")
	if home == "" {
		u, err := user.Current()
		if err != nil {
			return out, fmt.Errorf("failed to determine home directory: %w", err)
		}
		home = u.HomeDir
	}
	out.Path = join(home, profile)
	return out, nil
}

func join(home, profile string) string {
	if filepath.IsAbs(profile) {
		return profile
	}
	return filepath.Join(home, profile)
}

// Package runlock keeps two provisioning runs from executing on one host at
// the same time.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrLockHeld is returned when another process holds the lock.
var ErrLockHeld = errors.New("another provisioning run is in progress")

// Lock is an exclusive advisory lock on a file.
type Lock struct {
	path string
	f    *os.File
}

// Acquire takes the lock at path without blocking. The file records the
// PID of the holder.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	// #nosec G304 - lock path comes from configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			if pid := holder(path); pid != "" {
				return nil, fmt.Errorf("%w (pid %s holds %s)", ErrLockHeld, pid, path)
			}
			return nil, fmt.Errorf("%w (%s)", ErrLockHeld, path)
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	return &Lock{path: path, f: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release unlocks and closes the file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	_ = f.Truncate(0)
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to unlock %s: %w", l.path, err)
	}
	return f.Close()
}

func holder(path string) string {
	// #nosec G304 - lock path comes from configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

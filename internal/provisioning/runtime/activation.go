package runtime

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Activation is the scoped equivalent of sourcing bin/activate.
type Activation struct {
	venv string
	path string

	mu       sync.Mutex
	released bool
}

// Activate prepares the environment overlay for venv. basePath is the PATH
// the venv bin directory is prepended to.
func Activate(venv, basePath string) *Activation {
	p := filepath.Join(venv, "bin")
	if basePath != "" {
		p += string(os.PathListSeparator) + basePath
	}
	return &Activation{venv: venv, path: p}
}

// Env returns the variables to attach to commands. After Release it returns
// nil.
func (a *Activation) Env() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	return []string{"VIRTUAL_ENV=" + a.venv, "PATH=" + a.path, "PIP_DISABLE_PIP_VERSION_CHECK=1"}
}

// Bin returns the path of an executable inside the venv.
func (a *Activation) Bin(name string) string {
	return filepath.Join(a.venv, "bin", name)
}

// Release ends the activation. It is safe to call more than once.
func (a *Activation) Release() {
	a.mu.Lock()
	a.released = true
	a.mu.Unlock()
}

// String renders the overlay for diagnostics.
func (a *Activation) String() string {
	return strings.Join(a.Env(), " ")
}

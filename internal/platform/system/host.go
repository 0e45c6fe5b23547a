package system

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MachineType returns the raw hardware name reported by uname(2), such as
// "x86_64" or "aarch64".
func MachineType() (string, error) {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}
	return unix.ByteSliceToString(uts.Machine[:]), nil
}

// EffectiveUID returns the effective user ID of the process.
func EffectiveUID() int {
	return unix.Geteuid()
}

// Exec replaces the current process image. It only returns on failure.
func Exec(path string, argv []string, env []string) error {
	if env == nil {
		env = os.Environ()
	}
	if err := unix.Exec(path, argv, env); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}

var archTags = map[string]string{
	"x86_64":  "amd64",
	"aarch64": "arm64",
}

// ArchTag maps a uname machine type to the architecture tag used in release
// names. Unknown machine types are returned unchanged with known=false.
func ArchTag(machine string) (tag string, known bool) {
	if tag, ok := archTags[machine]; ok {
		return tag, true
	}
	return machine, false
}

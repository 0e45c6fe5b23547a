package handlers

import (
	"errors"
	"fmt"

	"github.com/hostforge/hostforge/internal/provisioning"
	"github.com/hostforge/hostforge/internal/runlock"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitUnexpected   = 1
	ExitPrecondition = 2
	ExitDependency   = 3
	ExitArtifact     = 4
	ExitRuntime      = 5
	ExitLockHeld     = 6
	ExitUsage        = 64
)

var (
	// ErrUsage marks invalid flags, arguments or configuration.
	ErrUsage = errors.New("usage error")

	// ErrAborted is returned when the operator declines the confirmation.
	ErrAborted = errors.New("aborted by operator")
)

// ExitCode maps an error returned by a handler to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, runlock.ErrLockHeld) {
		return ExitLockHeld
	}
	if errors.Is(err, ErrUsage) {
		return ExitUsage
	}

	var se *provisioning.StageError
	if !errors.As(err, &se) {
		return ExitUnexpected
	}
	switch se.Kind {
	case provisioning.PreconditionFailure:
		return ExitPrecondition
	case provisioning.DependencyInstallFailure:
		return ExitDependency
	case provisioning.ArtifactFetchFailure:
		return ExitArtifact
	case provisioning.RuntimeEnvFailure:
		return ExitRuntime
	default:
		return ExitUnexpected
	}
}

// FormatError renders err for stderr, naming the failing stage when known.
func FormatError(err error) string {
	var se *provisioning.StageError
	if errors.As(err, &se) {
		return fmt.Sprintf("Error: provisioning failed at %s (%s): %v", se.Location(), se.Kind, se.Err)
	}
	return fmt.Sprintf("Error: %v", err)
}

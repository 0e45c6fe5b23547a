package provisioning

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a stage stopped the pipeline.
type FailureKind int

const (
	// UnexpectedCommandFailure covers any failure a stage did not classify.
	UnexpectedCommandFailure FailureKind = iota
	// PreconditionFailure: wrong privilege, unsupported OS or missing CPU feature.
	PreconditionFailure
	// DependencyInstallFailure: package manager, repository or service setup failure.
	DependencyInstallFailure
	// ArtifactFetchFailure: download or extraction failure.
	ArtifactFetchFailure
	// RuntimeEnvFailure: isolated environment or dependency manifest failure.
	RuntimeEnvFailure
)

func (k FailureKind) String() string {
	switch k {
	case PreconditionFailure:
		return "PreconditionFailure"
	case DependencyInstallFailure:
		return "DependencyInstallFailure"
	case ArtifactFetchFailure:
		return "ArtifactFetchFailure"
	case RuntimeEnvFailure:
		return "RuntimeEnvFailure"
	default:
		return "UnexpectedCommandFailure"
	}
}

// StageError is the typed result of a failed stage.
type StageError struct {
	Stage Stage
	Step  string
	Kind  FailureKind
	Err   error
}

// Location identifies where the failure happened, e.g. "ARTIFACT_FETCH/download-bundle".
func (e *StageError) Location() string {
	if e.Step == "" {
		return e.Stage.String()
	}
	return e.Stage.String() + "/" + e.Step
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Location(), e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Fail classifies err as a failure of kind at step. The pipeline fills in
// the stage. Fail returns nil for a nil err.
func Fail(kind FailureKind, step string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Kind: kind, Step: step, Err: err}
}

// KindOf returns the FailureKind carried by err, or UnexpectedCommandFailure.
func KindOf(err error) FailureKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return UnexpectedCommandFailure
}

// asStageError attaches stage to err, classifying unknown errors as unexpected.
func asStageError(stage Stage, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		out := *se
		out.Stage = stage
		return &out
	}
	return &StageError{Stage: stage, Kind: UnexpectedCommandFailure, Err: err}
}

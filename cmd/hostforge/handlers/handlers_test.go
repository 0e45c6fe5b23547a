package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/journal"
	"github.com/hostforge/hostforge/internal/provisioning"
	"github.com/hostforge/hostforge/internal/runlock"
)

func TestExitCode(t *testing.T) {
	t.Parallel()
	fail := func(kind provisioning.FailureKind) error {
		return &provisioning.StageError{Stage: provisioning.StagePreconditions, Kind: kind, Err: errors.New("x")}
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitUnexpected},
		{"unexpected", fail(provisioning.UnexpectedCommandFailure), ExitUnexpected},
		{"precondition", fail(provisioning.PreconditionFailure), ExitPrecondition},
		{"dependency", fail(provisioning.DependencyInstallFailure), ExitDependency},
		{"artifact", fail(provisioning.ArtifactFetchFailure), ExitArtifact},
		{"runtime", fail(provisioning.RuntimeEnvFailure), ExitRuntime},
		{"wrapped stage error", fmt.Errorf("run: %w", fail(provisioning.RuntimeEnvFailure)), ExitRuntime},
		{"lock", fmt.Errorf("%w (held by pid 12)", runlock.ErrLockHeld), ExitLockHeld},
		{"usage", fmt.Errorf("%w: bad flag", ErrUsage), ExitUsage},
		{"aborted", ErrAborted, ExitUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestFormatError(t *testing.T) {
	t.Parallel()
	err := &provisioning.StageError{
		Stage: provisioning.StageRuntimeEnv,
		Step:  "pip-install",
		Kind:  provisioning.RuntimeEnvFailure,
		Err:   errors.New("failed to install Python requirements"),
	}
	assert.Equal(t,
		"Error: provisioning failed at RUNTIME_ENV/pip-install (RuntimeEnvFailure): failed to install Python requirements",
		FormatError(err))
	assert.Equal(t, "Error: boom", FormatError(errors.New("boom")))
}

func TestCheck_PrintsProfile(t *testing.T) {
	f := newFixture(t, avxCPU)

	require.NoError(t, Check(context.Background(), f.cfgPath, 0))

	out := f.output.String()
	assert.Contains(t, out, "OS:           ubuntu")
	assert.Contains(t, out, "Codename:     jammy")
	assert.Contains(t, out, "Architecture: amd64")
	assert.Contains(t, out, "CPU features: avx, avx2")
	assert.Empty(t, f.runner.Lines(), "check installs nothing")
}

func TestCheck_Unsupported(t *testing.T) {
	f := newFixture(t, legacyCPU)

	err := Check(context.Background(), f.cfgPath, 0)
	assert.Equal(t, ExitPrecondition, ExitCode(err))
}

func TestHistory(t *testing.T) {
	f := newFixture(t, avxCPU)

	require.NoError(t, History(context.Background(), f.cfgPath, 5, ""))
	assert.Contains(t, f.output.String(), "No runs recorded yet.")

	require.NoError(t, f.run(InstallOptions{NoLaunch: true}))
	runID := f.runs()[0].ID
	f.output.Reset()

	require.NoError(t, History(context.Background(), f.cfgPath, 5, ""))
	assert.Contains(t, f.output.String(), runID)
	assert.Contains(t, f.output.String(), "DONE")

	f.output.Reset()
	require.NoError(t, History(context.Background(), f.cfgPath, 5, runID))
	assert.Contains(t, f.output.String(), "ARTIFACT_FETCH")
	assert.Contains(t, f.output.String(), journal.ResultSucceeded)

	err := History(context.Background(), f.cfgPath, 5, "no-such-run")
	assert.ErrorIs(t, err, ErrUsage)

	err = History(context.Background(), f.cfgPath, 0, "")
	assert.ErrorIs(t, err, ErrUsage)
}

func TestPrintRuns(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []journal.RunRecord{
		{ID: "b", StartedAt: now.Add(-time.Hour), State: "FAILED", FailedStage: "DB_ENGINE/install-engine", FailureKind: "DependencyInstallFailure"},
		{ID: "a", StartedAt: now.Add(-48 * time.Hour), FinishedAt: now.Add(-48*time.Hour + 95*time.Second), State: "DONE"},
	}

	var buf bytes.Buffer
	printRuns(&buf, runs, now)

	out := buf.String()
	assert.Contains(t, out, "1 hour ago")
	assert.Contains(t, out, "DB_ENGINE/install-engine (DependencyInstallFailure)")
	assert.Contains(t, out, "1m35s")
	assert.Contains(t, out, "2 days ago")
}

func TestStages_Order(t *testing.T) {
	t.Parallel()
	phases := stages(nil, nil, nil, realHost())

	require.Len(t, phases, 7)
	require.NoError(t, provisioning.NewPipeline(phases...).Validate())
	assert.Equal(t, provisioning.StagePreconditions, phases[0].Stage())
	assert.Equal(t, provisioning.StageLaunch, phases[6].Stage())
}

func TestNewSources_LazyObjectStore(t *testing.T) {
	t.Parallel()
	src := newSources(logr.Discard(), config.Default(), config.LoadTimeouts())
	require.NotNil(t, src.HTTP)
	require.NotNil(t, src.ObjectStore)
	require.NotNil(t, src.Registry)
}

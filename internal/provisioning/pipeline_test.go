package provisioning_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/platform/system/systemtest"
	"github.com/hostforge/hostforge/internal/provisioning"
	"github.com/hostforge/hostforge/internal/provisioning/provisioningtest"
)

type recorder struct {
	started  []provisioning.Stage
	finished []provisioning.Stage
	errs     []error
}

func (r *recorder) StageStarted(s provisioning.Stage) { r.started = append(r.started, s) }
func (r *recorder) StageFinished(s provisioning.Stage, _ time.Duration, err error) {
	r.finished = append(r.finished, s)
	r.errs = append(r.errs, err)
}

func newCtx() (*provisioning.Context, *provisioningtest.MockObserver) {
	return provisioningtest.NewContext(config.Default(), systemtest.NewFakeRunner())
}

func track(executed *[]string, stage provisioning.Stage, name string) provisioning.Phase {
	return provisioning.NewPhase(stage, name, func(_ *provisioning.Context) error {
		*executed = append(*executed, name)
		return nil
	})
}

func TestNewPipeline(t *testing.T) {
	t.Parallel()
	p := provisioning.NewPipeline(
		provisioning.NewPhase(provisioning.StagePreconditions, "preconditions", nil),
		provisioning.NewPhase(provisioning.StageSystemDeps, "system packages", nil),
	)

	require.NotNil(t, p)
	assert.Len(t, p.Phases, 2)
	assert.Equal(t, provisioning.StageStart, p.Machine().Current())
}

func TestPipeline_Run_Success(t *testing.T) {
	t.Parallel()
	var executed []string
	rec := &recorder{}

	p := provisioning.NewPipeline(
		track(&executed, provisioning.StagePreconditions, "preconditions"),
		track(&executed, provisioning.StageSystemDeps, "system packages"),
		track(&executed, provisioning.StageArtifactFetch, "artifact"),
	)
	p.Recorders = []provisioning.Recorder{rec}

	ctx, obs := newCtx()
	require.NoError(t, p.Run(ctx))

	assert.Equal(t, []string{"preconditions", "system packages", "artifact"}, executed)
	assert.Equal(t, provisioning.StageDone, p.Machine().Current())
	assert.Len(t, obs.EventsOf(provisioning.EventPhaseStarted), 3)
	assert.Len(t, obs.EventsOf(provisioning.EventPhaseCompleted), 3)
	assert.Equal(t, rec.started, rec.finished)
	assert.Equal(t, []error{nil, nil, nil}, rec.errs)
}

func TestPipeline_Run_StopsOnError(t *testing.T) {
	t.Parallel()
	var executed []string
	rec := &recorder{}

	p := provisioning.NewPipeline(
		track(&executed, provisioning.StagePreconditions, "preconditions"),
		provisioning.NewPhase(provisioning.StageSystemDeps, "system packages", func(_ *provisioning.Context) error {
			return provisioning.Fail(provisioning.DependencyInstallFailure, "apt-install", errors.New("dpkg lock"))
		}),
		track(&executed, provisioning.StageDBEngine, "database"),
	)
	p.Recorders = []provisioning.Recorder{rec}

	ctx, obs := newCtx()
	err := p.Run(ctx)
	require.Error(t, err)

	var se *provisioning.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, provisioning.StageSystemDeps, se.Stage)
	assert.Equal(t, provisioning.DependencyInstallFailure, se.Kind)
	assert.Equal(t, "SYSTEM_DEPS/apt-install", se.Location())
	assert.Contains(t, err.Error(), "dpkg lock")

	assert.Equal(t, []string{"preconditions"}, executed)
	assert.Equal(t, provisioning.StageFailed, p.Machine().Current())
	assert.Len(t, obs.EventsOf(provisioning.EventPhaseFailed), 1)
	require.Len(t, rec.errs, 2)
	assert.Error(t, rec.errs[1])
}

func TestPipeline_Run_UnclassifiedErrorIsUnexpected(t *testing.T) {
	t.Parallel()
	p := provisioning.NewPipeline(
		provisioning.NewPhase(provisioning.StageAlias, "alias", func(_ *provisioning.Context) error {
			return fmt.Errorf("disk full")
		}),
	)

	ctx, _ := newCtx()
	err := p.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, provisioning.UnexpectedCommandFailure, provisioning.KindOf(err))
	assert.Equal(t, "ALIAS: disk full", err.Error())
}

func TestPipeline_Run_RecoversPanic(t *testing.T) {
	t.Parallel()
	p := provisioning.NewPipeline(
		provisioning.NewPhase(provisioning.StageRuntimeEnv, "runtime", func(_ *provisioning.Context) error {
			panic("nil map")
		}),
	)

	ctx, _ := newCtx()
	err := p.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, provisioning.ErrPanic)

	var se *provisioning.StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "RUNTIME_ENV/panic", se.Location())
	assert.Equal(t, provisioning.StageFailed, p.Machine().Current())
}

func TestPipeline_Run_CancelledContext(t *testing.T) {
	t.Parallel()
	var executed []string
	p := provisioning.NewPipeline(track(&executed, provisioning.StagePreconditions, "preconditions"))

	ctx, _ := newCtx()
	cctx, cancel := context.WithCancel(context.Background())
	cancel()
	ctx.Context = cctx

	err := p.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, executed)
}

func TestPipeline_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		stages []provisioning.Stage
		ok     bool
	}{
		{"in order", []provisioning.Stage{provisioning.StagePreconditions, provisioning.StageLaunch}, true},
		{"empty", nil, true},
		{"back edge", []provisioning.Stage{provisioning.StageArtifactFetch, provisioning.StageSystemDeps}, false},
		{"repeated", []provisioning.Stage{provisioning.StageAlias, provisioning.StageAlias}, false},
		{"terminal stage", []provisioning.Stage{provisioning.StageDone}, false},
		{"start stage", []provisioning.Stage{provisioning.StageStart}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			phases := make([]provisioning.Phase, len(tt.stages))
			for i, s := range tt.stages {
				phases[i] = provisioning.NewPhase(s, s.String(), func(*provisioning.Context) error { return nil })
			}
			err := provisioning.NewPipeline(phases...).Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, provisioning.ErrInvalidTransition)
			}
		})
	}
}

func TestPipeline_Run_EmptyPipelineReachesDone(t *testing.T) {
	t.Parallel()
	p := provisioning.NewPipeline()
	ctx, _ := newCtx()
	require.NoError(t, p.Run(ctx))
	assert.Equal(t, provisioning.StageDone, p.Machine().Current())
}

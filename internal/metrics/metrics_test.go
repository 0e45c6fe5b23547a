package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostforge/hostforge/internal/provisioning"
)

func TestRecorder_StageMetrics(t *testing.T) {
	t.Parallel()
	r := NewRecorder()

	var rec provisioning.Recorder = r
	rec.StageStarted(provisioning.StagePreconditions)
	rec.StageFinished(provisioning.StagePreconditions, 1500*time.Millisecond, nil)
	rec.StageFinished(provisioning.StageArtifactFetch, 2*time.Second, errors.New("404"))

	assert.Equal(t, 1.5, testutil.ToFloat64(r.stageDuration.WithLabelValues("PRECONDITIONS")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.stageSuccess.WithLabelValues("PRECONDITIONS")))
	assert.Equal(t, float64(0), testutil.ToFloat64(r.stageSuccess.WithLabelValues("ARTIFACT_FETCH")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.stageSuccess))
}

func TestRecorder_FinishSuccess(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	start := time.Unix(1700000000, 0)
	r.started = start
	r.now = func() time.Time { return start.Add(90 * time.Second) }

	r.Finish(nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(r.runSuccess))
	assert.Equal(t, float64(90), testutil.ToFloat64(r.runDuration))
	assert.Equal(t, float64(1700000090), testutil.ToFloat64(r.lastRun))
	assert.Equal(t, 0, testutil.CollectAndCount(r.failures))
}

func TestRecorder_FinishFailure(t *testing.T) {
	t.Parallel()
	r := NewRecorder()

	r.Finish(provisioning.Fail(provisioning.RuntimeEnvFailure, "pip-install", errors.New("no wheel")))

	assert.Equal(t, float64(0), testutil.ToFloat64(r.runSuccess))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.failures.WithLabelValues("RuntimeEnvFailure")))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	t.Parallel()
	r := NewRecorder()
	r.StageFinished(provisioning.StageAlias, time.Second, nil)
	r.Finish(nil)

	path := filepath.Join(t.TempDir(), "textfile", "hostforge.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `hostforge_stage_success{stage="ALIAS"} 1`)
	assert.Contains(t, string(data), "hostforge_run_success 1")
}

func TestRecorder_WriteTextfile_EmptyPath(t *testing.T) {
	t.Parallel()
	assert.NoError(t, NewRecorder().WriteTextfile(""))
}

// Package metrics exposes provisioning run metrics in the Prometheus text
// format, written to a node_exporter textfile collector directory.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hostforge/hostforge/internal/provisioning"
)

const namespace = "hostforge"

// Recorder collects stage and run metrics into a private registry.
// It implements provisioning.Recorder.
type Recorder struct {
	registry *prometheus.Registry
	now      func() time.Time

	stageDuration *prometheus.GaugeVec
	stageSuccess  *prometheus.GaugeVec
	runSuccess    prometheus.Gauge
	runDuration   prometheus.Gauge
	lastRun       prometheus.Gauge
	failures      *prometheus.GaugeVec

	started time.Time
}

// NewRecorder creates a recorder and marks the run as started.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		now:      time.Now,

		stageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "duration_seconds",
				Help:      "Duration of the last execution of each provisioning stage in seconds",
			},
			[]string{"stage"},
		),
		stageSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stage",
				Name:      "success",
				Help:      "Whether the provisioning stage succeeded (1) or failed (0)",
			},
			[]string{"stage"},
		),
		runSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "success",
			Help:      "Whether the last provisioning run succeeded (1) or failed (0)",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Duration of the last provisioning run in seconds",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "last_timestamp_seconds",
			Help:      "Unix time the last provisioning run finished",
		}),
		failures: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "run",
				Name:      "failure",
				Help:      "Failure kind of the last provisioning run (1 for the kind that occurred)",
			},
			[]string{"kind"},
		),
	}

	r.registry.MustRegister(
		r.stageDuration,
		r.stageSuccess,
		r.runSuccess,
		r.runDuration,
		r.lastRun,
		r.failures,
	)
	r.started = r.now()
	return r
}

// Registry returns the registry holding the run metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// StageStarted implements provisioning.Recorder.
func (r *Recorder) StageStarted(provisioning.Stage) {}

// StageFinished implements provisioning.Recorder.
func (r *Recorder) StageFinished(stage provisioning.Stage, elapsed time.Duration, err error) {
	r.stageDuration.WithLabelValues(stage.String()).Set(elapsed.Seconds())
	r.stageSuccess.WithLabelValues(stage.String()).Set(boolGauge(err == nil))
}

// Finish records the outcome of the run.
func (r *Recorder) Finish(runErr error) {
	end := r.now()
	r.runSuccess.Set(boolGauge(runErr == nil))
	r.runDuration.Set(end.Sub(r.started).Seconds())
	r.lastRun.Set(float64(end.Unix()))
	if runErr != nil {
		r.failures.WithLabelValues(provisioning.KindOf(runErr).String()).Set(1)
	}
}

// WriteTextfile atomically writes the metrics to path. An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func boolGauge(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

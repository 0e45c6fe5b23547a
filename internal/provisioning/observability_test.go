package provisioning

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type captureReporter struct {
	lines []string
}

func (c *captureReporter) add(level, format string, args ...any) {
	c.lines = append(c.lines, level+" "+fmt.Sprintf(format, args...))
}
func (c *captureReporter) Info(f string, a ...any)    { c.add("info", f, a...) }
func (c *captureReporter) Success(f string, a ...any) { c.add("success", f, a...) }
func (c *captureReporter) Warn(f string, a ...any)    { c.add("warn", f, a...) }
func (c *captureReporter) Error(f string, a ...any)   { c.add("error", f, a...) }

func TestConsoleObserver_EventLevels(t *testing.T) {
	t.Parallel()
	rep := &captureReporter{}
	obs := NewConsoleObserver(rep)

	LogPhaseStart(obs, "PRECONDITIONS 1/7")
	LogPhaseComplete(obs, "PRECONDITIONS 1/7", 1500*time.Millisecond)
	LogResourceExists(obs, "DB_ENGINE", "database engine", "mongod")
	LogWarning(obs, "ALIAS", "profile not writable")
	LogPhaseFailed(obs, "ARTIFACT_FETCH", fmt.Errorf("404"))

	assert.Equal(t, []string{
		"info [PRECONDITIONS 1/7] starting",
		"success [PRECONDITIONS 1/7] completed in 1.5s",
		"info [DB_ENGINE] mongod: database engine already present, skipping",
		"warn [ALIAS] profile not writable",
		"error [ARTIFACT_FETCH] failed: 404",
	}, rep.lines)
}

func TestConsoleObserver_WithFields(t *testing.T) {
	t.Parallel()
	rep := &captureReporter{}
	obs := NewConsoleObserver(rep).WithFields(map[string]string{"run": "r1", "host": "h"})

	obs.Event(Event{Type: EventResourceCreated, Phase: "ARTIFACT_FETCH", Resource: "/opt/app", Message: "install root ready",
		Fields: map[string]string{"run": "override"}})

	assert.Equal(t, []string{"success [ARTIFACT_FETCH] /opt/app: install root ready (host=h, run=override)"}, rep.lines)
}

func TestHostProfile(t *testing.T) {
	t.Parallel()
	h := &HostProfile{ID: "ubuntu", VersionID: "24.04", Codename: "noble", CPUFlags: map[string]struct{}{"avx2": {}}}
	assert.Equal(t, "ubuntu 24.04 (noble)", h.String())
	assert.True(t, h.HasFlag("avx2"))
	assert.False(t, h.HasFlag("avx"))

	h.Codename = ""
	assert.Equal(t, "ubuntu 24.04", h.String())
}

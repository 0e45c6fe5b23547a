package provisioning

import (
	"errors"
	"fmt"
	"time"
)

// Stage is a state of the provisioning state machine.
type Stage int

// Stages in execution order. StageFailed is terminal and reachable from any
// non-terminal stage.
const (
	StageStart Stage = iota
	StagePreconditions
	StageSystemDeps
	StageDBEngine
	StageArtifactFetch
	StageRuntimeEnv
	StageAlias
	StageLaunch
	StageDone
	StageFailed
)

var stageNames = map[Stage]string{
	StageStart:         "START",
	StagePreconditions: "PRECONDITIONS",
	StageSystemDeps:    "SYSTEM_DEPS",
	StageDBEngine:      "DB_ENGINE",
	StageArtifactFetch: "ARTIFACT_FETCH",
	StageRuntimeEnv:    "RUNTIME_ENV",
	StageAlias:         "ALIAS",
	StageLaunch:        "LAUNCH",
	StageDone:          "DONE",
	StageFailed:        "FAILED",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Terminal reports whether no transition leaves s.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// ErrInvalidTransition is returned for back-edges, repeated stages and
// transitions out of a terminal stage.
var ErrInvalidTransition = errors.New("invalid stage transition")

// Transition is one recorded state change.
type Transition struct {
	From Stage
	To   Stage
	At   time.Time
}

// Machine tracks the pipeline stage. Transitions only move forward; stages
// may be skipped but never revisited.
type Machine struct {
	current Stage
	history []Transition
	now     func() time.Time
}

// NewMachine returns a machine in StageStart.
func NewMachine() *Machine {
	return &Machine{current: StageStart, now: time.Now}
}

// Current returns the current stage.
func (m *Machine) Current() Stage {
	return m.current
}

// History returns the transitions taken so far.
func (m *Machine) History() []Transition {
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// Advance moves to stage to.
func (m *Machine) Advance(to Stage) error {
	if m.current.Terminal() || to <= m.current || to == StageFailed || to > StageDone {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.current, to)
	}
	m.record(to)
	return nil
}

// Fail moves to StageFailed from any non-terminal stage.
func (m *Machine) Fail() {
	if m.current.Terminal() {
		return
	}
	m.record(StageFailed)
}

func (m *Machine) record(to Stage) {
	m.history = append(m.history, Transition{From: m.current, To: to, At: m.now()})
	m.current = to
}

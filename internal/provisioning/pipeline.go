package provisioning

import (
	"errors"
	"fmt"
	"time"
)

// Phase defines the interface for a provisioning phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Stage returns the state machine stage this phase implements.
	Stage() Stage

	// Provision executes the provisioning logic for this phase.
	Provision(ctx *Context) error
}

// Recorder is notified around every phase. Journals and metrics implement it.
type Recorder interface {
	StageStarted(stage Stage)
	StageFinished(stage Stage, elapsed time.Duration, err error)
}

// Pipeline runs phases in stage order and stops at the first failure.
type Pipeline struct {
	Phases    []Phase
	Recorders []Recorder

	machine *Machine
}

// NewPipeline creates a pipeline from phases.
func NewPipeline(phases ...Phase) *Pipeline {
	return &Pipeline{Phases: phases, machine: NewMachine()}
}

// Machine exposes the pipeline state machine.
func (p *Pipeline) Machine() *Machine {
	if p.machine == nil {
		p.machine = NewMachine()
	}
	return p.machine
}

// Validate checks that phases are in strictly increasing stage order and
// only use executable stages.
func (p *Pipeline) Validate() error {
	prev := StageStart
	for _, phase := range p.Phases {
		s := phase.Stage()
		if s <= prev || s >= StageDone {
			return fmt.Errorf("%w: phase %q at %s after %s", ErrInvalidTransition, phase.Name(), s, prev)
		}
		prev = s
	}
	return nil
}

// Run executes all phases sequentially. On failure it returns a *StageError
// and the machine is left in StageFailed. On success the machine is in
// StageDone.
func (p *Pipeline) Run(ctx *Context) error {
	if err := p.Validate(); err != nil {
		return err
	}

	m := p.Machine()
	start := time.Now()
	total := len(p.Phases)

	for i, phase := range p.Phases {
		stage := phase.Stage()
		if err := m.Advance(stage); err != nil {
			return err
		}

		label := fmt.Sprintf("%s %d/%d", stage, i+1, total)
		LogPhaseStart(ctx.Observer, label)
		for _, r := range p.Recorders {
			r.StageStarted(stage)
		}

		phaseStart := time.Now()
		err := ctx.Err()
		if err == nil {
			err = provision(ctx, phase)
		}
		elapsed := time.Since(phaseStart)

		if err != nil {
			se := asStageError(stage, err)
			m.Fail()
			LogPhaseFailed(ctx.Observer, label, se)
			for _, r := range p.Recorders {
				r.StageFinished(stage, elapsed, se)
			}
			return se
		}

		LogPhaseComplete(ctx.Observer, label, elapsed)
		for _, r := range p.Recorders {
			r.StageFinished(stage, elapsed, nil)
		}
	}

	if err := m.Advance(StageDone); err != nil {
		return err
	}
	ctx.Log.V(1).Info("pipeline finished", "phases", total, "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// ErrPanic wraps a panic recovered from a phase.
var ErrPanic = errors.New("phase panicked")

// provision runs one phase, converting a panic into an error so the
// pipeline can still report the failing stage.
func provision(ctx *Context, phase Phase) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &StageError{Kind: UnexpectedCommandFailure, Step: "panic", Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
	}()
	return phase.Provision(ctx)
}

// PhaseFunc adapts a function to the Phase interface.
type PhaseFunc struct {
	PhaseName  string
	PhaseStage Stage
	Fn         func(ctx *Context) error
}

// NewPhase creates a Phase from a function.
func NewPhase(stage Stage, name string, fn func(ctx *Context) error) *PhaseFunc {
	return &PhaseFunc{PhaseName: name, PhaseStage: stage, Fn: fn}
}

// Name implements Phase.
func (p *PhaseFunc) Name() string { return p.PhaseName }

// Stage implements Phase.
func (p *PhaseFunc) Stage() Stage { return p.PhaseStage }

// Provision implements Phase.
func (p *PhaseFunc) Provision(ctx *Context) error { return p.Fn(ctx) }

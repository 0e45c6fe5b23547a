// Package systemtest provides a recording fake of system.Runner for tests.
package systemtest

import (
	"context"
	"os/exec"
	"strings"
	"sync"

	"github.com/hostforge/hostforge/internal/platform/system"
)

// Handler simulates one command. It may mutate the fake (for example to
// make a binary resolvable after its install command ran).
type Handler func(f *FakeRunner, cmd system.Command) ([]byte, error)

// FakeRunner records every command and answers from registered handlers.
// Commands without a handler succeed with empty output.
type FakeRunner struct {
	mu       sync.Mutex
	commands []system.Command
	handlers []prefixHandler
	paths    map[string]string
}

type prefixHandler struct {
	prefix string
	fn     Handler
}

// NewFakeRunner creates an empty fake.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{paths: make(map[string]string)}
}

// On registers a handler for commands whose String() starts with prefix.
// Later registrations win.
func (f *FakeRunner) On(prefix string, fn Handler) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers = append(f.handlers, prefixHandler{prefix: prefix, fn: fn})
	return f
}

// Fail makes commands starting with prefix fail with err.
func (f *FakeRunner) Fail(prefix string, err error) *FakeRunner {
	return f.On(prefix, func(_ *FakeRunner, _ system.Command) ([]byte, error) { return nil, err })
}

// Provide makes name resolvable by LookPath.
func (f *FakeRunner) Provide(name string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[name] = "/usr/bin/" + name
	return f
}

// Run implements system.Runner.
func (f *FakeRunner) Run(ctx context.Context, cmd system.Command) error {
	_, err := f.Output(ctx, cmd)
	return err
}

// Output implements system.Runner.
func (f *FakeRunner) Output(ctx context.Context, cmd system.Command) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	var fn Handler
	line := cmd.String()
	for i := len(f.handlers) - 1; i >= 0; i-- {
		if strings.HasPrefix(line, f.handlers[i].prefix) {
			fn = f.handlers[i].fn
			break
		}
	}
	f.mu.Unlock()

	if fn == nil {
		return nil, nil
	}
	return fn(f, cmd)
}

// LookPath implements system.Runner.
func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// Commands returns the recorded commands.
func (f *FakeRunner) Commands() []system.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]system.Command, len(f.commands))
	copy(out, f.commands)
	return out
}

// Lines returns the recorded command lines.
func (f *FakeRunner) Lines() []string {
	cmds := f.Commands()
	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.String()
	}
	return lines
}

// Ran reports whether any recorded command line starts with prefix.
func (f *FakeRunner) Ran(prefix string) bool {
	for _, l := range f.Lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

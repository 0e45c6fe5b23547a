package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/go-logr/logr"
)

// stderrTail is the number of stderr bytes kept on a CommandError.
const stderrTail = 2048

// Command describes one external program invocation.
type Command struct {
	Name string
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env entries (KEY=VALUE) are appended to the process environment and
	// take precedence over inherited values.
	Env []string
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes external commands.
type Runner interface {
	// Run executes the command, streaming its output to the operator.
	Run(ctx context.Context, cmd Command) error

	// Output executes the command and returns its standard output.
	Output(ctx context.Context, cmd Command) ([]byte, error)

	// LookPath resolves a binary name on PATH.
	LookPath(name string) (string, error)
}

// CommandError is returned when a command exits unsuccessfully.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("command %q failed", e.Command)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" with exit code %d", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands on the local host with os/exec.
type ExecRunner struct {
	// Log receives the command lines at verbosity 1.
	Log logr.Logger

	// Stdout and Stderr receive streamed output from Run.
	// Nil means the process streams.
	Stdout io.Writer
	Stderr io.Writer

	// Timeout bounds each command. Zero means no limit.
	Timeout time.Duration
}

// NewExecRunner creates a runner that streams to the process stdout/stderr.
func NewExecRunner(log logr.Logger, timeout time.Duration) *ExecRunner {
	return &ExecRunner{Log: log, Timeout: timeout}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var stderr bytes.Buffer
	c := r.build(ctx, cmd)
	c.Stdout = r.stdout()
	c.Stderr = io.MultiWriter(r.stderr(), &tailWriter{buf: &stderr, max: stderrTail})

	r.Log.V(1).Info("running command", "cmd", cmd.String(), "dir", cmd.Dir)
	start := time.Now()
	err := c.Run()
	r.Log.V(1).Info("command finished", "cmd", cmd.Name, "duration", time.Since(start).Round(time.Millisecond))
	return wrapExitError(cmd, err, stderr.String())
}

// Output implements Runner.
func (r *ExecRunner) Output(ctx context.Context, cmd Command) ([]byte, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var stdout, stderr bytes.Buffer
	c := r.build(ctx, cmd)
	c.Stdout = &stdout
	c.Stderr = &tailWriter{buf: &stderr, max: stderrTail}

	r.Log.V(1).Info("running command", "cmd", cmd.String(), "dir", cmd.Dir)
	if err := c.Run(); err != nil {
		return stdout.Bytes(), wrapExitError(cmd, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// LookPath implements Runner.
func (r *ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (r *ExecRunner) build(ctx context.Context, cmd Command) *exec.Cmd {
	// #nosec G204 - commands come from the provisioning stages, not user input
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	return c
}

func (r *ExecRunner) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.Timeout)
}

func (r *ExecRunner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *ExecRunner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

func wrapExitError(cmd Command, err error, stderr string) error {
	if err == nil {
		return nil
	}
	cerr := &CommandError{
		Command: cmd.String(),
		Stderr:  strings.TrimSpace(stderr),
		Err:     err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cerr.ExitCode = exitErr.ExitCode()
	}
	return cerr
}

// tailWriter keeps the last max bytes written to it.
type tailWriter struct {
	buf *bytes.Buffer
	max int
}

func (w *tailWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.buf.Write(p)
	if over := w.buf.Len() - w.max; over > 0 {
		w.buf.Next(over)
	}
	return n, nil
}

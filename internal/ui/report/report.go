// Package report renders categorized status messages for the operator.
//
// Info and success lines go to stdout; warnings, errors and debug lines go
// to stderr so they stay visible when stdout is redirected. Colors are only
// used when the target stream is a terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-logr/logr"
	"github.com/mattn/go-isatty"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
)

const (
	infoMark    = "[..]"
	successMark = "[OK]"
	warnMark    = "[??]"
	errorMark   = "[!!]"
	debugMark   = "[db]"
)

// Reporter writes categorized messages. It is safe for concurrent use.
type Reporter struct {
	mu        sync.Mutex
	out       stream
	err       stream
	verbosity int
}

type stream struct {
	w      io.Writer
	styled bool
	r      *lipgloss.Renderer
}

func (s stream) render(c lipgloss.Color, bold bool, text string) string {
	if !s.styled {
		return text
	}
	return s.r.NewStyle().Foreground(c).Bold(bold).Render(text)
}

// New creates a reporter on the process stdout and stderr, enabling colors
// for each stream that is a terminal.
func New(verbosity int) *Reporter {
	return NewWriters(os.Stdout, os.Stderr, isTerminal(os.Stdout), isTerminal(os.Stderr), verbosity)
}

// NewWriters creates a reporter on arbitrary writers.
func NewWriters(stdout, stderr io.Writer, colorOut, colorErr bool, verbosity int) *Reporter {
	return &Reporter{
		out:       stream{w: stdout, styled: colorOut, r: lipgloss.NewRenderer(stdout)},
		err:       stream{w: stderr, styled: colorErr, r: lipgloss.NewRenderer(stderr)},
		verbosity: verbosity,
	}
}

// Info reports progress.
func (r *Reporter) Info(format string, args ...any) {
	r.write(r.out, colorBlue, false, infoMark, fmt.Sprintf(format, args...))
}

// Success reports a completed step.
func (r *Reporter) Success(format string, args ...any) {
	r.write(r.out, colorGreen, true, successMark, fmt.Sprintf(format, args...))
}

// Warn reports a condition that does not stop the run.
func (r *Reporter) Warn(format string, args ...any) {
	r.write(r.err, colorYellow, true, warnMark, fmt.Sprintf(format, args...))
}

// Error reports a failure.
func (r *Reporter) Error(format string, args ...any) {
	r.write(r.err, colorRed, true, errorMark, fmt.Sprintf(format, args...))
}

// Verbosity returns the configured debug verbosity.
func (r *Reporter) Verbosity() int {
	return r.verbosity
}

// Logger returns a logr.Logger that writes through this reporter.
// V(n) lines are printed only when n <= the reporter verbosity.
func (r *Reporter) Logger() logr.Logger {
	return logr.New(&sink{r: r})
}

func (r *Reporter) debug(msg string) {
	r.write(r.err, colorDim, false, debugMark, msg)
}

func (r *Reporter) write(s stream, c lipgloss.Color, bold bool, mark, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg = strings.TrimRight(msg, "\n")
	_, _ = fmt.Fprintf(s.w, "%s %s\n", s.render(c, bold, mark), msg)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

package report

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"
)

// sink adapts the Reporter to logr.
type sink struct {
	r      *Reporter
	name   string
	values []any
}

var _ logr.LogSink = (*sink)(nil)

func (s *sink) Init(logr.RuntimeInfo) {}

func (s *sink) Enabled(level int) bool {
	return level <= s.r.verbosity
}

func (s *sink) Info(level int, msg string, kv ...any) {
	line := s.format(msg, kv)
	if level == 0 {
		s.r.Info("%s", line)
		return
	}
	s.r.debug(line)
}

func (s *sink) Error(err error, msg string, kv ...any) {
	line := s.format(msg, kv)
	if err != nil {
		line += fmt.Sprintf(" error=%q", err.Error())
	}
	s.r.Error("%s", line)
}

func (s *sink) WithValues(kv ...any) logr.LogSink {
	values := make([]any, 0, len(s.values)+len(kv))
	values = append(values, s.values...)
	values = append(values, kv...)
	return &sink{r: s.r, name: s.name, values: values}
}

func (s *sink) WithName(name string) logr.LogSink {
	n := name
	if s.name != "" {
		n = s.name + "/" + name
	}
	return &sink{r: s.r, name: n, values: s.values}
}

func (s *sink) format(msg string, kv []any) string {
	var b strings.Builder
	if s.name != "" {
		b.WriteString(s.name)
		b.WriteString(": ")
	}
	b.WriteString(msg)
	writeKV(&b, s.values)
	writeKV(&b, kv)
	return b.String()
}

func writeKV(b *strings.Builder, kv []any) {
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		var val any = "(missing)"
		if i+1 < len(kv) {
			val = kv[i+1]
		}
		fmt.Fprintf(b, " %s=%v", key, val)
	}
}

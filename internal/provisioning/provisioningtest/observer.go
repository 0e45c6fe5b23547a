// Package provisioningtest provides test doubles for provisioning phases.
package provisioningtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/platform/system"
	"github.com/hostforge/hostforge/internal/provisioning"
)

// MockObserver records events and reporter messages.
type MockObserver struct {
	mu       *sync.Mutex
	events   *[]provisioning.Event
	messages *[]Message
	fields   map[string]string
}

// Message is one recorded reporter call.
type Message struct {
	Level string
	Text  string
}

// NewMockObserver creates an empty recorder.
func NewMockObserver() *MockObserver {
	return &MockObserver{
		mu:       &sync.Mutex{},
		events:   &[]provisioning.Event{},
		messages: &[]Message{},
		fields:   map[string]string{},
	}
}

func (m *MockObserver) add(level, format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*m.messages = append(*m.messages, Message{Level: level, Text: fmt.Sprintf(format, args...)})
}

// Info implements provisioning.Reporter.
func (m *MockObserver) Info(format string, args ...any) { m.add("info", format, args...) }

// Success implements provisioning.Reporter.
func (m *MockObserver) Success(format string, args ...any) { m.add("success", format, args...) }

// Warn implements provisioning.Reporter.
func (m *MockObserver) Warn(format string, args ...any) { m.add("warn", format, args...) }

// Error implements provisioning.Reporter.
func (m *MockObserver) Error(format string, args ...any) { m.add("error", format, args...) }

// Event implements provisioning.Observer.
func (m *MockObserver) Event(event provisioning.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.Fields == nil {
		event.Fields = map[string]string{}
	}
	for k, v := range m.fields {
		if _, ok := event.Fields[k]; !ok {
			event.Fields[k] = v
		}
	}
	*m.events = append(*m.events, event)
}

// WithFields implements provisioning.Observer. The derived observer shares
// the recorded events with its parent.
func (m *MockObserver) WithFields(fields map[string]string) provisioning.Observer {
	merged := make(map[string]string, len(m.fields)+len(fields))
	for k, v := range m.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &MockObserver{mu: m.mu, events: m.events, messages: m.messages, fields: merged}
}

// Events returns the recorded events.
func (m *MockObserver) Events() []provisioning.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]provisioning.Event, len(*m.events))
	copy(out, *m.events)
	return out
}

// EventsOf returns the recorded events of one type.
func (m *MockObserver) EventsOf(t provisioning.EventType) []provisioning.Event {
	var out []provisioning.Event
	for _, e := range m.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Messages returns the recorded reporter messages.
func (m *MockObserver) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(*m.messages))
	copy(out, *m.messages)
	return out
}

// HasMessage reports whether a message at level contains substr.
func (m *MockObserver) HasMessage(level, substr string) bool {
	for _, msg := range m.Messages() {
		if msg.Level == level && strings.Contains(msg.Text, substr) {
			return true
		}
	}
	return false
}

// NewContext builds a provisioning context around cfg and runner with a
// recording observer.
func NewContext(cfg *config.Config, runner system.Runner) (*provisioning.Context, *MockObserver) {
	obs := NewMockObserver()
	ctx := &provisioning.Context{
		Context:  context.Background(),
		Config:   cfg,
		State:    provisioning.NewState("test-run"),
		Runner:   runner,
		Observer: obs,
		Log:      logr.Discard(),
	}
	return ctx, obs
}

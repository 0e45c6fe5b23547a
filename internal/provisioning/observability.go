package provisioning

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Reporter emits categorized operator messages.
type Reporter interface {
	Info(format string, args ...any)
	Success(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Observer defines the interface for structured observability during provisioning.
type Observer interface {
	Reporter

	// Event emits a structured event
	Event(event Event)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured provisioning event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Stage name (e.g., "ARTIFACT_FETCH")
	Message   string            // Human-readable message
	Resource  string            // Resource name or path if applicable
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of provisioning event.
type EventType string

const (
	// EventPhaseStarted indicates a provisioning phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a provisioning phase completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a provisioning phase failed.
	EventPhaseFailed EventType = "phase.failed"

	// EventResourceCreated indicates a resource was created or installed.
	EventResourceCreated EventType = "resource.created"
	// EventResourceExists indicates an idempotency guard found the resource present.
	EventResourceExists EventType = "resource.exists"
	// EventResourceDeleted indicates a resource was deleted.
	EventResourceDeleted EventType = "resource.deleted"

	// EventValidationWarning indicates a non-fatal problem.
	EventValidationWarning EventType = "validation.warning"
)

// ConsoleObserver implements Observer on top of a Reporter.
type ConsoleObserver struct {
	Reporter
	contextFields map[string]string
}

// NewConsoleObserver creates a new console-based observer.
func NewConsoleObserver(r Reporter) *ConsoleObserver {
	return &ConsoleObserver{
		Reporter:      r,
		contextFields: make(map[string]string),
	}
}

// Event implements Observer interface.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.Fields == nil {
		event.Fields = make(map[string]string)
	}
	for k, v := range o.contextFields {
		if _, exists := event.Fields[k]; !exists {
			event.Fields[k] = v
		}
	}

	msg := formatEvent(event)
	switch event.Type {
	case EventPhaseCompleted, EventResourceCreated:
		o.Success("%s", msg)
	case EventPhaseFailed:
		o.Error("%s", msg)
	case EventValidationWarning:
		o.Warn("%s", msg)
	default:
		o.Info("%s", msg)
	}
}

// WithFields implements Observer interface.
func (o *ConsoleObserver) WithFields(fields map[string]string) Observer {
	newFields := make(map[string]string, len(o.contextFields)+len(fields))
	for k, v := range o.contextFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &ConsoleObserver{
		Reporter:      o.Reporter,
		contextFields: newFields,
	}
}

// formatEvent formats an event for console output.
func formatEvent(event Event) string {
	var parts []string

	if event.Phase != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Phase))
	}

	if event.Resource != "" {
		parts = append(parts, event.Resource+":")
	}

	parts = append(parts, event.Message)

	if len(event.Fields) > 0 {
		keys := make([]string, 0, len(event.Fields))
		for k := range event.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fieldParts := make([]string, 0, len(keys))
		for _, k := range keys {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%s", k, event.Fields[k]))
		}
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(fieldParts, ", ")))
	}

	return strings.Join(parts, " ")
}

// LogPhaseStart logs a phase start event.
func LogPhaseStart(observer Observer, phase string) {
	observer.Event(Event{
		Type:    EventPhaseStarted,
		Phase:   phase,
		Message: "starting",
	})
}

// LogPhaseComplete logs a phase completion event.
func LogPhaseComplete(observer Observer, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogPhaseFailed logs a phase failure event.
func LogPhaseFailed(observer Observer, phase string, err error) {
	observer.Event(Event{
		Type:    EventPhaseFailed,
		Phase:   phase,
		Message: fmt.Sprintf("failed: %v", err),
	})
}

// LogResourceCreated logs a resource that was created or installed.
func LogResourceCreated(observer Observer, phase, resourceType, resource string) {
	observer.Event(Event{
		Type:     EventResourceCreated,
		Phase:    phase,
		Resource: resource,
		Message:  fmt.Sprintf("%s ready", resourceType),
	})
}

// LogResourceExists logs when an idempotency guard skips a mutation.
func LogResourceExists(observer Observer, phase, resourceType, resource string) {
	observer.Event(Event{
		Type:     EventResourceExists,
		Phase:    phase,
		Resource: resource,
		Message:  fmt.Sprintf("%s already present, skipping", resourceType),
	})
}

// LogResourceDeleted logs a deleted resource.
func LogResourceDeleted(observer Observer, phase, resourceType, resource string) {
	observer.Event(Event{
		Type:     EventResourceDeleted,
		Phase:    phase,
		Resource: resource,
		Message:  fmt.Sprintf("%s deleted", resourceType),
	})
}

// LogWarning logs a non-fatal problem.
func LogWarning(observer Observer, phase, message string) {
	observer.Event(Event{
		Type:    EventValidationWarning,
		Phase:   phase,
		Message: message,
	})
}

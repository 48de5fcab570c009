package orchestration

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
)

// Observer receives structured events during a deployment.
type Observer interface {
	// Event emits a structured event
	Event(event Event)
}

// Event represents a structured deployment event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Deployment phase (genesis, bootstrap, validators)
	Node      string            // Node name if applicable
	Message   string            // Human-readable message
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of deployment event.
type EventType string

const (
	// EventPhaseStarted indicates a deployment phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a deployment phase completed.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a deployment phase failed.
	EventPhaseFailed EventType = "phase.failed"

	// EventNodeTransition indicates a node changed phase.
	EventNodeTransition EventType = "node.transition"
	// EventAPIRetry indicates an API call is retried.
	EventAPIRetry EventType = "api.retry"
	// EventResourceExists indicates an object already existed and was adopted.
	EventResourceExists EventType = "resource.exists"
)

// Deployment phase names.
const (
	PhaseNameGenesis    = "genesis"
	PhaseNameBootstrap  = "bootstrap"
	PhaseNameValidators = "validators"
)

// LogObserver writes events to a logr.Logger.
type LogObserver struct {
	logger logr.Logger
}

// NewLogObserver creates an observer that logs through logger.
func NewLogObserver(logger logr.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

// Event implements Observer.
func (o *LogObserver) Event(event Event) {
	kv := []any{"event", string(event.Type)}
	if event.Phase != "" {
		kv = append(kv, "phase", event.Phase)
	}
	if event.Node != "" {
		kv = append(kv, "node", event.Node)
	}
	for k, v := range event.Fields {
		kv = append(kv, k, v)
	}

	switch event.Type {
	case EventAPIRetry, EventResourceExists:
		o.logger.V(1).Info(event.Message, kv...)
	default:
		o.logger.Info(event.Message, kv...)
	}
}

// Helper functions for common events

func logPhaseStart(observer Observer, phase string) {
	observer.Event(Event{
		Type:    EventPhaseStarted,
		Phase:   phase,
		Message: "starting",
	})
}

func logPhaseComplete(observer Observer, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

func logPhaseFailed(observer Observer, phase string, err error) {
	observer.Event(Event{
		Type:    EventPhaseFailed,
		Phase:   phase,
		Message: fmt.Sprintf("failed: %v", err),
	})
}

func logTransition(observer Observer, phase string, t Transition) {
	fields := map[string]string{
		"from": string(t.From),
		"to":   string(t.To),
		"role": string(t.Role),
	}
	if t.Reason != "" {
		fields["reason"] = t.Reason
	}
	observer.Event(Event{
		Type:      EventNodeTransition,
		Phase:     phase,
		Node:      t.Node,
		Message:   fmt.Sprintf("%s -> %s", t.From, t.To),
		Timestamp: t.At,
		Fields:    fields,
	})
}

func logAPIRetry(observer Observer, phase, node, operation string, attempt int, err error) {
	observer.Event(Event{
		Type:    EventAPIRetry,
		Phase:   phase,
		Node:    node,
		Message: fmt.Sprintf("retrying %s: %v", operation, err),
		Fields: map[string]string{
			"operation": operation,
			"attempt":   fmt.Sprint(attempt),
		},
	})
}

func logResourceExists(observer Observer, phase, node, kind, name string) {
	observer.Event(Event{
		Type:    EventResourceExists,
		Phase:   phase,
		Node:    node,
		Message: fmt.Sprintf("%s already exists, adopting", kind),
		Fields: map[string]string{
			"kind": kind,
			"name": name,
		},
	})
}

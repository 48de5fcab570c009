package orchestration

import (
	"fmt"
	"time"
)

// BootstrapTimeoutError is returned when the bootstrap validator is not
// Ready within the bootstrap timeout. No validator is submitted after it.
type BootstrapTimeoutError struct {
	Node    string
	Timeout time.Duration
	// Last is the last readiness observation.
	Last string
}

func (e *BootstrapTimeoutError) Error() string {
	msg := fmt.Sprintf("bootstrap validator %s not ready within %v", e.Node, e.Timeout)
	if e.Last != "" {
		msg += " (" + e.Last + ")"
	}
	return msg
}

// NodeDeploymentError records why one node could not be deployed.
type NodeDeploymentError struct {
	Node     string
	Attempts int
	Err      error
}

func (e *NodeDeploymentError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("node %s failed after %d attempts: %v", e.Node, e.Attempts, e.Err)
	}
	return fmt.Sprintf("node %s failed: %v", e.Node, e.Err)
}

func (e *NodeDeploymentError) Unwrap() error {
	return e.Err
}

// GenesisMismatchError is returned when an object of the plan already exists
// but was created from another genesis artifact. Adopting it would mix two
// clusters, so the namespace has to be cleared first.
type GenesisMismatchError struct {
	Kind     string
	Name     string
	Existing string
	Planned  string
}

func (e *GenesisMismatchError) Error() string {
	existing := e.Existing
	if existing == "" {
		existing = "none"
	}
	return fmt.Sprintf("%s %s already exists from genesis artifact %s but the plan uses %s; delete the existing cluster first",
		e.Kind, e.Name, existing, e.Planned)
}

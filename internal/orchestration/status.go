package orchestration

import (
	"fmt"
	"strings"

	"github.com/imamik/solk8s/internal/manifest"
)

// Outcome is the overall result of a deployment.
type Outcome string

const (
	OutcomeConverged          Outcome = "Converged"
	OutcomePartiallyConverged Outcome = "PartiallyConverged"
	OutcomeFailed             Outcome = "Failed"
)

// NodeFailure names a node that ended Failed.
type NodeFailure struct {
	Node   string        `json:"node"`
	Role   manifest.Role `json:"role"`
	Reason string        `json:"reason"`
}

// ClusterStatus is the terminal result of one deployment.
type ClusterStatus struct {
	Outcome Outcome `json:"outcome"`

	// NodeCount is the number of planned nodes, bootstrap included.
	NodeCount int `json:"nodeCount"`

	// ValidatorCount is the number of nodes that reached Ready. Every node,
	// bootstrap included, runs a validator.
	ValidatorCount int `json:"validatorCount"`

	Ready  []string      `json:"ready"`
	Failed []NodeFailure `json:"failed,omitempty"`

	// Submitted lists nodes whose objects were sent but whose readiness was
	// still unknown when the run was interrupted.
	Submitted []string `json:"submitted,omitempty"`

	// Pending lists nodes that were never submitted.
	Pending []string `json:"pending,omitempty"`

	Reason string `json:"reason,omitempty"`

	Nodes []NodeState  `json:"nodes"`
	Trace []Transition `json:"trace,omitempty"`
}

// Converged reports whether every planned node is Ready.
func (s *ClusterStatus) Converged() bool {
	return s.Outcome == OutcomeConverged
}

func (s *ClusterStatus) String() string {
	switch s.Outcome {
	case OutcomeConverged:
		return fmt.Sprintf("%s(%d, %d)", s.Outcome, s.NodeCount, s.ValidatorCount)
	case OutcomePartiallyConverged:
		names := make([]string, 0, len(s.Failed))
		for _, f := range s.Failed {
			names = append(names, f.Node)
		}
		return fmt.Sprintf("%s(%d/%d ready, failed: [%s], unfinished: [%s])", s.Outcome,
			len(s.Ready), s.NodeCount, strings.Join(names, ", "),
			strings.Join(append(append([]string(nil), s.Submitted...), s.Pending...), ", "))
	default:
		return fmt.Sprintf("%s(%s)", s.Outcome, s.Reason)
	}
}

// buildStatus derives the status from the node states. reason is used when
// the bootstrap never became Ready.
func buildStatus(state *DeploymentState, reason string) *ClusterStatus {
	nodes := state.Snapshot()
	status := &ClusterStatus{
		NodeCount: len(nodes),
		Ready:     []string{},
		Nodes:     nodes,
		Trace:     state.Trace(),
	}

	bootstrapReady := false
	for _, n := range nodes {
		switch n.Phase {
		case PhaseReady:
			status.Ready = append(status.Ready, n.Name)
			if n.Role == manifest.RoleBootstrap {
				bootstrapReady = true
			}
		case PhaseFailed:
			status.Failed = append(status.Failed, NodeFailure{Node: n.Name, Role: n.Role, Reason: n.Reason})
		case PhaseSubmitted:
			status.Submitted = append(status.Submitted, n.Name)
		default:
			status.Pending = append(status.Pending, n.Name)
		}
	}
	status.ValidatorCount = len(status.Ready)

	switch {
	case !bootstrapReady:
		status.Outcome = OutcomeFailed
		status.Reason = reason
		if status.Reason == "" {
			status.Reason = "bootstrap validator did not become ready"
		}
	case len(status.Ready) == status.NodeCount:
		status.Outcome = OutcomeConverged
	default:
		status.Outcome = OutcomePartiallyConverged
		status.Reason = reason
	}
	return status
}

package orchestration

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/imamik/solk8s/internal/manifest"
)

// Phase is the deployment phase of one node.
type Phase string

const (
	PhasePending   Phase = "Pending"
	PhaseSubmitted Phase = "Submitted"
	PhaseReady     Phase = "Ready"
	PhaseFailed    Phase = "Failed"
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{PhasePending, PhaseSubmitted, PhaseReady, PhaseFailed}

var allowedTransitions = map[Phase][]Phase{
	PhasePending:   {PhaseSubmitted},
	PhaseSubmitted: {PhaseReady, PhaseFailed},
}

// Terminal reports whether no further transition leaves p.
func (p Phase) Terminal() bool {
	return p == PhaseReady || p == PhaseFailed
}

// ErrInvalidTransition is returned for a transition the state machine does
// not allow.
var ErrInvalidTransition = errors.New("invalid transition")

// NodeState is the tracked state of one node.
type NodeState struct {
	Name      string        `json:"name"`
	Role      manifest.Role `json:"role"`
	Identity  string        `json:"identity"`
	Phase     Phase         `json:"phase"`
	Reason    string        `json:"reason,omitempty"`
	Attempts  int           `json:"attempts"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Transition is one accepted phase change.
type Transition struct {
	Seq    int           `json:"seq"`
	Node   string        `json:"node"`
	Role   manifest.Role `json:"role"`
	From   Phase         `json:"from"`
	To     Phase         `json:"to"`
	Reason string        `json:"reason,omitempty"`
	At     time.Time     `json:"at"`
}

// DeploymentState tracks the phase of every node in a plan. It is safe for
// concurrent use.
type DeploymentState struct {
	mu        sync.RWMutex
	clock     clockwork.Clock
	order     []string
	nodes     map[string]*NodeState
	bootstrap string
	trace     []Transition
}

// NewDeploymentState returns a state with every node of plan Pending.
func NewDeploymentState(plan *manifest.Plan, clock clockwork.Clock) *DeploymentState {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &DeploymentState{
		clock: clock,
		nodes: make(map[string]*NodeState, len(plan.Nodes)),
	}
	now := clock.Now()
	for _, n := range plan.Nodes {
		s.order = append(s.order, n.Name)
		s.nodes[n.Name] = &NodeState{
			Name:      n.Name,
			Role:      n.Role,
			Identity:  n.Identity,
			Phase:     PhasePending,
			UpdatedAt: now,
		}
		if n.IsBootstrap() {
			s.bootstrap = n.Name
		}
	}
	return s
}

// Transition moves node to phase to. It fails for unknown nodes, for edges
// outside Pending→Submitted→{Ready,Failed} and for a validator leaving
// Pending while the bootstrap is not Ready.
func (s *DeploymentState) Transition(node string, to Phase, reason string) (Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.nodes[node]
	if !ok {
		return Transition{}, fmt.Errorf("%w: unknown node %s", ErrInvalidTransition, node)
	}
	if !edgeAllowed(ns.Phase, to) {
		return Transition{}, fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, node, ns.Phase, to)
	}
	if node != s.bootstrap && ns.Phase == PhasePending && !s.bootstrapReadyLocked() {
		return Transition{}, fmt.Errorf("%w: %s cannot leave %s before %s is %s",
			ErrInvalidTransition, node, PhasePending, s.bootstrap, PhaseReady)
	}

	t := Transition{
		Seq:    len(s.trace) + 1,
		Node:   node,
		Role:   ns.Role,
		From:   ns.Phase,
		To:     to,
		Reason: reason,
		At:     s.clock.Now(),
	}
	ns.Phase = to
	ns.Reason = reason
	ns.UpdatedAt = t.At
	s.trace = append(s.trace, t)
	return t, nil
}

func edgeAllowed(from, to Phase) bool {
	for _, p := range allowedTransitions[from] {
		if p == to {
			return true
		}
	}
	return false
}

// RecordAttempt increments the API attempt count of node.
func (s *DeploymentState) RecordAttempt(node string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.nodes[node]; ok {
		ns.Attempts++
	}
}

// Get returns a copy of the state of node.
func (s *DeploymentState) Get(node string) (NodeState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.nodes[node]
	if !ok {
		return NodeState{}, false
	}
	return *ns, true
}

// BootstrapReady reports whether the bootstrap node is Ready.
func (s *DeploymentState) BootstrapReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bootstrapReadyLocked()
}

func (s *DeploymentState) bootstrapReadyLocked() bool {
	ns, ok := s.nodes[s.bootstrap]
	return ok && ns.Phase == PhaseReady
}

// Snapshot returns a copy of every node state in plan order.
func (s *DeploymentState) Snapshot() []NodeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]NodeState, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.nodes[name])
	}
	return out
}

// Trace returns every accepted transition in the order it was applied.
func (s *DeploymentState) Trace() []Transition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Transition(nil), s.trace...)
}

// Counts returns the number of nodes per phase.
func (s *DeploymentState) Counts() map[Phase]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Phase]int, len(Phases))
	for _, ns := range s.nodes {
		counts[ns.Phase]++
	}
	return counts
}

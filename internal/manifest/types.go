package manifest

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/imamik/solk8s/internal/genesis"
)

// Role is the part a node plays in the cluster.
type Role = genesis.Role

const (
	RoleBootstrap = genesis.RoleBootstrap
	RoleValidator = genesis.RoleValidator
)

// NodeSpec is the full desired state of one validator node.
type NodeSpec struct {
	Name  string
	Role  Role
	Index int

	// Identity is the base58 identity pubkey of the node.
	Identity string

	Resources corev1.ResourceRequirements

	// DependsOn is the gossip entrypoint of the bootstrap validator. It is
	// empty for the bootstrap itself.
	DependsOn string

	Secret     *corev1.Secret
	Service    *corev1.Service
	Deployment *appsv1.Deployment
}

// IsBootstrap reports whether the node is the bootstrap validator.
func (n *NodeSpec) IsBootstrap() bool {
	return n.Role == RoleBootstrap
}

// Objects returns the node's objects in creation order.
func (n *NodeSpec) Objects() []runtime.Object {
	return []runtime.Object{n.Secret, n.Service, n.Deployment}
}

// Plan is everything the orchestrator creates for one cluster.
type Plan struct {
	Namespace    string
	ArtifactID   string
	GenesisHash  string
	ShredVersion uint16

	// GenesisConfig is shared by every node and must exist before any of
	// them is created.
	GenesisConfig *corev1.ConfigMap

	// Nodes holds the bootstrap first, then the validators in index order.
	Nodes []NodeSpec
}

// Bootstrap returns the bootstrap node.
func (p *Plan) Bootstrap() *NodeSpec {
	for i := range p.Nodes {
		if p.Nodes[i].IsBootstrap() {
			return &p.Nodes[i]
		}
	}
	return nil
}

// Validators returns the regular validator nodes in index order.
func (p *Plan) Validators() []NodeSpec {
	out := make([]NodeSpec, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		if !n.IsBootstrap() {
			out = append(out, n)
		}
	}
	return out
}

// NodeNames lists every node name in plan order.
func (p *Plan) NodeNames() []string {
	names := make([]string, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		names = append(names, n.Name)
	}
	return names
}

// Objects returns every object of the plan in creation order.
func (p *Plan) Objects() []runtime.Object {
	objs := []runtime.Object{p.GenesisConfig}
	for i := range p.Nodes {
		objs = append(objs, p.Nodes[i].Objects()...)
	}
	return objs
}

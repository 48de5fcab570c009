package manifest

import (
	"fmt"
	"net"
	"strconv"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/genesis"
	"github.com/imamik/solk8s/internal/util/naming"
)

// Build returns the plan for spec. bundle must come from a genesis build of
// the same spec.
func Build(spec *config.ClusterSpec, bundle *genesis.Bundle) (*Plan, error) {
	if spec == nil || bundle == nil {
		return nil, fmt.Errorf("spec and genesis bundle are required")
	}
	if got, want := len(bundle.Identities), spec.NodeCount(); got != want {
		return nil, fmt.Errorf("genesis bundle has %d identities, spec needs %d", got, want)
	}

	boot := bundle.Bootstrap()
	if boot == nil {
		return nil, fmt.Errorf("genesis bundle has no bootstrap identity")
	}

	resources, err := resourceRequirements(spec.Resources)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Namespace:     spec.Namespace,
		ArtifactID:    bundle.ArtifactID,
		GenesisHash:   bundle.GenesisHash,
		ShredVersion:  bundle.ShredVersion,
		GenesisConfig: genesisConfigMap(spec.Namespace, bundle),
		Nodes:         make([]NodeSpec, 0, spec.NodeCount()),
	}

	b := &nodeBuilder{spec: spec, bundle: bundle, resources: resources}
	plan.Nodes = append(plan.Nodes, b.node(*boot, spec.Bootstrap, ""))

	entrypoint := BootstrapEntrypoint(spec.Namespace)
	for _, id := range bundle.Validators() {
		plan.Nodes = append(plan.Nodes, b.node(id, spec.Validator, entrypoint))
	}

	return plan, nil
}

// BootstrapEntrypoint is the gossip address validators join through.
func BootstrapEntrypoint(namespace string) string {
	return net.JoinHostPort(naming.ServiceDNS(naming.BootstrapNode, namespace), strconv.Itoa(config.GossipPort))
}

type nodeBuilder struct {
	spec      *config.ClusterSpec
	bundle    *genesis.Bundle
	resources corev1.ResourceRequirements
}

func (b *nodeBuilder) node(id genesis.Identity, image config.ImageSpec, dependsOn string) NodeSpec {
	n := NodeSpec{
		Name:      id.Name,
		Role:      id.Role,
		Index:     id.Index,
		Identity:  id.Identity.Pubkey,
		Resources: b.resources,
		DependsOn: dependsOn,
	}
	n.Secret = b.secret(id)
	n.Service = b.service(id)
	n.Deployment = b.deployment(id, image, dependsOn)
	return n
}

func resourceRequirements(r config.Resources) (corev1.ResourceRequirements, error) {
	req := corev1.ResourceRequirements{
		Requests: corev1.ResourceList{},
	}

	add := func(list corev1.ResourceList, name corev1.ResourceName, value string) error {
		if value == "" {
			return nil
		}
		q, err := resource.ParseQuantity(value)
		if err != nil {
			return fmt.Errorf("invalid %s quantity %q: %w", name, value, err)
		}
		list[name] = q
		return nil
	}

	if err := add(req.Requests, corev1.ResourceCPU, r.CPURequest); err != nil {
		return req, err
	}
	if err := add(req.Requests, corev1.ResourceMemory, r.MemoryRequest); err != nil {
		return req, err
	}

	if r.CPULimit != "" || r.MemoryLimit != "" {
		req.Limits = corev1.ResourceList{}
		if err := add(req.Limits, corev1.ResourceCPU, r.CPULimit); err != nil {
			return req, err
		}
		if err := add(req.Limits, corev1.ResourceMemory, r.MemoryLimit); err != nil {
			return req, err
		}
	}

	return req, nil
}

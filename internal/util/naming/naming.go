package naming

import "fmt"

// BootstrapNode is the node name of the bootstrap validator.
const BootstrapNode = "bootstrap-validator"

// GenesisConfigMap holds the genesis archive shared by every node.
const GenesisConfigMap = "genesis-config"

// ValidatorNode returns the node name of the validator at index.
func ValidatorNode(index int) string {
	return fmt.Sprintf("validator-%d", index)
}

// Deployment returns the Deployment name of a node, which is the node name.
func Deployment(node string) string {
	return node
}

// Service returns the Service name of a node.
func Service(node string) string {
	return fmt.Sprintf("%s-service", node)
}

// Secret returns the name of the Secret holding a node's keypairs.
func Secret(node string) string {
	return fmt.Sprintf("%s-accounts-secret", node)
}

// ServiceDNS returns the in-cluster DNS name of a node's Service.
func ServiceDNS(node, namespace string) string {
	return fmt.Sprintf("%s.%s.svc.cluster.local", Service(node), namespace)
}

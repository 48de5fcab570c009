package labels

// Standard label keys.
const (
	// KeyName identifies the node an object belongs to and is the pod selector.
	KeyName = "app.kubernetes.io/name"

	// KeyPartOf groups all objects of one validator cluster.
	KeyPartOf = "app.kubernetes.io/part-of"

	// KeyComponent distinguishes validator objects from shared genesis objects.
	KeyComponent = "app.kubernetes.io/component"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "app.kubernetes.io/managed-by"

	// KeyRole identifies the role of a node (bootstrap, validator)
	KeyRole = "solk8s.io/role"
)

// Role values
const (
	RoleBootstrap = "bootstrap"
	RoleValidator = "validator"
)

// Fixed values
const (
	PartOfCluster      = "solana-cluster"
	ManagedBySolk8s    = "solk8s"
	ComponentValidator = "validator"
	ComponentGenesis   = "genesis"
)

// LabelBuilder provides a fluent interface for building object labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the cluster-wide labels pre-set.
func NewLabelBuilder() *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyPartOf:    PartOfCluster,
			KeyManagedBy: ManagedBySolk8s,
		},
	}
}

// WithName adds the node name label.
func (lb *LabelBuilder) WithName(name string) *LabelBuilder {
	lb.labels[KeyName] = name
	return lb
}

// WithRole adds a role label and marks the object as a validator component.
func (lb *LabelBuilder) WithRole(role string) *LabelBuilder {
	lb.labels[KeyRole] = role
	lb.labels[KeyComponent] = ComponentValidator
	return lb
}

// WithComponent sets the component label.
func (lb *LabelBuilder) WithComponent(component string) *LabelBuilder {
	lb.labels[KeyComponent] = component
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
// Returns a copy to prevent external mutations.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// Selector returns the pod selector labels of a node.
func Selector(node string) map[string]string {
	return map[string]string{KeyName: node}
}

// SelectorForCluster returns a label selector string for all objects managed by solk8s.
func SelectorForCluster() string {
	return KeyManagedBy + "=" + ManagedBySolk8s
}

// SelectorForValidators returns a label selector string matching every validator pod.
func SelectorForValidators() string {
	return SelectorForCluster() + "," + KeyComponent + "=" + ComponentValidator
}

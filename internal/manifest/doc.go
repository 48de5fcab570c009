// Package manifest turns a resolved cluster spec and a genesis bundle into
// the Kubernetes objects of every node.
//
// Objects are built from their inputs only: no timestamps or generated names,
// so the same inputs always render the same YAML.
package manifest

// Package naming provides consistent names for the Kubernetes objects of a
// validator cluster.
//
// Every node is named bootstrap-validator or validator-{index}; its
// Deployment, Service and Secret derive from that node name so a rerun with
// the same inputs targets the same objects.
package naming

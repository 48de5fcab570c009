// Package orchestration deploys a manifest plan onto a cluster and reports
// how far it converged.
//
// # Workflow
//
// [Orchestrator.Deploy] runs the following phases in order:
//  1. Genesis - create the shared genesis ConfigMap
//  2. Bootstrap - create the bootstrap node and wait until it is Ready
//  3. Validators - create every validator from a fixed worker pool
//
// No validator leaves Pending before the bootstrap is Ready. A validator
// that fails is recorded and does not stop its siblings. Nothing is torn
// down on failure or cancellation; the returned [ClusterStatus] lists every
// node with its final phase.
package orchestration

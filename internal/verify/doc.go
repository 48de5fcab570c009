// Package verify checks that a deployed validator cluster actually formed.
//
// Readiness probes only show that each validator answers on its RPC port.
// The verifier asks the bootstrap validator for its gossip view
// (getClusterNodes) and vote accounts (getVoteAccounts) and compares them,
// together with the Ready pod count from the API server, against the planned
// node count.
package verify

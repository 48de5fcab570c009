// Package config resolves user parameters into the immutable [ClusterSpec]
// that drives a validator cluster deployment.
//
// [Resolve] merges [Params] with defaults and validates them without any I/O:
// namespace naming rules, image references, resource quantities, genesis
// amounts and deployment tuning. Failures are reported as [*Error] before
// genesis is built or the Kubernetes API is contacted. [LoadTimeouts] reads
// deployment timing defaults from the environment.
package config

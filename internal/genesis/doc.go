// Package genesis builds the shared genesis bundle of a validator cluster by
// driving the external Solana tools.
//
// [Builder.Build] generates every keypair with solana-keygen, writes the
// validator accounts file, runs solana-genesis exactly once and collects the
// resulting archive, genesis hash and shred version into a [Bundle]. Every
// failure is returned as [*Error] before anything touches Kubernetes.
package genesis

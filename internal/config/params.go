package config

import "time"

// Params is the raw user input of a deployment, one field per CLI flag.
// Nil pointers and zero values fall back to defaults during Resolve.
type Params struct {
	Namespace      string
	ValidatorCount int

	BootstrapContainer string
	BootstrapImage     string
	ValidatorContainer string
	ValidatorImage     string

	// Genesis overrides
	HashesPerTick                   string
	SlotsPerEpoch                   *uint64
	TargetLamportsPerSignature      *uint64
	FaucetLamports                  *uint64
	BootstrapValidatorLamports      *uint64
	BootstrapValidatorStakeLamports *uint64
	InternalNodeSOL                 *float64
	InternalNodeStakeSOL            *float64
	EnableWarmupEpochs              *bool
	MaxGenesisArchiveUnpackedSize   *uint64
	ClusterType                     string

	// Runtime
	EnableUDP   bool
	DisableQUIC bool
	GPUMode     string

	// Resources
	CPURequest    string
	MemoryRequest string
	CPULimit      string
	MemoryLimit   string

	// Deployment tuning
	Concurrency      int
	MaxAttempts      int
	BootstrapTimeout time.Duration
	ValidatorTimeout time.Duration
	VerifyTimeout    time.Duration
}

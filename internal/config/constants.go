package config

import "time"

// Validator container ports.
const (
	// GossipPort is the gossip entrypoint port of every validator.
	GossipPort = 8001

	// RPCPort is the JSON-RPC port of every validator.
	RPCPort = 8899

	// FaucetPort is the faucet port served by the bootstrap validator.
	FaucetPort = 9900
)

// LamportsPerSOL converts SOL amounts given on the command line.
const LamportsPerSOL = 1_000_000_000

// Genesis defaults.
const (
	DefaultFaucetLamports                  uint64 = 500_000_000_000_000_000
	DefaultMaxGenesisArchiveUnpackedSize   uint64 = 1_073_741_824
	DefaultBootstrapValidatorStakeLamports uint64 = 10_000_000_000  // 10 SOL
	DefaultBootstrapValidatorLamports      uint64 = 500_000_000_000 // 500 SOL
	DefaultInternalNodeSOL                        = 500.0
	DefaultInternalNodeStakeSOL                   = 10.0
	DefaultHashesPerTick                          = "auto"
	DefaultClusterType                            = ClusterTypeDevelopment
	DefaultGPUMode                                = "auto"
)

// Container defaults.
const (
	DefaultBootstrapContainer = "bootstrap-container"
	DefaultValidatorContainer = "validator-container"
	DefaultCPURequest         = "2"
	DefaultMemoryRequest      = "8Gi"
)

// Deployment defaults.
const (
	DefaultConcurrency     = 8
	DefaultAPIQPS          = 20.0
	DefaultAPIBurst        = 40
	DefaultPollInterval    = 2 * time.Second
	DefaultMaxPollInterval = 15 * time.Second
	DefaultRetryMaxDelay   = 30 * time.Second
)

// ClusterTypeDevelopment activates every feature at genesis and adds no
// foundation or grant accounts.
const ClusterTypeDevelopment = "development"

// ValidClusterTypes are the feature sets accepted by solana-genesis.
var ValidClusterTypes = map[string]bool{
	ClusterTypeDevelopment: true,
	"devnet":               true,
	"testnet":              true,
	"mainnet-beta":         true,
}

// ValidGPUModes are the accepted --gpu-mode values.
var ValidGPUModes = map[string]bool{
	"on":   true,
	"off":  true,
	"auto": true,
	"cuda": true,
}

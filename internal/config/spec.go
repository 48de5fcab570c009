package config

import "time"

// ClusterSpec is the resolved, immutable description of one deployment run.
// It is created once by Resolve and only read afterwards.
type ClusterSpec struct {
	Namespace      string
	ValidatorCount int

	Bootstrap ImageSpec
	Validator ImageSpec

	Resources Resources
	Genesis   GenesisParams
	Runtime   RuntimeParams
	Deploy    DeployParams
}

// ImageSpec names the container and image of one validator role.
type ImageSpec struct {
	Container string
	Image     string
}

// Resources holds per-node resource quantities. Empty limits mean unbounded.
type Resources struct {
	CPURequest    string
	MemoryRequest string
	CPULimit      string
	MemoryLimit   string
}

// GenesisParams holds the values passed to solana-genesis and the stake
// and funding amounts assigned to every identity.
type GenesisParams struct {
	HashesPerTick                   string
	SlotsPerEpoch                   *uint64
	TargetLamportsPerSignature      *uint64
	FaucetLamports                  uint64
	EnableWarmupEpochs              bool
	MaxGenesisArchiveUnpackedSize   uint64
	ClusterType                     string
	BootstrapValidatorLamports      uint64
	BootstrapValidatorStakeLamports uint64
	ValidatorLamports               uint64
	ValidatorStakeLamports          uint64
}

// RuntimeParams are validator process flags passed to every container.
type RuntimeParams struct {
	EnableUDP   bool
	DisableQUIC bool
	GPUMode     string
}

// DeployParams tunes the orchestrator.
type DeployParams struct {
	Concurrency       int
	MaxAttempts       int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	BootstrapTimeout  time.Duration
	ValidatorTimeout  time.Duration
	VerifyTimeout     time.Duration
	PollInterval      time.Duration
	MaxPollInterval   time.Duration
	APIQPS            float64
	APIBurst          int
}

// NodeCount is the number of nodes in the cluster, bootstrap included.
func (s *ClusterSpec) NodeCount() int {
	return s.ValidatorCount + 1
}

// TotalStakeLamports is the stake delegated in genesis across all identities.
func (s *ClusterSpec) TotalStakeLamports() uint64 {
	return s.Genesis.BootstrapValidatorStakeLamports +
		uint64(s.ValidatorCount)*s.Genesis.ValidatorStakeLamports
}

// ReservedLamports is the genesis supply that is not stake: the faucet and
// the spendable balance of every identity.
func (s *ClusterSpec) ReservedLamports() uint64 {
	return s.Genesis.FaucetLamports +
		s.Genesis.BootstrapValidatorLamports +
		uint64(s.ValidatorCount)*s.Genesis.ValidatorLamports
}

// GenesisSupplyLamports is the total supply minted in genesis.
func (s *ClusterSpec) GenesisSupplyLamports() uint64 {
	return s.TotalStakeLamports() + s.ReservedLamports()
}

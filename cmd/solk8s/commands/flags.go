package commands

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/imamik/solk8s/internal/config"
)

// clusterFlags are the flags shared by deploy and render. Genesis overrides
// are only applied when set so Resolve can tell them from defaults.
type clusterFlags struct {
	params config.Params

	slotsPerEpoch                   uint64
	targetLamportsPerSignature      uint64
	faucetLamports                  uint64
	bootstrapValidatorLamports      uint64
	bootstrapValidatorStakeLamports uint64
	internalNodeSOL                 float64
	internalNodeStakeSOL            float64
	enableWarmupEpochs              bool
	maxGenesisArchiveUnpackedSize   uint64

	workDir string
}

func (f *clusterFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	p := &f.params

	fs.StringVarP(&p.Namespace, "namespace", "n", "default", "Kubernetes namespace to deploy into")
	fs.IntVar(&p.ValidatorCount, "num-validators", 1, "Number of validators besides the bootstrap validator")
	fs.StringVar(&p.BootstrapContainer, "bootstrap-container", config.DefaultBootstrapContainer, "Container name of the bootstrap validator")
	fs.StringVar(&p.BootstrapImage, "bootstrap-image", "", "Image of the bootstrap validator (required)")
	fs.StringVar(&p.ValidatorContainer, "validator-container", config.DefaultValidatorContainer, "Container name of the validators")
	fs.StringVar(&p.ValidatorImage, "validator-image", "", "Image of the validators (required)")

	// Genesis
	fs.StringVar(&p.HashesPerTick, "hashes-per-tick", config.DefaultHashesPerTick, "PoH hashes per tick: auto, sleep or a number")
	fs.Uint64Var(&f.slotsPerEpoch, "slots-per-epoch", 0, "Slots per epoch")
	fs.Uint64Var(&f.targetLamportsPerSignature, "target-lamports-per-signature", 0, "Target transaction fee per signature")
	fs.Uint64Var(&f.faucetLamports, "faucet-lamports", config.DefaultFaucetLamports, "Lamports assigned to the faucet")
	fs.Uint64Var(&f.bootstrapValidatorLamports, "bootstrap-validator-lamports", config.DefaultBootstrapValidatorLamports, "Lamports assigned to the bootstrap identity")
	fs.Uint64Var(&f.bootstrapValidatorStakeLamports, "bootstrap-validator-stake-lamports", config.DefaultBootstrapValidatorStakeLamports, "Lamports staked by the bootstrap validator")
	fs.Float64Var(&f.internalNodeSOL, "internal-node-sol", config.DefaultInternalNodeSOL, "SOL assigned to each validator identity")
	fs.Float64Var(&f.internalNodeStakeSOL, "internal-node-stake-sol", config.DefaultInternalNodeStakeSOL, "SOL staked by each validator")
	fs.BoolVar(&f.enableWarmupEpochs, "enable-warmup-epochs", true, "Start with short epochs that grow to slots-per-epoch")
	fs.Uint64Var(&f.maxGenesisArchiveUnpackedSize, "max-genesis-archive-unpacked-size", config.DefaultMaxGenesisArchiveUnpackedSize, "Maximum unpacked size of the genesis archive in bytes")
	fs.StringVar(&p.ClusterType, "cluster-type", config.DefaultClusterType, "Feature set: development, devnet, testnet or mainnet-beta")

	// Runtime
	fs.BoolVar(&p.EnableUDP, "tpu-enable-udp", false, "Enable the UDP TPU")
	fs.BoolVar(&p.DisableQUIC, "tpu-disable-quic", false, "Disable the QUIC TPU")
	fs.StringVar(&p.GPUMode, "gpu-mode", config.DefaultGPUMode, "GPU mode: on, off or auto")

	// Resources
	fs.StringVar(&p.CPURequest, "cpu-request", config.DefaultCPURequest, "CPU request per validator")
	fs.StringVar(&p.MemoryRequest, "memory-request", config.DefaultMemoryRequest, "Memory request per validator")
	fs.StringVar(&p.CPULimit, "cpu-limit", "", "CPU limit per validator (default unbounded)")
	fs.StringVar(&p.MemoryLimit, "memory-limit", "", "Memory limit per validator (default unbounded)")

	fs.StringVar(&f.workDir, "work-dir", "solk8s-genesis", "Directory for keypairs and the genesis ledger")
}

// Params returns the parameters with the genesis overrides that were set.
func (f *clusterFlags) Params(fs *pflag.FlagSet) config.Params {
	p := f.params

	if fs.Changed("slots-per-epoch") {
		p.SlotsPerEpoch = &f.slotsPerEpoch
	}
	if fs.Changed("target-lamports-per-signature") {
		p.TargetLamportsPerSignature = &f.targetLamportsPerSignature
	}
	if fs.Changed("faucet-lamports") {
		p.FaucetLamports = &f.faucetLamports
	}
	if fs.Changed("bootstrap-validator-lamports") {
		p.BootstrapValidatorLamports = &f.bootstrapValidatorLamports
	}
	if fs.Changed("bootstrap-validator-stake-lamports") {
		p.BootstrapValidatorStakeLamports = &f.bootstrapValidatorStakeLamports
	}
	if fs.Changed("internal-node-sol") {
		p.InternalNodeSOL = &f.internalNodeSOL
	}
	if fs.Changed("internal-node-stake-sol") {
		p.InternalNodeStakeSOL = &f.internalNodeStakeSOL
	}
	if fs.Changed("enable-warmup-epochs") {
		p.EnableWarmupEpochs = &f.enableWarmupEpochs
	}
	if fs.Changed("max-genesis-archive-unpacked-size") {
		p.MaxGenesisArchiveUnpackedSize = &f.maxGenesisArchiveUnpackedSize
	}
	return p
}

// kubeFlags locate the cluster.
type kubeFlags struct {
	kubeconfig string
	context    string
}

func (f *kubeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.kubeconfig, "kubeconfig", "", "Path to the kubeconfig file (default: $KUBECONFIG or ~/.kube/config)")
	cmd.Flags().StringVar(&f.context, "context", "", "Kubeconfig context (default: current context)")
}

// durationFlag registers a duration flag whose zero value means "use the
// SOLK8S_TIMEOUT_* default".
func durationFlag(cmd *cobra.Command, p *time.Duration, name, usage string) {
	cmd.Flags().DurationVar(p, name, 0, usage)
}

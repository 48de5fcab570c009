package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() Params {
	return Params{
		Namespace:      "solana",
		ValidatorCount: 5,
		BootstrapImage: "ghcr.io/example/solana-bootstrap:v1.18.2",
		ValidatorImage: "ghcr.io/example/solana-validator:v1.18.2",
	}
}

func TestResolve_Defaults(t *testing.T) {
	t.Parallel()

	spec, err := Resolve(validParams())
	require.NoError(t, err)

	assert.Equal(t, "solana", spec.Namespace)
	assert.Equal(t, 5, spec.ValidatorCount)
	assert.Equal(t, 6, spec.NodeCount())
	assert.Equal(t, DefaultBootstrapContainer, spec.Bootstrap.Container)
	assert.Equal(t, DefaultValidatorContainer, spec.Validator.Container)

	assert.Equal(t, "auto", spec.Genesis.HashesPerTick)
	assert.Equal(t, "development", spec.Genesis.ClusterType)
	assert.True(t, spec.Genesis.EnableWarmupEpochs)
	assert.Equal(t, DefaultFaucetLamports, spec.Genesis.FaucetLamports)
	assert.Equal(t, DefaultMaxGenesisArchiveUnpackedSize, spec.Genesis.MaxGenesisArchiveUnpackedSize)
	assert.Equal(t, DefaultBootstrapValidatorLamports, spec.Genesis.BootstrapValidatorLamports)
	assert.Equal(t, DefaultBootstrapValidatorStakeLamports, spec.Genesis.BootstrapValidatorStakeLamports)
	assert.Equal(t, uint64(500_000_000_000), spec.Genesis.ValidatorLamports)
	assert.Equal(t, uint64(10_000_000_000), spec.Genesis.ValidatorStakeLamports)
	assert.Nil(t, spec.Genesis.SlotsPerEpoch)

	assert.Equal(t, "auto", spec.Runtime.GPUMode)
	assert.Equal(t, DefaultCPURequest, spec.Resources.CPURequest)
	assert.Equal(t, DefaultMemoryRequest, spec.Resources.MemoryRequest)

	assert.Equal(t, 5, spec.Deploy.Concurrency, "concurrency is capped at the validator count")
	assert.Equal(t, 5, spec.Deploy.MaxAttempts)
	assert.Equal(t, 10*time.Minute, spec.Deploy.BootstrapTimeout)
}

func TestResolve_Overrides(t *testing.T) {
	t.Parallel()

	slots := uint64(8192)
	faucet := uint64(1_000)
	warmup := false
	nodeSOL := 2.5
	stakeSOL := 0.5

	p := validParams()
	p.ValidatorCount = 20
	p.SlotsPerEpoch = &slots
	p.FaucetLamports = &faucet
	p.EnableWarmupEpochs = &warmup
	p.InternalNodeSOL = &nodeSOL
	p.InternalNodeStakeSOL = &stakeSOL
	p.HashesPerTick = "12500"
	p.ClusterType = "testnet"
	p.Concurrency = 4
	p.BootstrapTimeout = time.Minute

	spec, err := Resolve(p)
	require.NoError(t, err)

	require.NotNil(t, spec.Genesis.SlotsPerEpoch)
	assert.Equal(t, uint64(8192), *spec.Genesis.SlotsPerEpoch)
	assert.Equal(t, uint64(1_000), spec.Genesis.FaucetLamports)
	assert.False(t, spec.Genesis.EnableWarmupEpochs)
	assert.Equal(t, uint64(2_500_000_000), spec.Genesis.ValidatorLamports)
	assert.Equal(t, uint64(500_000_000), spec.Genesis.ValidatorStakeLamports)
	assert.Equal(t, "12500", spec.Genesis.HashesPerTick)
	assert.Equal(t, "testnet", spec.Genesis.ClusterType)
	assert.Equal(t, 4, spec.Deploy.Concurrency)
	assert.Equal(t, time.Minute, spec.Deploy.BootstrapTimeout)

	// The resolved ClusterSpec must not alias caller memory.
	slots = 1
	assert.Equal(t, uint64(8192), *spec.Genesis.SlotsPerEpoch)
}

func TestResolve_ZeroValidators(t *testing.T) {
	t.Parallel()

	p := validParams()
	p.ValidatorCount = 0

	spec, err := Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, 1, spec.NodeCount())
	assert.Equal(t, DefaultConcurrency, spec.Deploy.Concurrency)
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := Resolve(validParams())
	require.NoError(t, err)
	b, err := Resolve(validParams())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestResolveWithTimeouts(t *testing.T) {
	t.Parallel()

	timeouts := DefaultTimeouts()
	timeouts.Bootstrap = 42 * time.Second
	timeouts.RetryMaxAttempts = 9

	spec, err := ResolveWithTimeouts(validParams(), timeouts)
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, spec.Deploy.BootstrapTimeout)
	assert.Equal(t, 9, spec.Deploy.MaxAttempts)

	p := validParams()
	p.MaxAttempts = 2
	spec, err = ResolveWithTimeouts(p, timeouts)
	require.NoError(t, err)
	assert.Equal(t, 2, spec.Deploy.MaxAttempts, "explicit params win over timeouts")
}

func TestClusterSpec_StakeAccounting(t *testing.T) {
	t.Parallel()

	spec, err := Resolve(validParams())
	require.NoError(t, err)

	g := spec.Genesis
	assert.Equal(t, g.BootstrapValidatorStakeLamports+5*g.ValidatorStakeLamports, spec.TotalStakeLamports())
	assert.Equal(t, g.FaucetLamports+g.BootstrapValidatorLamports+5*g.ValidatorLamports, spec.ReservedLamports())
	assert.Equal(t, spec.TotalStakeLamports(), spec.GenesisSupplyLamports()-spec.ReservedLamports())
}

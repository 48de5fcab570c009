package config

import (
	"math"
	"strings"
	"time"
)

// Resolve merges p with the built-in defaults and validates the result.
func Resolve(p Params) (*ClusterSpec, error) {
	return ResolveWithTimeouts(p, DefaultTimeouts())
}

// ResolveWithTimeouts is Resolve with explicit timing defaults, typically
// from LoadTimeouts. Values set in p take precedence.
func ResolveWithTimeouts(p Params, timeouts *Timeouts) (*ClusterSpec, error) {
	if timeouts == nil {
		timeouts = DefaultTimeouts()
	}

	spec := &ClusterSpec{
		Namespace:      strings.TrimSpace(p.Namespace),
		ValidatorCount: p.ValidatorCount,
		Bootstrap: ImageSpec{
			Container: orDefault(p.BootstrapContainer, DefaultBootstrapContainer),
			Image:     strings.TrimSpace(p.BootstrapImage),
		},
		Validator: ImageSpec{
			Container: orDefault(p.ValidatorContainer, DefaultValidatorContainer),
			Image:     strings.TrimSpace(p.ValidatorImage),
		},
		Resources: Resources{
			CPURequest:    orDefault(p.CPURequest, DefaultCPURequest),
			MemoryRequest: orDefault(p.MemoryRequest, DefaultMemoryRequest),
			CPULimit:      p.CPULimit,
			MemoryLimit:   p.MemoryLimit,
		},
		Genesis: GenesisParams{
			HashesPerTick:                   orDefault(p.HashesPerTick, DefaultHashesPerTick),
			SlotsPerEpoch:                   copyUint(p.SlotsPerEpoch),
			TargetLamportsPerSignature:      copyUint(p.TargetLamportsPerSignature),
			FaucetLamports:                  uintOr(p.FaucetLamports, DefaultFaucetLamports),
			EnableWarmupEpochs:              boolOr(p.EnableWarmupEpochs, true),
			MaxGenesisArchiveUnpackedSize:   uintOr(p.MaxGenesisArchiveUnpackedSize, DefaultMaxGenesisArchiveUnpackedSize),
			ClusterType:                     orDefault(p.ClusterType, DefaultClusterType),
			BootstrapValidatorLamports:      uintOr(p.BootstrapValidatorLamports, DefaultBootstrapValidatorLamports),
			BootstrapValidatorStakeLamports: uintOr(p.BootstrapValidatorStakeLamports, DefaultBootstrapValidatorStakeLamports),
		},
		Runtime: RuntimeParams{
			EnableUDP:   p.EnableUDP,
			DisableQUIC: p.DisableQUIC,
			GPUMode:     orDefault(p.GPUMode, DefaultGPUMode),
		},
		Deploy: DeployParams{
			Concurrency:       intOr(p.Concurrency, DefaultConcurrency),
			MaxAttempts:       intOr(p.MaxAttempts, timeouts.RetryMaxAttempts),
			RetryInitialDelay: timeouts.RetryInitialDelay,
			RetryMaxDelay:     timeouts.RetryMaxDelay,
			BootstrapTimeout:  durationOr(p.BootstrapTimeout, timeouts.Bootstrap),
			ValidatorTimeout:  durationOr(p.ValidatorTimeout, timeouts.Validator),
			VerifyTimeout:     durationOr(p.VerifyTimeout, timeouts.Verify),
			PollInterval:      timeouts.PollInterval,
			MaxPollInterval:   timeouts.MaxPollInterval,
			APIQPS:            DefaultAPIQPS,
			APIBurst:          DefaultAPIBurst,
		},
	}

	nodeSOL := floatOr(p.InternalNodeSOL, DefaultInternalNodeSOL)
	stakeSOL := floatOr(p.InternalNodeStakeSOL, DefaultInternalNodeStakeSOL)
	if nodeSOL < 0 || math.IsNaN(nodeSOL) || math.IsInf(nodeSOL, 0) {
		return nil, invalid("internal-node-sol", nodeSOL, "must be a non-negative amount")
	}
	if stakeSOL < 0 || math.IsNaN(stakeSOL) || math.IsInf(stakeSOL, 0) {
		return nil, invalid("internal-node-stake-sol", stakeSOL, "must be a non-negative amount")
	}
	spec.Genesis.ValidatorLamports = solToLamports(nodeSOL)
	spec.Genesis.ValidatorStakeLamports = solToLamports(stakeSOL)

	// The pool never needs more workers than there are validators.
	if spec.ValidatorCount > 0 && spec.Deploy.Concurrency > spec.ValidatorCount {
		spec.Deploy.Concurrency = spec.ValidatorCount
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return spec, nil
}

func solToLamports(sol float64) uint64 {
	return uint64(math.Round(sol * LamportsPerSOL))
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

func intOr(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func durationOr(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}

func uintOr(v *uint64, def uint64) uint64 {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func copyUint(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

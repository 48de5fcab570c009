package config

import (
	"strconv"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/validation"
)

// Validate checks the resolved spec and returns a *Error for the first
// invalid field.
func (s *ClusterSpec) Validate() error {
	if err := ValidateNamespace(s.Namespace); err != nil {
		return err
	}
	if s.ValidatorCount < 0 {
		return invalid("num-validators", s.ValidatorCount, "cannot be negative")
	}

	if err := validateImage("bootstrap", s.Bootstrap); err != nil {
		return err
	}
	if err := validateImage("validator", s.Validator); err != nil {
		return err
	}

	if err := s.Resources.validate(); err != nil {
		return err
	}
	if err := s.Genesis.validate(s.ValidatorCount); err != nil {
		return err
	}
	if !ValidGPUModes[s.Runtime.GPUMode] {
		return invalid("gpu-mode", s.Runtime.GPUMode, "must be one of on, off, auto, cuda")
	}

	return s.Deploy.validate()
}

// ValidateNamespace checks that ns is a valid Kubernetes namespace name.
func ValidateNamespace(ns string) error {
	if ns == "" {
		return invalid("namespace", nil, "namespace is required")
	}
	if errs := validation.IsDNS1123Label(ns); len(errs) > 0 {
		return invalid("namespace", ns, "%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateImage(role string, img ImageSpec) error {
	if img.Image == "" {
		return invalid(role+"-image", nil, "image reference is required")
	}
	if _, err := name.ParseReference(img.Image); err != nil {
		return invalid(role+"-image", img.Image, "%v", err)
	}
	if errs := validation.IsDNS1123Label(img.Container); len(errs) > 0 {
		return invalid(role+"-container", img.Container, "%s", strings.Join(errs, "; "))
	}
	return nil
}

func (r Resources) validate() error {
	fields := []struct {
		flag  string
		value string
	}{
		{"cpu-request", r.CPURequest},
		{"memory-request", r.MemoryRequest},
		{"cpu-limit", r.CPULimit},
		{"memory-limit", r.MemoryLimit},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if _, err := resource.ParseQuantity(f.value); err != nil {
			return invalid(f.flag, f.value, "%v", err)
		}
	}

	if err := limitNotBelowRequest("cpu", r.CPURequest, r.CPULimit); err != nil {
		return err
	}
	return limitNotBelowRequest("memory", r.MemoryRequest, r.MemoryLimit)
}

func limitNotBelowRequest(kind, request, limit string) error {
	if request == "" || limit == "" {
		return nil
	}
	req := resource.MustParse(request)
	lim := resource.MustParse(limit)
	if lim.Cmp(req) < 0 {
		return invalid(kind+"-limit", limit, "must not be below %s-request %s", kind, request)
	}
	return nil
}

func (g GenesisParams) validate(validators int) error {
	switch g.HashesPerTick {
	case "auto", "sleep":
	default:
		if n, err := strconv.ParseUint(g.HashesPerTick, 10, 64); err != nil || n == 0 {
			return invalid("hashes-per-tick", g.HashesPerTick, "must be auto, sleep or a positive integer")
		}
	}

	if !ValidClusterTypes[g.ClusterType] {
		return invalid("cluster-type", g.ClusterType, "must be one of development, devnet, testnet, mainnet-beta")
	}
	if g.SlotsPerEpoch != nil && *g.SlotsPerEpoch == 0 {
		return invalid("slots-per-epoch", *g.SlotsPerEpoch, "must be positive")
	}
	if g.MaxGenesisArchiveUnpackedSize == 0 {
		return invalid("max-genesis-archive-unpacked-size", g.MaxGenesisArchiveUnpackedSize, "must be positive")
	}
	if g.BootstrapValidatorStakeLamports == 0 {
		return invalid("bootstrap-validator-stake-lamports", g.BootstrapValidatorStakeLamports, "bootstrap validator needs stake")
	}
	if validators > 0 && g.ValidatorStakeLamports == 0 {
		return invalid("internal-node-stake-sol", 0, "validators need stake")
	}
	return nil
}

func (d DeployParams) validate() error {
	if d.Concurrency < 1 {
		return invalid("concurrency", d.Concurrency, "must be at least 1")
	}
	if d.MaxAttempts < 1 {
		return invalid("max-attempts", d.MaxAttempts, "must be at least 1")
	}
	if d.BootstrapTimeout <= 0 {
		return invalid("bootstrap-timeout", d.BootstrapTimeout, "must be positive")
	}
	if d.ValidatorTimeout <= 0 {
		return invalid("validator-timeout", d.ValidatorTimeout, "must be positive")
	}
	if d.VerifyTimeout < 0 {
		return invalid("verify-timeout", d.VerifyTimeout, "cannot be negative")
	}
	if d.PollInterval <= 0 {
		return invalid("poll-interval", d.PollInterval, "must be positive")
	}
	return nil
}

package manifest

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/meta"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/genesis"
	"github.com/imamik/solk8s/internal/util/labels"
)

func testSpec(t *testing.T, validators int) *config.ClusterSpec {
	t.Helper()
	spec, err := config.Resolve(config.Params{
		Namespace:      "solana",
		ValidatorCount: validators,
		BootstrapImage: "ghcr.io/example/bootstrap:v1",
		ValidatorImage: "ghcr.io/example/validator:v1",
		CPULimit:       "4",
	})
	require.NoError(t, err)
	return spec
}

func keypair(name string) genesis.Keypair {
	return genesis.Keypair{Pubkey: name + "-pub", Raw: []byte("[" + name + "]")}
}

func testBundle(spec *config.ClusterSpec) *genesis.Bundle {
	b := &genesis.Bundle{
		ArtifactID:   "abc123",
		GenesisHash:  "GenesisHash111",
		ShredVersion: 4242,
		Archive:      []byte("archive"),
		Faucet:       keypair("faucet"),
	}
	b.Identities = append(b.Identities, genesis.Identity{
		Name: "bootstrap-validator", Role: genesis.RoleBootstrap,
		Identity: keypair("boot-id"), Vote: keypair("boot-vote"), Stake: keypair("boot-stake"),
		FundLamports:  spec.Genesis.BootstrapValidatorLamports,
		StakeLamports: spec.Genesis.BootstrapValidatorStakeLamports,
	})
	for i := range spec.ValidatorCount {
		b.Identities = append(b.Identities, genesis.Identity{
			Name: fmt.Sprintf("validator-%d", i), Role: genesis.RoleValidator, Index: i,
			Identity:      keypair(fmt.Sprintf("v%d-id", i)),
			Vote:          keypair(fmt.Sprintf("v%d-vote", i)),
			Stake:         keypair(fmt.Sprintf("v%d-stake", i)),
			FundLamports:  spec.Genesis.ValidatorLamports,
			StakeLamports: spec.Genesis.ValidatorStakeLamports,
		})
	}
	return b
}

func envValue(c corev1.Container, name string) (string, bool) {
	for _, e := range c.Env {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

func TestBuild_NodeLayout(t *testing.T) {
	t.Parallel()

	spec := testSpec(t, 4)
	plan, err := Build(spec, testBundle(spec))
	require.NoError(t, err)

	require.Len(t, plan.Nodes, 5)
	assert.Equal(t, []string{"bootstrap-validator", "validator-0", "validator-1", "validator-2", "validator-3"}, plan.NodeNames())

	bootstraps := 0
	for _, n := range plan.Nodes {
		if n.IsBootstrap() {
			bootstraps++
		}
	}
	assert.Equal(t, 1, bootstraps)
	assert.True(t, plan.Nodes[0].IsBootstrap())
	assert.Empty(t, plan.Nodes[0].DependsOn)
	assert.Len(t, plan.Validators(), 4)

	for i, v := range plan.Validators() {
		assert.Equal(t, i, v.Index)
		assert.Equal(t, "bootstrap-validator-service.solana.svc.cluster.local:8001", v.DependsOn)
		assert.Equal(t, fmt.Sprintf("v%d-id-pub", i), v.Identity)
	}

	assert.Equal(t, "solana", plan.Namespace)
	assert.Equal(t, "abc123", plan.ArtifactID)
	assert.Len(t, plan.Objects(), 1+3*5)
}

func TestBuild_GenesisConfigMap(t *testing.T) {
	t.Parallel()

	spec := testSpec(t, 1)
	plan, err := Build(spec, testBundle(spec))
	require.NoError(t, err)

	cm := plan.GenesisConfig
	assert.Equal(t, "genesis-config", cm.Name)
	assert.Equal(t, "solana", cm.Namespace)
	assert.Equal(t, []byte("archive"), cm.BinaryData["genesis.tar.bz2"])
	assert.Equal(t, "GenesisHash111", cm.Data["genesis-hash"])
	assert.Equal(t, "4242", cm.Data["shred-version"])
	assert.Equal(t, labels.ComponentGenesis, cm.Labels[labels.KeyComponent])
}

func TestBuild_ArtifactAnnotations(t *testing.T) {
	t.Parallel()

	spec := testSpec(t, 2)
	plan, err := Build(spec, testBundle(spec))
	require.NoError(t, err)

	for _, obj := range plan.Objects() {
		accessor, err := meta.Accessor(obj)
		require.NoError(t, err)
		assert.Equal(t, "abc123", accessor.GetAnnotations()[AnnotationGenesisArtifact],
			"%T %s", obj, accessor.GetName())
	}
	for _, node := range plan.Nodes {
		assert.Equal(t, "abc123", node.Deployment.Spec.Template.Annotations[AnnotationGenesisArtifact])
	}
}

func TestBuild_BootstrapObjects(t *testing.T) {
	t.Parallel()

	spec := testSpec(t, 2)
	plan, err := Build(spec, testBundle(spec))
	require.NoError(t, err)

	boot := plan.Bootstrap()
	require.NotNil(t, boot)

	assert.Equal(t, "bootstrap-validator-accounts-secret", boot.Secret.Name)
	assert.Equal(t, []byte("[faucet]"), boot.Secret.Data[FaucetKey])
	assert.Equal(t, []byte("[boot-id]"), boot.Secret.Data[IdentityKey])

	assert.Equal(t, "bootstrap-validator-service", boot.Service.Name)
	assert.Equal(t, map[string]string{labels.KeyName: "bootstrap-validator"}, boot.Service.Spec.Selector)
	assert.Len(t, boot.Service.Spec.Ports, 4, "gossip tcp/udp, rpc and faucet")

	dep := boot.Deployment
	assert.Equal(t, "bootstrap-validator", dep.Name)
	assert.Equal(t, int32(1), *dep.Spec.Replicas)
	assert.Equal(t, appsv1.RecreateDeploymentStrategyType, dep.Spec.Strategy.Type)
	assert.Equal(t, labels.RoleBootstrap, dep.Spec.Template.Labels[labels.KeyRole])

	c := dep.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "bootstrap-container", c.Name)
	assert.Equal(t, "ghcr.io/example/bootstrap:v1", c.Image)
	_, hasEntrypoint := envValue(c, "BOOTSTRAP_ENTRYPOINT")
	assert.False(t, hasEntrypoint)
}

func TestBuild_ValidatorObjects(t *testing.T) {
	t.Parallel()

	spec := testSpec(t, 2)
	spec.Runtime.EnableUDP = true
	plan, err := Build(spec, testBundle(spec))
	require.NoError(t, err)

	v := plan.Validators()[1]
	assert.Equal(t, "validator-1-accounts-secret", v.Secret.Name)
	assert.NotContains(t, v.Secret.Data, FaucetKey)
	assert.Len(t, v.Service.Spec.Ports, 3)

	c := v.Deployment.Spec.Template.Spec.Containers[0]
	assert.Equal(t, "validator-container", c.Name)
	assert.Equal(t, "ghcr.io/example/validator:v1", c.Image)

	expectedEnv := map[string]string{
		"BOOTSTRAP_ENTRYPOINT":   "bootstrap-validator-service.solana.svc.cluster.local:8001",
		"EXPECTED_GENESIS_HASH":  "GenesisHash111",
		"EXPECTED_SHRED_VERSION": "4242",
		"STAKE_LAMPORTS":         "10000000000",
		"FUND_LAMPORTS":          "500000000000",
		"IDENTITY_PUBKEY":        "v1-id-pub",
		"TPU_ENABLE_UDP":         "true",
		"TPU_DISABLE_QUIC":       "false",
		"GPU_MODE":               "auto",
	}
	for name, want := range expectedEnv {
		got, ok := envValue(c, name)
		assert.True(t, ok, "missing env %s", name)
		assert.Equal(t, want, got, "env %s", name)
	}

	require.NotNil(t, c.ReadinessProbe)
	require.NotNil(t, c.ReadinessProbe.HTTPGet)
	assert.Equal(t, "/health", c.ReadinessProbe.HTTPGet.Path)
	assert.Equal(t, int32(8899), c.ReadinessProbe.HTTPGet.Port.IntVal)

	assert.Equal(t, "2", c.Resources.Requests.Cpu().String())
	assert.Equal(t, "8Gi", c.Resources.Requests.Memory().String())
	assert.Equal(t, "4", c.Resources.Limits.Cpu().String())
	_, hasMemLimit := c.Resources.Limits[corev1.ResourceMemory]
	assert.False(t, hasMemLimit)

	volumes := v.Deployment.Spec.Template.Spec.Volumes
	require.Len(t, volumes, 2)
	assert.Equal(t, "genesis-config", volumes[0].ConfigMap.Name)
	assert.Equal(t, "validator-1-accounts-secret", volumes[1].Secret.SecretName)
}

func TestBuild_BootstrapOnly(t *testing.T) {
	t.Parallel()

	spec := testSpec(t, 0)
	plan, err := Build(spec, testBundle(spec))
	require.NoError(t, err)
	assert.Len(t, plan.Nodes, 1)
	assert.Empty(t, plan.Validators())
}

func TestBuild_MismatchedBundle(t *testing.T) {
	t.Parallel()

	spec := testSpec(t, 3)
	_, err := Build(spec, testBundle(testSpec(t, 1)))
	require.Error(t, err)

	_, err = Build(spec, nil)
	require.Error(t, err)
}

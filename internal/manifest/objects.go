package manifest

import (
	"strconv"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/genesis"
	"github.com/imamik/solk8s/internal/util/labels"
	"github.com/imamik/solk8s/internal/util/naming"
	"github.com/imamik/solk8s/internal/util/ptr"
)

// Mount paths inside validator containers.
const (
	GenesisMountPath  = "/home/solana/genesis"
	AccountsMountPath = "/home/solana/accounts"
)

// Secret keys of the node accounts Secret.
const (
	IdentityKey = "identity.json"
	VoteKey     = "vote.json"
	StakeKey    = "stake.json"
	FaucetKey   = "faucet.json"
)

// AnnotationGenesisArtifact records the genesis build an object or pod was
// created from. An existing object carrying another value belongs to an
// older cluster and is never adopted.
const AnnotationGenesisArtifact = "solk8s.io/genesis-artifact-id"

const (
	genesisVolume  = "genesis"
	accountsVolume = "accounts"

	healthPath = "/health"

	// progressDeadlineSeconds bounds how long the Deployment controller waits
	// before it reports ProgressDeadlineExceeded.
	progressDeadlineSeconds = 600
)

func typeMeta(kind, apiVersion string) metav1.TypeMeta {
	return metav1.TypeMeta{Kind: kind, APIVersion: apiVersion}
}

func genesisConfigMap(namespace string, bundle *genesis.Bundle) *corev1.ConfigMap {
	return &corev1.ConfigMap{
		TypeMeta: typeMeta("ConfigMap", "v1"),
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.GenesisConfigMap,
			Namespace: namespace,
			Labels:    labels.NewLabelBuilder().WithComponent(labels.ComponentGenesis).Build(),
			Annotations: artifactAnnotations(bundle),
		},
		Data: map[string]string{
			"genesis-hash":  bundle.GenesisHash,
			"shred-version": strconv.FormatUint(uint64(bundle.ShredVersion), 10),
		},
		BinaryData: map[string][]byte{
			genesis.ArchiveName: bundle.Archive,
		},
	}
}

func artifactAnnotations(bundle *genesis.Bundle) map[string]string {
	return map[string]string{AnnotationGenesisArtifact: bundle.ArtifactID}
}

// objectMeta is the metadata shared by the objects of one node.
func (b *nodeBuilder) objectMeta(name string, id genesis.Identity) metav1.ObjectMeta {
	return metav1.ObjectMeta{
		Name:        name,
		Namespace:   b.spec.Namespace,
		Labels:      b.nodeLabels(id),
		Annotations: artifactAnnotations(b.bundle),
	}
}

func (b *nodeBuilder) nodeLabels(id genesis.Identity) map[string]string {
	return labels.NewLabelBuilder().
		WithName(id.Name).
		WithRole(string(id.Role)).
		Build()
}

func (b *nodeBuilder) secret(id genesis.Identity) *corev1.Secret {
	data := map[string][]byte{
		IdentityKey: id.Identity.Raw,
		VoteKey:     id.Vote.Raw,
		StakeKey:    id.Stake.Raw,
	}
	// The faucet runs next to the bootstrap validator.
	if id.Role == genesis.RoleBootstrap {
		data[FaucetKey] = b.bundle.Faucet.Raw
	}

	return &corev1.Secret{
		TypeMeta: typeMeta("Secret", "v1"),
		ObjectMeta: b.objectMeta(naming.Secret(id.Name), id),
		Type: corev1.SecretTypeOpaque,
		Data: data,
	}
}

func (b *nodeBuilder) ports(id genesis.Identity) []corev1.ContainerPort {
	ports := []corev1.ContainerPort{
		{Name: "gossip", ContainerPort: config.GossipPort, Protocol: corev1.ProtocolTCP},
		{Name: "gossip-udp", ContainerPort: config.GossipPort, Protocol: corev1.ProtocolUDP},
		{Name: "rpc", ContainerPort: config.RPCPort, Protocol: corev1.ProtocolTCP},
	}
	if id.Role == genesis.RoleBootstrap {
		ports = append(ports, corev1.ContainerPort{Name: "faucet", ContainerPort: config.FaucetPort, Protocol: corev1.ProtocolTCP})
	}
	return ports
}

func (b *nodeBuilder) service(id genesis.Identity) *corev1.Service {
	var ports []corev1.ServicePort
	for _, p := range b.ports(id) {
		ports = append(ports, corev1.ServicePort{
			Name:       p.Name,
			Port:       p.ContainerPort,
			TargetPort: intstr.FromInt32(p.ContainerPort),
			Protocol:   p.Protocol,
		})
	}

	return &corev1.Service{
		TypeMeta: typeMeta("Service", "v1"),
		ObjectMeta: b.objectMeta(naming.Service(id.Name), id),
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: labels.Selector(id.Name),
			Ports:    ports,
		},
	}
}

func (b *nodeBuilder) env(id genesis.Identity, dependsOn string) []corev1.EnvVar {
	rt := b.spec.Runtime
	env := []corev1.EnvVar{
		{
			Name: "MY_POD_IP",
			ValueFrom: &corev1.EnvVarSource{
				FieldRef: &corev1.ObjectFieldSelector{FieldPath: "status.podIP"},
			},
		},
		{Name: "NODE_NAME", Value: id.Name},
		{Name: "NODE_ROLE", Value: string(id.Role)},
		{Name: "IDENTITY_PUBKEY", Value: id.Identity.Pubkey},
		{Name: "VOTE_PUBKEY", Value: id.Vote.Pubkey},
		{Name: "STAKE_PUBKEY", Value: id.Stake.Pubkey},
		{Name: "FUND_LAMPORTS", Value: strconv.FormatUint(id.FundLamports, 10)},
		{Name: "STAKE_LAMPORTS", Value: strconv.FormatUint(id.StakeLamports, 10)},
		{Name: "EXPECTED_GENESIS_HASH", Value: b.bundle.GenesisHash},
		{Name: "EXPECTED_SHRED_VERSION", Value: strconv.FormatUint(uint64(b.bundle.ShredVersion), 10)},
		{Name: "GENESIS_ARCHIVE", Value: GenesisMountPath + "/" + genesis.ArchiveName},
		{Name: "ACCOUNTS_DIR", Value: AccountsMountPath},
		{Name: "TPU_ENABLE_UDP", Value: strconv.FormatBool(rt.EnableUDP)},
		{Name: "TPU_DISABLE_QUIC", Value: strconv.FormatBool(rt.DisableQUIC)},
		{Name: "GPU_MODE", Value: rt.GPUMode},
	}
	if dependsOn != "" {
		env = append(env, corev1.EnvVar{Name: "BOOTSTRAP_ENTRYPOINT", Value: dependsOn})
	}
	return env
}

func (b *nodeBuilder) deployment(id genesis.Identity, image config.ImageSpec, dependsOn string) *appsv1.Deployment {
	podLabels := b.nodeLabels(id)

	container := corev1.Container{
		Name:            image.Container,
		Image:           image.Image,
		ImagePullPolicy: corev1.PullIfNotPresent,
		Env:             b.env(id, dependsOn),
		Ports:           b.ports(id),
		Resources:       b.resources,
		ReadinessProbe: &corev1.Probe{
			ProbeHandler: corev1.ProbeHandler{
				HTTPGet: &corev1.HTTPGetAction{
					Path: healthPath,
					Port: intstr.FromInt32(config.RPCPort),
				},
			},
			InitialDelaySeconds: 10,
			PeriodSeconds:       5,
			FailureThreshold:    3,
		},
		VolumeMounts: []corev1.VolumeMount{
			{Name: genesisVolume, MountPath: GenesisMountPath, ReadOnly: true},
			{Name: accountsVolume, MountPath: AccountsMountPath, ReadOnly: true},
		},
	}

	return &appsv1.Deployment{
		TypeMeta: typeMeta("Deployment", "apps/v1"),
		ObjectMeta: b.objectMeta(naming.Deployment(id.Name), id),
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.Int32(1),
			Selector: &metav1.LabelSelector{MatchLabels: labels.Selector(id.Name)},
			// A validator identity must never run twice.
			Strategy:                appsv1.DeploymentStrategy{Type: appsv1.RecreateDeploymentStrategyType},
			ProgressDeadlineSeconds: ptr.Int32(progressDeadlineSeconds),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: podLabels,
					Annotations: artifactAnnotations(b.bundle),
				},
				Spec: corev1.PodSpec{
					Hostname:   id.Name,
					Containers: []corev1.Container{container},
					Volumes: []corev1.Volume{
						{
							Name: genesisVolume,
							VolumeSource: corev1.VolumeSource{
								ConfigMap: &corev1.ConfigMapVolumeSource{
									LocalObjectReference: corev1.LocalObjectReference{Name: naming.GenesisConfigMap},
								},
							},
						},
						{
							Name: accountsVolume,
							VolumeSource: corev1.VolumeSource{
								Secret: &corev1.SecretVolumeSource{
									SecretName:  naming.Secret(id.Name),
									DefaultMode: ptr.Int32(0o400),
								},
							},
						},
					},
				},
			},
		},
	}
}

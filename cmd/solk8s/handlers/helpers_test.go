package handlers

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	k8sfake "k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/genesis"
	"github.com/imamik/solk8s/internal/k8s"
	"github.com/imamik/solk8s/internal/report"
	"github.com/imamik/solk8s/internal/util/prerequisites"
)

func validParams(validators int) config.Params {
	return config.Params{
		Namespace:      "solana",
		ValidatorCount: validators,
		BootstrapImage: "ghcr.io/example/bootstrap:v1",
		ValidatorImage: "ghcr.io/example/validator:v1",
	}
}

// fakeBuilder returns a bundle with one identity per planned node.
type fakeBuilder struct {
	calls    int
	err      error
	artifact string
}

func (f *fakeBuilder) Build(_ context.Context, spec *config.ClusterSpec) (*genesis.Bundle, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	kp := func(name string) genesis.Keypair {
		return genesis.Keypair{Pubkey: name, Raw: []byte("[1,2,3]")}
	}
	artifact := f.artifact
	if artifact == "" {
		artifact = "artifact-1"
	}
	bundle := &genesis.Bundle{
		ArtifactID:   artifact,
		GenesisHash:  "GenesisHash1111",
		ShredVersion: 4711,
		Archive:      []byte("archive"),
		Faucet:       kp("faucet"),
	}
	bundle.Identities = append(bundle.Identities, genesis.Identity{
		Name: "bootstrap-validator", Role: genesis.RoleBootstrap,
		Identity: kp("boot-id"), Vote: kp("boot-vote"), Stake: kp("boot-stake"),
	})
	for i := range spec.ValidatorCount {
		bundle.Identities = append(bundle.Identities, genesis.Identity{
			Name: fmt.Sprintf("validator-%d", i), Role: genesis.RoleValidator, Index: i,
			Identity: kp(fmt.Sprintf("v%d-id", i)), Vote: kp(fmt.Sprintf("v%d-vote", i)), Stake: kp(fmt.Sprintf("v%d-stake", i)),
		})
	}
	return bundle, nil
}

// newFakeClientset returns a clientset holding namespace whose Deployments
// come up ready with one Ready pod each.
func newFakeClientset(namespace string) *k8sfake.Clientset {
	var objs []runtime.Object
	if namespace != "" {
		objs = append(objs, &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: namespace}})
	}
	cs := k8sfake.NewSimpleClientset(objs...)

	cs.PrependReactor("create", "deployments", func(action k8stesting.Action) (bool, runtime.Object, error) {
		dep := action.(k8stesting.CreateAction).GetObject().(*appsv1.Deployment).DeepCopy()
		dep.Status = appsv1.DeploymentStatus{
			Replicas: 1, UpdatedReplicas: 1, ReadyReplicas: 1, AvailableReplicas: 1,
			Conditions: []appsv1.DeploymentCondition{{Type: appsv1.DeploymentAvailable, Status: corev1.ConditionTrue}},
		}
		if err := cs.Tracker().Create(appsv1.SchemeGroupVersion.WithResource("deployments"), dep, dep.Namespace); err != nil {
			return true, nil, err
		}

		pod := &corev1.Pod{
			ObjectMeta: metav1.ObjectMeta{Name: dep.Name + "-0", Namespace: dep.Namespace, Labels: dep.Spec.Template.Labels},
			Status: corev1.PodStatus{
				Phase:      corev1.PodRunning,
				Conditions: []corev1.PodCondition{{Type: corev1.PodReady, Status: corev1.ConditionTrue}},
			},
		}
		if err := cs.Tracker().Create(corev1.SchemeGroupVersion.WithResource("pods"), pod, pod.Namespace); err != nil {
			return true, nil, err
		}
		return true, dep, nil
	})
	return cs
}

// createActions returns the create actions recorded by cs.
func createActions(cs *k8sfake.Clientset) []k8stesting.Action {
	var out []k8stesting.Action
	for _, a := range cs.Actions() {
		if a.GetVerb() == "create" {
			out = append(out, a)
		}
	}
	return out
}

// saveAndRestoreFactories installs fakes for every factory and restores the
// originals when the test ends.
func saveAndRestoreFactories(t *testing.T) (*bytes.Buffer, *fakeBuilder) {
	t.Helper()
	origNewCluster := newCluster
	origNewGenesisBuilder := newGenesisBuilder
	origCheckGenesisPrereqs := checkGenesisPrereqs
	origNewS3Sink := newS3Sink
	origStdout := stdout
	origWriteFile := writeFile
	origIsInteractiveTTY := isInteractiveTTY

	t.Cleanup(func() {
		newCluster = origNewCluster
		newGenesisBuilder = origNewGenesisBuilder
		checkGenesisPrereqs = origCheckGenesisPrereqs
		newS3Sink = origNewS3Sink
		stdout = origStdout
		writeFile = origWriteFile
		isInteractiveTTY = origIsInteractiveTTY
	})

	out := &bytes.Buffer{}
	builder := &fakeBuilder{}
	stdout = out
	newGenesisBuilder = func(string) GenesisBuilder { return builder }
	checkGenesisPrereqs = func() *prerequisites.CheckResults { return &prerequisites.CheckResults{} }
	isInteractiveTTY = func() bool { return false }
	newCluster = func(string, string, float64, int) (Cluster, error) {
		t.Fatal("unexpected cluster access")
		return nil, nil
	}
	newS3Sink = func(context.Context, report.S3Options) (report.Sink, error) {
		t.Fatal("unexpected S3 sink")
		return nil, nil
	}
	return out, builder
}

func useClientset(t *testing.T, cs *k8sfake.Clientset) {
	t.Helper()
	newCluster = func(string, string, float64, int) (Cluster, error) {
		return k8s.NewFromClientset(cs), nil
	}
	require.NotNil(t, cs)
}

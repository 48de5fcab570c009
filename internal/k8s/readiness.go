package k8s

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	"github.com/imamik/solk8s/internal/util/labels"
)

// failingWaitReasons are container states that do not recover without a
// change to the Deployment.
var failingWaitReasons = map[string]bool{
	"ImagePullBackOff":           true,
	"ErrImagePull":               true,
	"InvalidImageName":           true,
	"CrashLoopBackOff":           true,
	"CreateContainerConfigError": true,
}

// IsDeploymentReady checks if a deployment has all replicas updated and
// available.
func IsDeploymentReady(deployment *appsv1.Deployment) bool {
	want := int32(1)
	if deployment.Spec.Replicas != nil {
		want = *deployment.Spec.Replicas
	}
	if deployment.Status.ObservedGeneration < deployment.Generation {
		return false
	}
	if deployment.Status.UpdatedReplicas != want {
		return false
	}
	if deployment.Status.Replicas != want {
		return false
	}
	if deployment.Status.AvailableReplicas != want {
		return false
	}

	// Check for available condition
	for _, condition := range deployment.Status.Conditions {
		if condition.Type == appsv1.DeploymentAvailable &&
			condition.Status == corev1.ConditionTrue {
			return true
		}
	}

	return false
}

// IsPodReady checks if a pod is running with the Ready condition set.
func IsPodReady(pod *corev1.Pod) bool {
	if pod.Status.Phase != corev1.PodRunning {
		return false
	}
	for _, condition := range pod.Status.Conditions {
		if condition.Type == corev1.PodReady {
			return condition.Status == corev1.ConditionTrue
		}
	}
	return false
}

// DeploymentFailure returns a reason when the deployment or one of its pods
// is in a state that will not converge on its own.
func DeploymentFailure(deployment *appsv1.Deployment, pods []corev1.Pod) (string, bool) {
	for _, condition := range deployment.Status.Conditions {
		if condition.Type == appsv1.DeploymentProgressing &&
			condition.Status == corev1.ConditionFalse &&
			condition.Reason == "ProgressDeadlineExceeded" {
			return "ProgressDeadlineExceeded: " + condition.Message, true
		}
	}

	for i := range pods {
		if reason, ok := PodFailure(&pods[i]); ok {
			return reason, true
		}
	}
	return "", false
}

// PodFailure returns a reason when a container of pod is stuck in a
// non-recovering waiting state.
func PodFailure(pod *corev1.Pod) (string, bool) {
	statuses := append([]corev1.ContainerStatus{}, pod.Status.InitContainerStatuses...)
	statuses = append(statuses, pod.Status.ContainerStatuses...)
	for _, cs := range statuses {
		if w := cs.State.Waiting; w != nil && failingWaitReasons[w.Reason] {
			msg := fmt.Sprintf("pod %s container %s: %s", pod.Name, cs.Name, w.Reason)
			if w.Message != "" {
				msg += ": " + w.Message
			}
			return msg, true
		}
	}
	return "", false
}

// NodeStatus is one readiness observation of a node's Deployment.
type NodeStatus struct {
	Ready   bool
	Failed  bool
	Reason  string
	Message string
}

// NodeReadiness reads the Deployment of node and its pods.
func (c *Client) NodeReadiness(ctx context.Context, namespace, node string) (NodeStatus, error) {
	dep, err := c.GetDeployment(ctx, namespace, node)
	if err != nil {
		return NodeStatus{}, err
	}
	if IsDeploymentReady(dep) {
		return NodeStatus{Ready: true}, nil
	}

	pods, err := c.ListPods(ctx, namespace, labels.KeyName+"="+node)
	if err != nil {
		return NodeStatus{}, err
	}
	if reason, failed := DeploymentFailure(dep, pods); failed {
		return NodeStatus{Failed: true, Reason: reason}, nil
	}

	return NodeStatus{Message: fmt.Sprintf("%d/%d replicas available", dep.Status.AvailableReplicas, replicas(dep))}, nil
}

func replicas(dep *appsv1.Deployment) int32 {
	if dep.Spec.Replicas == nil {
		return 1
	}
	return *dep.Spec.Replicas
}

// CountReadyPods counts Ready pods matching a label selector.
func (c *Client) CountReadyPods(ctx context.Context, namespace, labelSelector string) (int, error) {
	pods, err := c.ListPods(ctx, namespace, labelSelector)
	if err != nil {
		return 0, err
	}
	ready := 0
	for i := range pods {
		if IsPodReady(&pods[i]) {
			ready++
		}
	}
	return ready, nil
}

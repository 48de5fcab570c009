package k8s

import (
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// NamespaceExists checks whether namespace exists.
func (c *Client) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	if err := c.throttle(ctx); err != nil {
		return false, err
	}
	_, err := c.clientset.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get namespace %s: %w", namespace, err)
	}
	return true, nil
}

// CreateConfigMap creates a ConfigMap.
func (c *Client) CreateConfigMap(ctx context.Context, cm *corev1.ConfigMap) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	if _, err := c.clientset.CoreV1().ConfigMaps(cm.Namespace).Create(ctx, cm, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("failed to create configmap %s/%s: %w", cm.Namespace, cm.Name, err)
	}
	return nil
}

// CreateSecret creates a Secret.
func (c *Client) CreateSecret(ctx context.Context, secret *corev1.Secret) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	if _, err := c.clientset.CoreV1().Secrets(secret.Namespace).Create(ctx, secret, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("failed to create secret %s/%s: %w", secret.Namespace, secret.Name, err)
	}
	return nil
}

// CreateService creates a Service.
func (c *Client) CreateService(ctx context.Context, svc *corev1.Service) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	if _, err := c.clientset.CoreV1().Services(svc.Namespace).Create(ctx, svc, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("failed to create service %s/%s: %w", svc.Namespace, svc.Name, err)
	}
	return nil
}

// CreateDeployment creates a Deployment.
func (c *Client) CreateDeployment(ctx context.Context, dep *appsv1.Deployment) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	if _, err := c.clientset.AppsV1().Deployments(dep.Namespace).Create(ctx, dep, metav1.CreateOptions{}); err != nil {
		return fmt.Errorf("failed to create deployment %s/%s: %w", dep.Namespace, dep.Name, err)
	}
	return nil
}

// GetConfigMap returns a ConfigMap.
func (c *Client) GetConfigMap(ctx context.Context, namespace, name string) (*corev1.ConfigMap, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	cm, err := c.clientset.CoreV1().ConfigMaps(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get configmap %s/%s: %w", namespace, name, err)
	}
	return cm, nil
}

// GetSecret returns a Secret.
func (c *Client) GetSecret(ctx context.Context, namespace, name string) (*corev1.Secret, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	secret, err := c.clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret %s/%s: %w", namespace, name, err)
	}
	return secret, nil
}

// GetService returns a Service.
func (c *Client) GetService(ctx context.Context, namespace, name string) (*corev1.Service, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	svc, err := c.clientset.CoreV1().Services(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get service %s/%s: %w", namespace, name, err)
	}
	return svc, nil
}

// GetDeployment returns a Deployment.
func (c *Client) GetDeployment(ctx context.Context, namespace, name string) (*appsv1.Deployment, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	dep, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment %s/%s: %w", namespace, name, err)
	}
	return dep, nil
}

// ListPods returns pods matching a label selector in a namespace.
func (c *Client) ListPods(ctx context.Context, namespace, labelSelector string) ([]corev1.Pod, error) {
	if err := c.throttle(ctx); err != nil {
		return nil, err
	}
	podList, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}
	return podList.Items, nil
}

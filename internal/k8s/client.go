package k8s

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Default client-side rate limit.
const (
	DefaultQPS   = 20
	DefaultBurst = 40
)

// Client wraps Kubernetes API operations for cluster deployment.
type Client struct {
	clientset  kubernetes.Interface
	restConfig *rest.Config
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit sets the client-side request rate shared by all callers.
func WithRateLimit(qps float64, burst int) Option {
	return func(c *Client) {
		if qps > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(qps), burst)
		}
	}
}

// NewFromKubeconfig creates a Client from a kubeconfig file. An empty path
// uses the default loading rules ($KUBECONFIG, ~/.kube/config, in-cluster),
// an empty kubeContext the current context.
func NewFromKubeconfig(path, kubeContext string, opts ...Option) (*Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if path != "" {
		rules.ExplicitPath = path
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: kubeContext}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig: %w", err)
	}

	c := newClient(nil, opts...)
	// client-go throttles on its own, keep it from limiting below ours.
	restConfig.QPS = float32(c.limiter.Limit())
	restConfig.Burst = c.limiter.Burst()

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	c.clientset = clientset
	c.restConfig = restConfig
	return c, nil
}

// NewFromClientset creates a Client from a pre-configured clientset.
// This is useful for testing with fake clients.
func NewFromClientset(clientset kubernetes.Interface, opts ...Option) *Client {
	return newClient(clientset, opts...)
}

func newClient(clientset kubernetes.Interface, opts ...Option) *Client {
	c := &Client{
		clientset: clientset,
		limiter:   rate.NewLimiter(rate.Limit(DefaultQPS), DefaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clientset returns the underlying clientset.
func (c *Client) Clientset() kubernetes.Interface {
	return c.clientset
}

// throttle blocks until the rate limiter admits one request.
func (c *Client) throttle(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

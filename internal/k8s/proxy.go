package k8s

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"k8s.io/client-go/rest"
)

// ErrNoRESTConfig is returned for clients built without a kubeconfig.
var ErrNoRESTConfig = errors.New("client has no REST config")

// ServiceProxyURL returns the API-server proxy URL of a service port and an
// HTTP client authenticated against the API server.
func (c *Client) ServiceProxyURL(namespace, service string, port int) (string, *http.Client, error) {
	if c.restConfig == nil {
		return "", nil, ErrNoRESTConfig
	}

	httpClient, err := rest.HTTPClientFor(c.restConfig)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create proxy HTTP client: %w", err)
	}

	return ProxyURL(c.restConfig.Host, namespace, service, port), httpClient, nil
}

// ProxyURL builds the API-server service proxy URL for host.
func ProxyURL(host, namespace, service string, port int) string {
	return fmt.Sprintf("%s/api/v1/namespaces/%s/services/%s:%d/proxy/",
		strings.TrimSuffix(host, "/"),
		url.PathEscape(namespace), url.PathEscape(service), port)
}

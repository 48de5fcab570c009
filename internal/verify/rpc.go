package verify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/util/naming"
)

// RPCSource reads the topology from a Solana JSON-RPC endpoint.
type RPCSource struct {
	client *rpc.Client
	url    string
}

// DialRPC connects to the JSON-RPC endpoint at url. A nil httpClient uses
// the default client.
func DialRPC(ctx context.Context, url string, httpClient *http.Client) (*RPCSource, error) {
	var opts []rpc.ClientOption
	if httpClient != nil {
		opts = append(opts, rpc.WithHTTPClient(httpClient))
	}
	client, err := rpc.DialOptions(ctx, url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc %s: %w", url, err)
	}
	return &RPCSource{client: client, url: url}, nil
}

// ServiceProxy resolves a service port to an API-server proxy URL.
type ServiceProxy interface {
	ServiceProxyURL(namespace, service string, port int) (string, *http.Client, error)
}

// DialBootstrapProxy connects to the bootstrap validator's RPC port through
// the API-server service proxy, so no port-forward or ingress is needed.
func DialBootstrapProxy(ctx context.Context, proxy ServiceProxy, namespace string) (*RPCSource, error) {
	url, httpClient, err := proxy.ServiceProxyURL(namespace, naming.Service(naming.BootstrapNode), config.RPCPort)
	if err != nil {
		return nil, err
	}
	return DialRPC(ctx, url, httpClient)
}

// URL returns the endpoint this source talks to.
func (s *RPCSource) URL() string {
	return s.url
}

// Close releases the underlying connections.
func (s *RPCSource) Close() {
	s.client.Close()
}

// ClusterNodes implements TopologySource.
func (s *RPCSource) ClusterNodes(ctx context.Context) ([]ClusterNode, error) {
	var nodes []ClusterNode
	if err := s.client.CallContext(ctx, &nodes, "getClusterNodes"); err != nil {
		return nil, fmt.Errorf("getClusterNodes: %w", err)
	}
	return nodes, nil
}

// VoteAccounts implements TopologySource.
func (s *RPCSource) VoteAccounts(ctx context.Context) (*VoteAccounts, error) {
	var accounts VoteAccounts
	if err := s.client.CallContext(ctx, &accounts, "getVoteAccounts"); err != nil {
		return nil, fmt.Errorf("getVoteAccounts: %w", err)
	}
	return &accounts, nil
}

package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/solk8s/internal/k8s"
)

// solanaRPC is a minimal JSON-RPC 2.0 server answering the two topology
// methods with peers nodes.
func solanaRPC(t *testing.T, peers int, requests *atomic.Int32) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}

		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var result any
		switch req.Method {
		case "getClusterNodes":
			nodes := make([]map[string]any, peers)
			for i := range nodes {
				gossip := fmt.Sprintf("10.0.0.%d:8001", i+1)
				nodes[i] = map[string]any{"pubkey": fmt.Sprintf("peer-%d", i), "gossip": gossip, "shredVersion": 4711}
			}
			result = nodes
		case "getVoteAccounts":
			current := make([]map[string]any, peers)
			for i := range current {
				current[i] = map[string]any{"votePubkey": fmt.Sprintf("vote-%d", i), "nodePubkey": fmt.Sprintf("peer-%d", i), "activatedStake": 1000}
			}
			result = map[string]any{"current": current, "delinquent": []any{}}
		default:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": -32601, "message": "Method not found"},
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	})
}

func TestRPCSource(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(solanaRPC(t, 6, nil))
	defer srv.Close()

	source, err := DialRPC(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	defer source.Close()
	assert.Equal(t, srv.URL, source.URL())

	nodes, err := source.ClusterNodes(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 6)
	assert.Equal(t, "peer-0", nodes[0].Pubkey)
	require.NotNil(t, nodes[0].Gossip)
	assert.Equal(t, "10.0.0.1:8001", *nodes[0].Gossip)
	require.NotNil(t, nodes[0].ShredVersion)
	assert.Equal(t, uint16(4711), *nodes[0].ShredVersion)
	assert.Nil(t, nodes[0].RPC)

	accounts, err := source.VoteAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts.Current, 6)
	assert.Empty(t, accounts.Delinquent)
	assert.Equal(t, uint64(1000), accounts.Current[0].ActivatedStake)
}

func TestRPCSource_VerifySixPeers(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(solanaRPC(t, 6, nil))
	defer srv.Close()

	source, err := DialRPC(context.Background(), srv.URL, srv.Client())
	require.NoError(t, err)
	defer source.Close()

	res, err := Verify(context.Background(), testSpec(t, 5), source, fastPoll())
	require.NoError(t, err)
	assert.Equal(t, 6, res.ObservedNodes)
	assert.Equal(t, 6, res.ObservedValidators)
}

func TestRPCSource_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	source, err := DialRPC(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	defer source.Close()

	_, err = source.ClusterNodes(context.Background())
	assert.ErrorContains(t, err, "getClusterNodes")
}

func TestDialBootstrapProxy(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	mux := http.NewServeMux()
	mux.Handle("/api/v1/namespaces/solana/services/bootstrap-validator-service:8899/proxy/", solanaRPC(t, 3, &requests))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	kubeconfig := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(kubeconfig, []byte(fmt.Sprintf(`apiVersion: v1
kind: Config
clusters:
- name: test
  cluster:
    server: %s
contexts:
- name: test
  context:
    cluster: test
    user: test
current-context: test
users:
- name: test
  user:
    token: secret
`, srv.URL)), 0o600))

	client, err := k8s.NewFromKubeconfig(kubeconfig, "")
	require.NoError(t, err)

	source, err := DialBootstrapProxy(context.Background(), client, "solana")
	require.NoError(t, err)
	defer source.Close()

	res, err := Verify(context.Background(), testSpec(t, 2), source, fastPoll())
	require.NoError(t, err)
	assert.Equal(t, 3, res.ObservedNodes)
	assert.Equal(t, int32(2), requests.Load())
}

func TestDialBootstrapProxy_NoRESTConfig(t *testing.T) {
	t.Parallel()

	_, err := DialBootstrapProxy(context.Background(), k8s.NewFromClientset(nil), "solana")
	assert.ErrorIs(t, err, k8s.ErrNoRESTConfig)
}

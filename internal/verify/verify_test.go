package verify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/util/labels"
	"github.com/imamik/solk8s/internal/util/retry"
)

func testSpec(t *testing.T, validators int) *config.ClusterSpec {
	t.Helper()
	spec, err := config.Resolve(config.Params{
		Namespace:      "solana",
		ValidatorCount: validators,
		BootstrapImage: "ghcr.io/example/bootstrap:v1",
		ValidatorImage: "ghcr.io/example/validator:v1",
	})
	require.NoError(t, err)
	return spec
}

func fastPoll() Option {
	return WithPollPolicy(retry.NewPolicy(
		retry.WithInitialDelay(time.Millisecond),
		retry.WithMaxDelay(2*time.Millisecond),
	))
}

// fakeSource reports one more node on every call until it reaches max.
type fakeSource struct {
	mu       sync.Mutex
	calls    int
	start    int
	max      int
	failures int
	voteErr  error
}

func (f *fakeSource) ClusterNodes(context.Context) ([]ClusterNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("connection refused")
	}
	n := min(f.start+f.calls-f.failures-1, f.max)
	nodes := make([]ClusterNode, n)
	for i := range nodes {
		nodes[i] = ClusterNode{Pubkey: fmt.Sprintf("node-%02d", n-i)}
	}
	return nodes, nil
}

func (f *fakeSource) VoteAccounts(context.Context) (*VoteAccounts, error) {
	if f.voteErr != nil {
		return nil, f.voteErr
	}
	return &VoteAccounts{
		Current:    make([]VoteAccount, f.max-1),
		Delinquent: make([]VoteAccount, 1),
	}, nil
}

type fakePods struct {
	ready    int
	err      error
	selector string
}

func (f *fakePods) CountReadyPods(_ context.Context, _ string, selector string) (int, error) {
	f.selector = selector
	return f.ready, f.err
}

func TestVerify_Converges(t *testing.T) {
	t.Parallel()

	source := &fakeSource{start: 1, max: 6, failures: 2}
	pods := &fakePods{ready: 6}

	res, err := Verify(context.Background(), testSpec(t, 5), source, fastPoll(), WithTimeout(time.Second), WithPodCounter(pods))
	require.NoError(t, err)

	assert.Equal(t, 6, res.ExpectedNodes)
	assert.Equal(t, 6, res.ObservedNodes)
	assert.Equal(t, 5, res.ObservedValidators)
	assert.Equal(t, 1, res.DelinquentVoters)
	assert.Equal(t, 6, res.ReadyPods)
	assert.Equal(t, []string{"node-01", "node-02", "node-03", "node-04", "node-05", "node-06"}, res.Peers)
	assert.Equal(t, labels.SelectorForValidators(), pods.selector)
	assert.GreaterOrEqual(t, source.calls, 8)
}

func TestVerify_BootstrapOnly(t *testing.T) {
	t.Parallel()

	res, err := Verify(context.Background(), testSpec(t, 0), &fakeSource{start: 1, max: 1}, fastPoll())
	require.NoError(t, err)
	assert.Equal(t, 1, res.ObservedNodes)
	assert.Equal(t, 0, res.ReadyPods, "pods are not counted without a counter")
}

func TestVerify_PeerMismatch(t *testing.T) {
	t.Parallel()

	res, err := Verify(context.Background(), testSpec(t, 5), &fakeSource{start: 1, max: 4}, fastPoll(), WithTimeout(30*time.Millisecond))

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 6, verr.Expected)
	assert.Equal(t, 4, verr.Observed)
	assert.NoError(t, verr.Unwrap())
	assert.Equal(t, "verification failed: expected 6 gossip peers, observed 4", err.Error())

	require.NotNil(t, res)
	assert.Len(t, res.Peers, 4)
}

func TestVerify_Unreachable(t *testing.T) {
	t.Parallel()

	_, err := Verify(context.Background(), testSpec(t, 1), &fakeSource{max: 2, failures: 1 << 20}, fastPoll(), WithTimeout(20*time.Millisecond))

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, retry.ErrTimeoutExceeded)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestVerify_VoteAccountsError(t *testing.T) {
	t.Parallel()

	source := &fakeSource{start: 2, max: 2, voteErr: errors.New("rpc down")}
	_, err := Verify(context.Background(), testSpec(t, 1), source, fastPoll())

	var verr *VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, err.Error(), "rpc down")
}

func TestVerify_ReadyPodMismatch(t *testing.T) {
	t.Parallel()

	_, err := Verify(context.Background(), testSpec(t, 2), &fakeSource{start: 3, max: 3}, fastPoll(), WithPodCounter(&fakePods{ready: 2}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 validator pods ready")

	_, err = Verify(context.Background(), testSpec(t, 2), &fakeSource{start: 3, max: 3}, fastPoll(), WithPodCounter(&fakePods{err: errors.New("forbidden")}))
	assert.ErrorContains(t, err, "forbidden")
}

func TestVerify_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Verify(ctx, testSpec(t, 3), &fakeSource{start: 1, max: 1}, fastPoll())
	assert.ErrorIs(t, err, context.Canceled)
}

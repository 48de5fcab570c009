package verify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jonboulle/clockwork"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/util/labels"
	"github.com/imamik/solk8s/internal/util/retry"
)

// Result is what the verifier observed.
type Result struct {
	ExpectedNodes      int      `json:"expectedNodes"`
	ObservedNodes      int      `json:"observedNodes"`
	ObservedValidators int      `json:"observedValidators"`
	DelinquentVoters   int      `json:"delinquentVoters"`
	ReadyPods          int      `json:"readyPods"`
	Peers              []string `json:"peers"`
	Duration           string   `json:"duration"`
}

// VerificationError reports a cluster that did not form as planned.
type VerificationError struct {
	Expected int
	Observed int
	Err      error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verification failed (expected %d nodes, observed %d): %v", e.Expected, e.Observed, e.Err)
	}
	return fmt.Sprintf("verification failed: expected %d gossip peers, observed %d", e.Expected, e.Observed)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Option configures Verify.
type Option func(*verifier)

// WithPodCounter also checks the number of Ready validator pods.
func WithPodCounter(pods PodCounter) Option {
	return func(v *verifier) { v.pods = pods }
}

// WithPollPolicy sets the backoff between topology polls.
func WithPollPolicy(p retry.Policy) Option {
	return func(v *verifier) { v.poll = p }
}

// WithTimeout overrides spec.Deploy.VerifyTimeout.
func WithTimeout(d time.Duration) Option {
	return func(v *verifier) { v.timeout = d }
}

// WithClock sets the clock used for polling.
func WithClock(clock clockwork.Clock) Option {
	return func(v *verifier) { v.clock = clock }
}

type verifier struct {
	pods    PodCounter
	poll    retry.Policy
	timeout time.Duration
	clock   clockwork.Clock
}

// Verify polls source until the gossip view holds every planned node or the
// verify window elapses. A mismatch or an unreachable source returns the
// partial result with a *VerificationError.
func Verify(ctx context.Context, spec *config.ClusterSpec, source TopologySource, opts ...Option) (*Result, error) {
	v := &verifier{
		poll:    retry.NewPolicy(retry.WithInitialDelay(config.DefaultPollInterval), retry.WithMaxDelay(config.DefaultMaxPollInterval)),
		timeout: spec.Deploy.VerifyTimeout,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.poll.Clock = v.clock

	logger := log.FromContext(ctx).WithName("verify")
	start := v.clock.Now()
	res := &Result{ExpectedNodes: spec.NodeCount(), Peers: []string{}}
	fail := func(err error) (*Result, error) {
		res.Duration = v.clock.Since(start).Round(time.Millisecond).String()
		return res, &VerificationError{Expected: res.ExpectedNodes, Observed: res.ObservedNodes, Err: err}
	}

	var lastErr error
	err := v.poll.Poll(ctx, v.timeout, func(ctx context.Context) (bool, error) {
		nodes, err := source.ClusterNodes(ctx)
		if err != nil {
			// The RPC service is often not routable right after rollout.
			lastErr = err
			logger.V(1).Info("topology not available yet", "error", err.Error())
			return false, nil
		}
		lastErr = nil

		res.ObservedNodes = len(nodes)
		res.Peers = res.Peers[:0]
		for _, n := range nodes {
			res.Peers = append(res.Peers, n.Pubkey)
		}
		slices.Sort(res.Peers)

		logger.V(1).Info("gossip peers", "observed", res.ObservedNodes, "expected", res.ExpectedNodes)
		return res.ObservedNodes == res.ExpectedNodes, nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrTimeoutExceeded) && lastErr == nil {
			return fail(nil)
		}
		if lastErr != nil {
			err = fmt.Errorf("%w (last error: %v)", err, lastErr)
		}
		return fail(err)
	}

	accounts, err := source.VoteAccounts(ctx)
	if err != nil {
		return fail(err)
	}
	res.ObservedValidators = len(accounts.Current)
	res.DelinquentVoters = len(accounts.Delinquent)

	if v.pods != nil {
		ready, err := v.pods.CountReadyPods(ctx, spec.Namespace, labels.SelectorForValidators())
		if err != nil {
			return fail(fmt.Errorf("failed to count ready pods: %w", err))
		}
		res.ReadyPods = ready
		if ready != res.ExpectedNodes {
			return fail(fmt.Errorf("%d of %d validator pods ready", ready, res.ExpectedNodes))
		}
	}

	res.Duration = v.clock.Since(start).Round(time.Millisecond).String()
	logger.Info("cluster verified", "nodes", res.ObservedNodes, "voting", res.ObservedValidators, "readyPods", res.ReadyPods)
	return res, nil
}

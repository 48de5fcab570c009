package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/k8s"
	"github.com/imamik/solk8s/internal/manifest"
	"github.com/imamik/solk8s/internal/util/retry"
)

// DefaultCallTimeout bounds a single create call. Calls run detached from
// cancellation so an interrupted run never leaves a half-sent request.
const DefaultCallTimeout = 30 * time.Second

// Cluster is the part of the Kubernetes API the orchestrator uses.
type Cluster interface {
	CreateConfigMap(ctx context.Context, cm *corev1.ConfigMap) error
	CreateSecret(ctx context.Context, secret *corev1.Secret) error
	CreateService(ctx context.Context, svc *corev1.Service) error
	CreateDeployment(ctx context.Context, dep *appsv1.Deployment) error
	GetConfigMap(ctx context.Context, namespace, name string) (*corev1.ConfigMap, error)
	GetSecret(ctx context.Context, namespace, name string) (*corev1.Secret, error)
	GetService(ctx context.Context, namespace, name string) (*corev1.Service, error)
	GetDeployment(ctx context.Context, namespace, name string) (*appsv1.Deployment, error)
	NodeReadiness(ctx context.Context, namespace, node string) (k8s.NodeStatus, error)
}

// Orchestrator deploys manifest plans.
type Orchestrator struct {
	cluster          Cluster
	concurrency      int
	retry            retry.Policy
	poll             retry.Policy
	bootstrapTimeout time.Duration
	validatorTimeout time.Duration
	callTimeout      time.Duration
	observer         Observer
	metrics          *Metrics
	clock            clockwork.Clock
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency sets the number of validator workers.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithRetryPolicy sets the policy for create calls.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *Orchestrator) { o.retry = p }
}

// WithPollPolicy sets the backoff between readiness polls.
func WithPollPolicy(p retry.Policy) Option {
	return func(o *Orchestrator) { o.poll = p }
}

// WithBootstrapTimeout bounds the wait for the bootstrap validator.
func WithBootstrapTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.bootstrapTimeout = d }
}

// WithValidatorTimeout bounds the wait for each validator.
func WithValidatorTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.validatorTimeout = d }
}

// WithCallTimeout bounds each create call.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.callTimeout = d }
}

// WithObserver sets the event observer. The default logs through the logger
// in the Deploy context.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithMetrics sets the metric collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock sets the clock for timestamps, backoff and timeouts.
func WithClock(clock clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// OptionsFromSpec returns the options matching the resolved deploy params.
func OptionsFromSpec(d config.DeployParams) []Option {
	return []Option{
		WithConcurrency(d.Concurrency),
		WithRetryPolicy(retry.NewPolicy(
			retry.WithMaxRetries(d.MaxAttempts-1),
			retry.WithInitialDelay(d.RetryInitialDelay),
			retry.WithMaxDelay(d.RetryMaxDelay),
		)),
		WithPollPolicy(retry.NewPolicy(
			retry.WithInitialDelay(d.PollInterval),
			retry.WithMaxDelay(d.MaxPollInterval),
			retry.WithMultiplier(1.5),
		)),
		WithBootstrapTimeout(d.BootstrapTimeout),
		WithValidatorTimeout(d.ValidatorTimeout),
	}
}

// New creates an Orchestrator for cluster.
func New(cluster Cluster, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cluster:          cluster,
		concurrency:      config.DefaultConcurrency,
		retry:            retry.DefaultPolicy(),
		poll:             retry.NewPolicy(retry.WithInitialDelay(config.DefaultPollInterval), retry.WithMaxDelay(config.DefaultMaxPollInterval)),
		bootstrapTimeout: config.DefaultTimeouts().Bootstrap,
		validatorTimeout: config.DefaultTimeouts().Validator,
		callTimeout:      DefaultCallTimeout,
		clock:            clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.retry.Clock = o.clock
	o.poll.Clock = o.clock
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	return o
}

// Deploy creates every object of plan and waits for the nodes to become
// Ready. The returned status is never nil for a valid plan. The error is
// non-nil when the bootstrap failed or ctx was cancelled; validator
// failures are reported through the status only.
func (o *Orchestrator) Deploy(ctx context.Context, plan *manifest.Plan) (*ClusterStatus, error) {
	if plan == nil || plan.Bootstrap() == nil || plan.GenesisConfig == nil {
		return nil, fmt.Errorf("plan needs a genesis config and a bootstrap node")
	}

	observer := o.observer
	if observer == nil {
		observer = NewLogObserver(log.FromContext(ctx).WithName("orchestrator"))
	}

	r := &run{
		Orchestrator: o,
		plan:         plan,
		state:        NewDeploymentState(plan, o.clock),
		observer:     observer,
	}
	o.metrics.recordPlan(plan)

	if err := r.createGenesis(ctx); err != nil {
		return r.status(fmt.Sprintf("genesis config: %v", err)), err
	}

	if err := r.deployBootstrap(ctx); err != nil {
		return r.status(err.Error()), err
	}

	r.deployValidators(ctx)

	if err := ctx.Err(); err != nil {
		return r.status("interrupted: " + err.Error()), fmt.Errorf("deployment interrupted: %w", err)
	}
	return r.status(""), nil
}

// run is the state of one Deploy call.
type run struct {
	*Orchestrator
	plan     *manifest.Plan
	state    *DeploymentState
	observer Observer
}

func (r *run) status(reason string) *ClusterStatus {
	return buildStatus(r.state, reason)
}

func (r *run) createGenesis(ctx context.Context) error {
	start := r.clock.Now()
	logPhaseStart(r.observer, PhaseNameGenesis)

	cm := r.plan.GenesisConfig
	s := step{
		kind:   "configmap",
		name:   cm.Name,
		create: func(ctx context.Context) error { return r.cluster.CreateConfigMap(ctx, cm) },
		get: func(ctx context.Context) (metav1.Object, error) {
			return r.cluster.GetConfigMap(ctx, cm.Namespace, cm.Name)
		},
	}
	if err := r.create(ctx, PhaseNameGenesis, "", s, nil); err != nil {
		err = fmt.Errorf("failed to create genesis config: %w", err)
		logPhaseFailed(r.observer, PhaseNameGenesis, err)
		return err
	}

	logPhaseComplete(r.observer, PhaseNameGenesis, r.clock.Since(start))
	return nil
}

func (r *run) deployBootstrap(ctx context.Context) error {
	start := r.clock.Now()
	logPhaseStart(r.observer, PhaseNameBootstrap)

	if err := r.deployNode(ctx, PhaseNameBootstrap, *r.plan.Bootstrap(), r.bootstrapTimeout); err != nil {
		logPhaseFailed(r.observer, PhaseNameBootstrap, err)
		return err
	}

	logPhaseComplete(r.observer, PhaseNameBootstrap, r.clock.Since(start))
	return nil
}

// deployValidators feeds every validator to a fixed pool of workers. After
// cancellation no further node is taken, so the rest stay Pending.
func (r *run) deployValidators(ctx context.Context) {
	validators := r.plan.Validators()
	if len(validators) == 0 {
		return
	}

	start := r.clock.Now()
	logPhaseStart(r.observer, PhaseNameValidators)

	queue := make(chan manifest.NodeSpec)
	var g errgroup.Group

	g.Go(func() error {
		defer close(queue)
		for _, node := range validators {
			select {
			case <-ctx.Done():
				return nil
			case queue <- node:
			}
		}
		return nil
	})

	for range min(r.concurrency, len(validators)) {
		g.Go(func() error {
			for node := range queue {
				if ctx.Err() != nil {
					continue
				}
				// Failures are recorded in the state and must not stop siblings.
				_ = r.deployNode(ctx, PhaseNameValidators, node, r.validatorTimeout)
			}
			return nil
		})
	}
	_ = g.Wait()

	counts := r.state.Counts()
	r.observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   PhaseNameValidators,
		Message: fmt.Sprintf("completed in %v", r.clock.Since(start).Round(time.Millisecond)),
		Fields: map[string]string{
			"ready":   fmt.Sprint(counts[PhaseReady]),
			"failed":  fmt.Sprint(counts[PhaseFailed]),
			"pending": fmt.Sprint(counts[PhasePending] + counts[PhaseSubmitted]),
		},
	})
}

// deployNode submits node and waits until it is Ready. A node interrupted
// by cancellation keeps its phase; every other failure marks it Failed.
func (r *run) deployNode(ctx context.Context, phase string, node manifest.NodeSpec, timeout time.Duration) error {
	if err := r.transition(phase, node.Name, PhaseSubmitted, ""); err != nil {
		return err
	}
	submitted := r.clock.Now()
	budget := &failureBudget{left: r.retry.Attempts()}

	if err := r.submit(ctx, phase, node, budget); err != nil {
		attempts := 0
		if ns, ok := r.state.Get(node.Name); ok {
			attempts = ns.Attempts
		}
		nodeErr := &NodeDeploymentError{Node: node.Name, Attempts: attempts, Err: err}
		if ctx.Err() == nil {
			_ = r.transition(phase, node.Name, PhaseFailed, nodeErr.Error())
		}
		return nodeErr
	}

	if err := r.awaitReady(ctx, node, timeout, budget); err != nil {
		if ctx.Err() == nil {
			_ = r.transition(phase, node.Name, PhaseFailed, err.Error())
		}
		return err
	}

	if err := r.transition(phase, node.Name, PhaseReady, ""); err != nil {
		return err
	}
	r.metrics.recordReady(node.Role, r.clock.Since(submitted).Seconds())
	return nil
}

// submit creates the objects of node in dependency order.
func (r *run) submit(ctx context.Context, phase string, node manifest.NodeSpec, budget *failureBudget) error {
	ns := r.plan.Namespace
	steps := []step{
		{
			kind:   "secret",
			name:   node.Secret.Name,
			create: func(ctx context.Context) error { return r.cluster.CreateSecret(ctx, node.Secret) },
			get: func(ctx context.Context) (metav1.Object, error) {
				return r.cluster.GetSecret(ctx, ns, node.Secret.Name)
			},
		},
		{
			kind:   "service",
			name:   node.Service.Name,
			create: func(ctx context.Context) error { return r.cluster.CreateService(ctx, node.Service) },
			get: func(ctx context.Context) (metav1.Object, error) {
				return r.cluster.GetService(ctx, ns, node.Service.Name)
			},
		},
		{
			kind:   "deployment",
			name:   node.Deployment.Name,
			create: func(ctx context.Context) error { return r.cluster.CreateDeployment(ctx, node.Deployment) },
			get: func(ctx context.Context) (metav1.Object, error) {
				return r.cluster.GetDeployment(ctx, ns, node.Deployment.Name)
			},
		},
	}
	for _, s := range steps {
		if err := r.create(ctx, phase, node.Name, s, budget); err != nil {
			return fmt.Errorf("create %s %s: %w", s.kind, s.name, err)
		}
	}
	return nil
}

// step is one object to create and the lookup used when it already exists.
type step struct {
	kind   string
	name   string
	create func(context.Context) error
	get    func(context.Context) (metav1.Object, error)
}

// failureBudget caps the failed API calls of one node across all of its
// creates and readiness checks. A nil budget never runs out.
type failureBudget struct {
	left int
}

// spend records a failed call and reports whether another one is allowed.
func (b *failureBudget) spend() bool {
	if b == nil {
		return true
	}
	b.left--
	return b.left > 0
}

// create runs one create call under the retry policy. Existing objects are
// adopted when they come from the plan's genesis artifact.
func (r *run) create(ctx context.Context, phase, node string, s step, budget *failureBudget) error {
	attempt := 0
	return r.retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		if node != "" {
			r.state.RecordAttempt(node)
		}

		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.callTimeout)
		defer cancel()
		err := s.create(callCtx)

		class := k8s.Classify(err)
		r.metrics.recordAPICall(s.kind, resultLabel(class))
		if class == k8s.ClassAlreadyExists {
			if err = r.adopt(callCtx, s); err == nil {
				logResourceExists(r.observer, phase, node, s.kind, s.name)
			}
		}

		err = k8s.Retryable(err)
		if err == nil || retry.IsFatal(err) {
			return err
		}
		if !budget.spend() {
			return retry.Fatal(err)
		}
		if attempt < r.retry.Attempts() {
			logAPIRetry(r.observer, phase, node, "create "+s.kind, attempt, err)
		}
		return err
	})
}

// adopt accepts an existing object only if it carries the plan's genesis
// artifact annotation.
func (r *run) adopt(ctx context.Context, s step) error {
	obj, err := s.get(ctx)
	if apierrors.IsNotFound(err) {
		// Deleted since the create call; create it again.
		return &k8s.TransientAPIError{Class: k8s.ClassConflict, Err: err}
	}
	if err != nil {
		return err
	}

	existing := obj.GetAnnotations()[manifest.AnnotationGenesisArtifact]
	if existing != r.plan.ArtifactID {
		return retry.Fatal(&GenesisMismatchError{Kind: s.kind, Name: s.name, Existing: existing, Planned: r.plan.ArtifactID})
	}
	return nil
}

type nodeFailedError struct {
	reason string
}

func (e *nodeFailedError) Error() string {
	return e.reason
}

// awaitReady polls the node until it is Ready, fails or the timeout passes.
// Transient readiness errors draw on the node's failure budget.
func (r *run) awaitReady(ctx context.Context, node manifest.NodeSpec, timeout time.Duration, budget *failureBudget) error {
	last := ""
	err := r.poll.Poll(ctx, timeout, func(ctx context.Context) (bool, error) {
		st, err := r.cluster.NodeReadiness(ctx, r.plan.Namespace, node.Name)
		if err != nil {
			if ctx.Err() == nil && k8s.Classify(err).Retryable() {
				last = err.Error()
				if budget.spend() {
					return false, nil
				}
				return false, fmt.Errorf("readiness check failed too often: %w", err)
			}
			return false, err
		}
		if st.Failed {
			return false, &nodeFailedError{reason: st.Reason}
		}
		last = st.Message
		return st.Ready, nil
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, retry.ErrTimeoutExceeded) {
		if node.IsBootstrap() {
			return &BootstrapTimeoutError{Node: node.Name, Timeout: timeout, Last: last}
		}
		return &NodeDeploymentError{Node: node.Name, Err: fmt.Errorf("not ready within %v: %s", timeout, last)}
	}
	return &NodeDeploymentError{Node: node.Name, Err: err}
}

func (r *run) transition(phase, node string, to Phase, reason string) error {
	t, err := r.state.Transition(node, to, reason)
	if err != nil {
		return err
	}
	r.metrics.recordTransition(t)
	logTransition(r.observer, phase, t)
	return nil
}

func resultLabel(class k8s.ErrorClass) string {
	if class == k8s.ClassNone {
		return "success"
	}
	return class.String()
}

// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command definitions
// in the commands package. Handlers are framework-agnostic and can be tested
// independently of the CLI framework.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/genesis"
	"github.com/imamik/solk8s/internal/k8s"
	"github.com/imamik/solk8s/internal/manifest"
	"github.com/imamik/solk8s/internal/orchestration"
	"github.com/imamik/solk8s/internal/report"
	"github.com/imamik/solk8s/internal/util/prerequisites"
	"github.com/imamik/solk8s/internal/verify"
)

// Cluster is the Kubernetes API surface the handlers need.
type Cluster interface {
	orchestration.Cluster
	verify.PodCounter
	verify.ServiceProxy
	NamespaceExists(ctx context.Context, namespace string) (bool, error)
}

// GenesisBuilder builds the shared genesis of a spec.
type GenesisBuilder interface {
	Build(ctx context.Context, spec *config.ClusterSpec) (*genesis.Bundle, error)
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// newCluster creates the Kubernetes client.
	newCluster = func(kubeconfig, kubeContext string, qps float64, burst int) (Cluster, error) {
		return k8s.NewFromKubeconfig(kubeconfig, kubeContext, k8s.WithRateLimit(qps, burst))
	}

	// newGenesisBuilder creates the genesis builder for a work directory.
	newGenesisBuilder = func(workDir string) GenesisBuilder {
		return genesis.NewBuilder(workDir, genesis.ExecRunner{})
	}

	// checkGenesisPrereqs checks that the Solana CLI tools are installed.
	checkGenesisPrereqs = prerequisites.CheckGenesis

	// newS3Sink creates the S3 report sink.
	newS3Sink = func(ctx context.Context, opts report.S3Options) (report.Sink, error) {
		return report.NewS3Sink(ctx, opts)
	}

	// stdout receives the rendered output.
	stdout io.Writer = os.Stdout
)

// ErrNotConverged is returned when the deployment finished without every node
// Ready.
var ErrNotConverged = errors.New("cluster did not converge")

// DeployOptions are the inputs of Deploy.
type DeployOptions struct {
	Params config.Params

	Kubeconfig string
	Context    string
	WorkDir    string

	SkipVerify  bool
	RPCURL      string
	MetricsAddr string
	Output      string

	ReportFile string
	ReportS3   report.S3Options
}

// Deploy runs the full pipeline: resolve the parameters, build the genesis,
// build the manifests, deploy them and verify the result.
//
// Every parameter is validated and the namespace is checked before anything
// is written, so a ConfigError never leaves state behind. The returned error
// is nil only when every node is Ready and verification passed or was skipped.
func Deploy(ctx context.Context, opts DeployOptions) error {
	logger := log.FromContext(ctx).WithName("deploy")

	spec, err := config.ResolveWithTimeouts(opts.Params, config.LoadTimeouts())
	if err != nil {
		return err
	}
	if err := validateOutput(opts.Output); err != nil {
		return err
	}

	cluster, err := newCluster(opts.Kubeconfig, opts.Context, spec.Deploy.APIQPS, spec.Deploy.APIBurst)
	if err != nil {
		return err
	}
	if err := checkNamespace(ctx, cluster, spec.Namespace); err != nil {
		return err
	}

	if err := checkGenesisPrereqs().Error(); err != nil {
		return err
	}

	rep := report.New(spec.Namespace, nil)
	logger.Info("deploying cluster", "run", rep.RunID, "namespace", spec.Namespace, "validators", spec.ValidatorCount)

	bundle, err := newGenesisBuilder(opts.WorkDir).Build(ctx, spec)
	if err != nil {
		return err
	}
	rep.SetGenesis(bundle.ArtifactID, bundle.GenesisHash, bundle.ShredVersion)
	logger.Info("genesis ready", "hash", bundle.GenesisHash, "shredVersion", bundle.ShredVersion)

	plan, err := manifest.Build(spec, bundle)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	if opts.MetricsAddr != "" {
		stop, err := serveMetrics(ctx, opts.MetricsAddr, reg)
		if err != nil {
			return err
		}
		defer stop()
	}

	orch := orchestration.New(cluster, append(orchestration.OptionsFromSpec(spec.Deploy),
		orchestration.WithMetrics(orchestration.NewMetrics(reg)))...)
	status, deployErr := orch.Deploy(ctx, plan)

	var verifyErr error
	switch {
	case status == nil || !status.Converged():
	case opts.SkipVerify:
		rep.SetVerification(nil, nil)
	default:
		var res *verify.Result
		res, verifyErr = runVerify(ctx, spec, cluster, opts.RPCURL)
		rep.SetVerification(res, verifyErr)
	}
	rep.Finish(status, deployErr)

	if err := writeReport(ctx, rep, opts); err != nil {
		logger.Error(err, "failed to persist report")
	}
	if err := printReport(stdout, rep, opts.Output); err != nil {
		return err
	}

	switch {
	case deployErr != nil:
		return deployErr
	case status == nil || !status.Converged():
		return fmt.Errorf("%w: %s", ErrNotConverged, status)
	case verifyErr != nil:
		return verifyErr
	}
	return nil
}

func checkNamespace(ctx context.Context, cluster Cluster, namespace string) error {
	exists, err := cluster.NamespaceExists(ctx, namespace)
	if err != nil {
		return err
	}
	if !exists {
		return &config.Error{Field: "namespace", Value: namespace, Reason: "namespace does not exist"}
	}
	return nil
}

func runVerify(ctx context.Context, spec *config.ClusterSpec, cluster Cluster, rpcURL string) (*verify.Result, error) {
	var (
		source *verify.RPCSource
		err    error
	)
	if rpcURL != "" {
		source, err = verify.DialRPC(ctx, rpcURL, nil)
	} else {
		source, err = verify.DialBootstrapProxy(ctx, cluster, spec.Namespace)
	}
	if err != nil {
		return nil, &verify.VerificationError{Expected: spec.NodeCount(), Err: err}
	}
	defer source.Close()

	return verify.Verify(ctx, spec, source, verify.WithPodCounter(cluster))
}

func writeReport(ctx context.Context, rep *report.Report, opts DeployOptions) error {
	var sinks report.MultiSink
	if opts.ReportFile != "" {
		sinks = append(sinks, report.FileSink{Path: opts.ReportFile})
	}
	if opts.ReportS3.Bucket != "" {
		sink, err := newS3Sink(ctx, opts.ReportS3)
		if err != nil {
			return err
		}
		sinks = append(sinks, sink)
	}
	if len(sinks) == 0 {
		return nil
	}
	// Persist the report even when the run was interrupted.
	return sinks.Write(context.WithoutCancel(ctx), rep)
}

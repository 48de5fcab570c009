package handlers

import (
	"context"
	"time"

	"github.com/imamik/solk8s/internal/config"
	"github.com/imamik/solk8s/internal/report"
)

// VerifyOptions are the inputs of Verify.
type VerifyOptions struct {
	Namespace      string
	ValidatorCount int
	Kubeconfig     string
	Context        string
	RPCURL         string
	Timeout        time.Duration
	Output         string
}

// Verify runs only the convergence check against an existing cluster.
func Verify(ctx context.Context, opts VerifyOptions) error {
	if err := config.ValidateNamespace(opts.Namespace); err != nil {
		return err
	}
	if opts.ValidatorCount < 0 {
		return &config.Error{Field: "num-validators", Value: opts.ValidatorCount, Reason: "cannot be negative"}
	}
	if err := validateOutput(opts.Output); err != nil {
		return err
	}

	spec := &config.ClusterSpec{
		Namespace:      opts.Namespace,
		ValidatorCount: opts.ValidatorCount,
		Deploy: config.DeployParams{
			VerifyTimeout: opts.Timeout,
			APIQPS:        config.DefaultAPIQPS,
			APIBurst:      config.DefaultAPIBurst,
		},
	}
	if spec.Deploy.VerifyTimeout <= 0 {
		spec.Deploy.VerifyTimeout = config.LoadTimeouts().Verify
	}

	cluster, err := newCluster(opts.Kubeconfig, opts.Context, spec.Deploy.APIQPS, spec.Deploy.APIBurst)
	if err != nil {
		return err
	}

	rep := report.New(spec.Namespace, nil)
	res, verifyErr := runVerify(ctx, spec, cluster, opts.RPCURL)
	rep.SetVerification(res, verifyErr)
	rep.Finish(nil, nil)

	if err := printVerification(stdout, rep, opts.Output); err != nil {
		return err
	}
	return verifyErr
}

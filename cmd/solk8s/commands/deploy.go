package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/solk8s/cmd/solk8s/handlers"
)

// Deploy returns the command that deploys a validator cluster.
func Deploy() *cobra.Command {
	var (
		cluster clusterFlags
		kube    kubeFlags
		opts    handlers.DeployOptions
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a validator cluster into a namespace",
		Long: `Deploy a Solana validator test cluster into an existing namespace.

The genesis is built locally with solana-keygen and solana-genesis, and then
stored in the cluster as a ConfigMap. The bootstrap validator is deployed first
and the other validators join once it is ready. Objects that already exist are
adopted, so a failed run can simply be repeated. Nothing is removed on failure.

The exit code is zero only when every validator is ready and, unless
--skip-verify is given, the bootstrap validator sees all of them in gossip.

Examples:
  # Five validators from one image
  solk8s deploy -n solana --num-validators 5 \
    --bootstrap-image ghcr.io/acme/solana:v1.18 \
    --validator-image ghcr.io/acme/solana:v1.18

  # Same, configured through the environment
  SOLK8S_NAMESPACE=solana SOLK8S_NUM_VALIDATORS=5 solk8s deploy ...`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Params = cluster.Params(cmd.Flags())
			opts.WorkDir = cluster.workDir
			opts.Kubeconfig = kube.kubeconfig
			opts.Context = kube.context
			return handlers.Deploy(cmd.Context(), opts)
		},
	}

	cluster.register(cmd)
	kube.register(cmd)

	fs := cmd.Flags()
	fs.IntVar(&cluster.params.Concurrency, "concurrency", 0, "Validators deployed in parallel (default 8)")
	fs.IntVar(&cluster.params.MaxAttempts, "max-attempts", 0, "API attempts per object before a node fails (default 5)")
	durationFlag(cmd, &cluster.params.BootstrapTimeout, "bootstrap-timeout", "Maximum wait for the bootstrap validator (default 10m)")
	durationFlag(cmd, &cluster.params.ValidatorTimeout, "validator-timeout", "Maximum wait for each validator (default 10m)")
	durationFlag(cmd, &cluster.params.VerifyTimeout, "verify-timeout", "Maximum wait for the gossip check (default 3m)")
	fs.BoolVar(&opts.SkipVerify, "skip-verify", false, "Skip the gossip convergence check")
	fs.StringVar(&opts.RPCURL, "rpc-url", "", "Bootstrap RPC URL for verification (default: API-server service proxy)")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	fs.StringVarP(&opts.Output, "output", "o", handlers.OutputText, "Output format: text or json")

	fs.StringVar(&opts.ReportFile, "report-file", "", "Write the run report as JSON to this file")
	fs.StringVar(&opts.ReportS3.Bucket, "report-s3-bucket", "", "Upload the run report to this bucket")
	fs.StringVar(&opts.ReportS3.Prefix, "report-s3-prefix", "solk8s", "Object key prefix of uploaded reports")
	fs.StringVar(&opts.ReportS3.Endpoint, "report-s3-endpoint", "", "S3-compatible endpoint URL (default: AWS)")
	fs.StringVar(&opts.ReportS3.Region, "report-s3-region", "", "Bucket region")
	fs.StringVar(&opts.ReportS3.AccessKey, "report-s3-access-key", "", "Access key (default: AWS credential chain)")
	fs.StringVar(&opts.ReportS3.SecretKey, "report-s3-secret-key", "", "Secret key (default: AWS credential chain)")
	fs.BoolVar(&opts.ReportS3.UsePathStyle, "report-s3-path-style", false, "Use path-style bucket addressing")
	fs.BoolVar(&opts.ReportS3.CreateBucket, "report-s3-create-bucket", false, "Create the bucket if it does not exist")

	return cmd
}

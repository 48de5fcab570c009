package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/solk8s/cmd/solk8s/handlers"
)

// Verify returns the command that checks an existing cluster.
func Verify() *cobra.Command {
	var (
		kube kubeFlags
		opts handlers.VerifyOptions
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that a deployed cluster formed",
		Long: `Ask the bootstrap validator for its gossip peers and vote accounts and
compare them, together with the number of ready pods, against the expected
node count.

Examples:
  solk8s verify -n solana --num-validators 5
  solk8s verify -n solana --num-validators 5 --rpc-url http://localhost:8899`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.Kubeconfig = kube.kubeconfig
			opts.Context = kube.context
			return handlers.Verify(cmd.Context(), opts)
		},
	}

	kube.register(cmd)

	fs := cmd.Flags()
	fs.StringVarP(&opts.Namespace, "namespace", "n", "default", "Namespace of the cluster")
	fs.IntVar(&opts.ValidatorCount, "num-validators", 1, "Number of validators besides the bootstrap validator")
	fs.StringVar(&opts.RPCURL, "rpc-url", "", "Bootstrap RPC URL (default: API-server service proxy)")
	durationFlag(cmd, &opts.Timeout, "verify-timeout", "Maximum wait for convergence (default 3m)")
	fs.StringVarP(&opts.Output, "output", "o", handlers.OutputText, "Output format: text or json")

	return cmd
}

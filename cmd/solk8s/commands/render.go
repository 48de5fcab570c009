package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/solk8s/cmd/solk8s/handlers"
)

// Render returns the command that prints the manifests of a deployment.
func Render() *cobra.Command {
	var (
		cluster clusterFlags
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Build the genesis and print the Kubernetes manifests",
		Long: `Build the genesis and print every Kubernetes object a deploy would
create, as a multi-document YAML stream. The cluster is not contacted.

Examples:
  solk8s render -n solana --num-validators 3 \
    --bootstrap-image ghcr.io/acme/solana:v1.18 \
    --validator-image ghcr.io/acme/solana:v1.18 > cluster.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Render(cmd.Context(), handlers.RenderOptions{
				Params:  cluster.Params(cmd.Flags()),
				WorkDir: cluster.workDir,
				OutPath: outPath,
			})
		},
	}

	cluster.register(cmd)
	cmd.Flags().StringVarP(&outPath, "out", "f", "", "Write the manifests to this file instead of stdout")

	return cmd
}

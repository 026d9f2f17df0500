package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/expense-tracker/expense-infra-go/internal/config"
	"github.com/expense-tracker/expense-infra-go/internal/graph"
	"github.com/expense-tracker/expense-infra-go/internal/params"
)

func newGraphCmd(root *rootOptions) *cobra.Command {
	var (
		outputFormat  string
		clusterByType bool
		stackName     string
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate a dependency graph of the stacks",
		Long: `Generate a DOT or Mermaid graph of resource dependencies.

Blue edges are GetAtt references, dashed edges are explicit DependsOn, and in
whole-app mode dotted edges link each published SSM parameter to the stack
that reads it.

The output can be rendered with Graphviz:
    expense-infra graph | dot -Tpng -o deps.png

Examples:
    expense-infra graph
    expense-infra graph -c                                  # cluster by service
    expense-infra graph -f mermaid --stack ExpenseTrackerNetworkStack`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFormat != string(graph.FormatDOT) && outputFormat != string(graph.FormatMermaid) {
				return fmt.Errorf("unknown format: %s", outputFormat)
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			stacks, err := root.synthesize(cmd.Context(), cfg, stackName)
			if err != nil {
				return err
			}

			gen := &graph.Generator{
				Format:           graph.Format(outputFormat),
				ClusterByService: clusterByType,
				Readers:          parameterReaders(cfg),
			}
			return gen.Generate(stacks, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&clusterByType, "cluster", "c", false, "Cluster resources by AWS service")
	cmd.Flags().StringVar(&stackName, "stack", "", "Graph a single stack")

	return cmd
}

// parameterReaders lists the parameters the service stack resolves.
func parameterReaders(cfg config.Config) map[string][]string {
	readers := map[string][]string{
		string(params.VpcID): {cfg.App.ServiceStack},
	}
	for i := 0; i < cfg.Services.PrivateSubnets; i++ {
		readers[string(params.PrivateSubnet(i))] = []string{cfg.App.ServiceStack}
	}
	return readers
}

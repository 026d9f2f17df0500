package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/expense-tracker/expense-infra-go/internal/app"
	"github.com/expense-tracker/expense-infra-go/internal/engine"
)

func newSimulateCmd(root *rootOptions) *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Apply both stacks to an in-memory engine",
		Long: `Simulate applies the network stack to an in-memory engine, synthesizes the
service stack against the parameters that apply published, and applies it too.
No AWS credentials are needed.

Examples:
    expense-infra simulate
    expense-infra simulate --region eu-west-1 -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			sim, err := app.Simulate(cmd.Context(), cfg, root.log())
			if err != nil {
				return err
			}
			return outputSimulation(cmd.OutOrStdout(), sim, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func outputSimulation(w io.Writer, sim *app.Simulation, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(struct {
			Network    *engine.Result    `json:"network"`
			Services   *engine.Result    `json:"services"`
			Parameters map[string]string `json:"parameters"`
		}{sim.Network, sim.Services, parameterValues(sim)}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "STACK\tRESOURCE\tTYPE\tPHYSICAL ID")
		for _, result := range []*engine.Result{sim.Network, sim.Services} {
			for _, r := range result.Resources {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", result.Stack, r.LogicalID, r.Type, r.PhysicalID)
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		values := parameterValues(sim)
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "\nParameters:")
		for _, name := range names {
			fmt.Fprintf(w, "  %s = %s\n", name, values[name])
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

func parameterValues(sim *app.Simulation) map[string]string {
	values := make(map[string]string)
	for name, value := range sim.Params.Snapshot() {
		values[string(name)] = value
	}
	return values
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
)

func newListCmd(root *rootOptions) *cobra.Command {
	var (
		outputFormat string
		stackName    string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List declared resources in deployment order",
		Long: `List synthesizes the stacks and prints each resource in deployment order.

Examples:
    expense-infra list
    expense-infra list --stack ExpenseTrackerNetworkStack --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			stacks, err := root.synthesize(cmd.Context(), cfg, stackName)
			if err != nil {
				return err
			}
			return outputList(cmd.OutOrStdout(), listResources(stacks), outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVar(&stackName, "stack", "", "List a single stack")

	return cmd
}

func listResources(stacks []*stack.Synthesized) expenseinfra.ListResult {
	result := expenseinfra.ListResult{Resources: []expenseinfra.ListResource{}}
	for _, s := range stacks {
		for _, name := range s.Order {
			result.Resources = append(result.Resources, expenseinfra.ListResource{
				Stack: s.Name,
				Name:  name,
				Type:  s.Template.Resources[name].Type,
			})
		}
	}
	return result
}

func outputList(w io.Writer, result expenseinfra.ListResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(w, "No resources found.")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "STACK\tNAME\tTYPE")
		for _, r := range result.Resources {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Stack, r.Name, r.Type)
		}
		return tw.Flush()

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

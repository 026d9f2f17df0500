package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/optimizer"
)

func newOptimizeCmd(root *rootOptions) *cobra.Command {
	var (
		outputFormat string
		category     string
		stackName    string
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Suggest security, cost, and reliability improvements",
		Long: `Optimize synthesizes the stacks and reports improvement suggestions.

Categories: all, security, cost, performance, reliability

Examples:
    expense-infra optimize
    expense-infra optimize --category security -f json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch category {
			case "all", "security", "cost", "performance", "reliability":
			default:
				return fmt.Errorf("unknown category: %s", category)
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			stacks, err := root.synthesize(cmd.Context(), cfg, stackName)
			if err != nil {
				return err
			}
			result := optimizer.Optimize(stacks, optimizer.Options{Category: category})
			return outputOptimize(cmd.OutOrStdout(), result, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVar(&category, "category", "all", "Suggestion category")
	cmd.Flags().StringVar(&stackName, "stack", "", "Optimize a single stack")

	return cmd
}

func outputOptimize(w io.Writer, result *expenseinfra.OptimizeResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))

	case "text":
		if len(result.Suggestions) == 0 {
			fmt.Fprintln(w, "No suggestions.")
			return nil
		}
		for _, s := range result.Suggestions {
			fmt.Fprintf(w, "[%s] %s %s/%s: %s\n", s.Severity, s.Rule, s.Stack, s.Resource, s.Title)
			fmt.Fprintf(w, "    %s\n", s.Suggestion)
		}
		fmt.Fprintf(w, "\n%d suggestions (%d security, %d cost, %d performance, %d reliability)\n",
			result.Summary.Total, result.Summary.Security, result.Summary.Cost,
			result.Summary.Performance, result.Summary.Reliability)

	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

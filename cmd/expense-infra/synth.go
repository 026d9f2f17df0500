package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/config"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
	"github.com/expense-tracker/expense-infra-go/internal/template"
)

type synthOptions struct {
	output    string
	format    string
	stackName string
}

func newSynthCmd(root *rootOptions) *cobra.Command {
	opts := synthOptions{}

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize CloudFormation templates",
		Long: `Synth declares both stacks and writes the cloud assembly: one template per
stack plus manifest.json.

The service stack resolves the network stack's published parameters through
SSM (cached in the context file), so synthesizing it needs AWS credentials
the first time.

Examples:
    expense-infra synth
    expense-infra synth -o build --format yaml
    expense-infra synth --stack ExpenseTrackerNetworkStack -o -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			stacks, err := root.synthesize(cmd.Context(), cfg, opts.stackName)
			if err != nil {
				return err
			}
			return writeSynth(cmd.OutOrStdout(), cfg, stacks, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `Assembly directory (default: app.output); "-" prints to stdout`)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "Template format: json or yaml")
	cmd.Flags().StringVar(&opts.stackName, "stack", "", "Synthesize a single stack")

	return cmd
}

func writeSynth(w io.Writer, cfg config.Config, stacks []*stack.Synthesized, opts synthOptions) error {
	if opts.format != "json" && opts.format != "yaml" {
		return fmt.Errorf("unknown format: %s", opts.format)
	}

	if opts.output == "-" {
		return printTemplates(w, stacks, opts.format)
	}

	dir := opts.output
	if dir == "" {
		dir = cfg.App.Output
	}
	manifest, err := stack.WriteAssembly(dir, opts.format, stacks)
	if err != nil {
		return err
	}
	for _, s := range manifest.Stacks {
		fmt.Fprintf(w, "%s: %d resources -> %s\n", s.Name, s.Resources, s.TemplateFile)
	}
	return nil
}

// printTemplates writes a SynthResult as JSON, or the templates as a YAML
// stream.
func printTemplates(w io.Writer, stacks []*stack.Synthesized, format string) error {
	if format == "yaml" {
		for i, s := range stacks {
			data, err := template.ToYAML(s.Template)
			if err != nil {
				return err
			}
			if i > 0 {
				fmt.Fprintln(w, "---")
			}
			fmt.Fprintf(w, "# %s\n%s", s.Name, data)
		}
		return nil
	}

	result := expenseinfra.SynthResult{Success: true}
	for _, s := range stacks {
		result.Stacks = append(result.Stacks, expenseinfra.StackResult{
			Name:      s.Name,
			Template:  *s.Template,
			Order:     s.Order,
			DependsOn: s.DependsOn,
		})
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

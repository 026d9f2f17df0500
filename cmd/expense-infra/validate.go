package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/config"
	"github.com/expense-tracker/expense-infra-go/internal/schema"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
	"github.com/expense-tracker/expense-infra-go/internal/validation"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	var (
		outputFormat string
		stackName    string
		opts         validateOptions
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the synthesized stacks",
		Long: `Validate synthesizes the stacks and checks them:

    network stack   one NAT gateway per zone, same-zone private routes,
                    public routes through the internet gateway after attachment
    service stack   security group opens exactly the service ports to the VPC
    all stacks      properties match the resource schemas
    --cfn-lint      runs cfn-lint on each template

Examples:
    expense-infra validate
    expense-infra validate --stack ExpenseTrackerNetworkStack --cfn-lint -f json`,
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

			if stackName != cfg.App.NetworkStack {
				r, err := root.resolver(cfg, true)
				if err != nil {
					return err
				}
				network, err := r.Network(cmd.Context(), cfg.Services.PrivateSubnets)
				if err != nil {
					return err
				}
				opts.cidr = network.CIDR
			}

			result, err := validateStacks(cfg, stacks, opts)
			if err != nil {
				return err
			}
			if err := outputValidate(cmd.OutOrStdout(), result, outputFormat); err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVar(&stackName, "stack", "", "Validate a single stack")
	cmd.Flags().BoolVar(&opts.cfnLint, "cfn-lint", false, "Also run cfn-lint on each template")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Warn about properties missing from the resource schemas")

	return cmd
}

type validateOptions struct {
	// cidr is the VPC CIDR the service stack's security group must be scoped to.
	cidr    string
	cfnLint bool
	strict  bool
}

// validateStacks runs the schema and structural checks and, optionally,
// cfn-lint.
func validateStacks(cfg config.Config, stacks []*stack.Synthesized, opts validateOptions) (expenseinfra.ValidateResult, error) {
	result := expenseinfra.ValidateResult{}
	for _, s := range stacks {
		result.Resources += len(s.Template.Resources)

		checked, err := schema.ValidateTemplate(s.Template, schema.Options{Strict: opts.strict})
		if err != nil {
			return result, fmt.Errorf("%s: %w", s.Name, err)
		}
		for _, e := range checked.Errors {
			result.Errors = append(result.Errors, s.Name+": "+e.String())
		}
		for _, w := range checked.Warnings {
			result.Warnings = append(result.Warnings, s.Name+": "+w.String())
		}

		var problems []string
		switch s.Name {
		case cfg.App.NetworkStack:
			problems = validation.CheckNetwork(s.Template, cfg.Network.Zones)
		case cfg.App.ServiceStack:
			problems = validation.CheckSecurityGroup(s.Template, opts.cidr, cfg.Services.IngressPorts())
		}
		for _, p := range problems {
			result.Errors = append(result.Errors, s.Name+": "+p)
		}
	}

	if opts.cfnLint {
		for _, s := range stacks {
			report, err := validation.LintStack(s)
			if err != nil {
				return result, err
			}
			for _, f := range report.Findings {
				switch f.Level {
				case validation.LevelError:
					result.Errors = append(result.Errors, f.String())
				case validation.LevelWarning:
					result.Warnings = append(result.Warnings, f.String())
				}
			}
		}
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

func outputValidate(w io.Writer, result expenseinfra.ValidateResult, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
	case "text":
		for _, e := range result.Errors {
			fmt.Fprintf(w, "error: %s\n", e)
		}
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "warning: %s\n", warn)
		}
		if result.Success {
			fmt.Fprintf(w, "OK: %d resources\n", result.Resources)
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
	return nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go/service/cloudformation"
	"github.com/spf13/cobra"

	"github.com/expense-tracker/expense-infra-go/internal/app"
	"github.com/expense-tracker/expense-infra-go/internal/config"
	"github.com/expense-tracker/expense-infra-go/internal/deploy"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
	"github.com/expense-tracker/expense-infra-go/internal/waiter"
)

func newDeployCmd(root *rootOptions) *cobra.Command {
	var (
		networkOnly bool
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the network stack, then the service stack",
		Long: `Deploy creates or updates the network stack and waits for it to settle.
It then synthesizes the service stack against the parameters the network
stack just published and deploys it.

Failures are reported with CloudFormation's status reason unchanged; nothing is
retried.

Examples:
    expense-infra deploy
    expense-infra deploy --profile prod --network-only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return runDeploy(cmd.Context(), cmd.OutOrStdout(), root, cfg, networkOnly, timeout)
		},
	}

	cmd.Flags().BoolVar(&networkOnly, "network-only", false, "Deploy only the network stack")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Maximum time to wait for each stack")

	return cmd
}

func runDeploy(ctx context.Context, w io.Writer, root *rootOptions, cfg config.Config, networkOnly bool, timeout time.Duration) error {
	sess, err := root.session(cfg)
	if err != nil {
		return err
	}
	wt := waiter.NewDefaultWaiter()
	wt.Timeout = timeout
	deployer := deploy.New(cloudformation.New(sess), wt, root.log())

	networkStack, _, err := app.SynthesizeNetwork(cfg)
	if err != nil {
		return err
	}
	if err := deployStack(ctx, w, deployer, networkStack); err != nil {
		return err
	}
	if networkOnly {
		return nil
	}

	// The network stack may have replaced resources, so cached lookups are stale.
	root.clearContext = true
	resolver, err := root.resolver(cfg, true)
	if err != nil {
		return err
	}
	serviceStack, _, err := app.SynthesizeServices(ctx, cfg, resolver)
	if err != nil {
		return err
	}
	serviceStack.AddDependency(networkStack)
	if err := resolver.Cache.Save(); err != nil {
		return err
	}
	return deployStack(ctx, w, deployer, serviceStack)
}

func deployStack(ctx context.Context, w io.Writer, deployer *deploy.Deployer, s *stack.Stack) error {
	synth, err := s.Synth()
	if err != nil {
		return err
	}
	outcome, err := deployer.Deploy(ctx, synth.Name, synth.Template)
	if err != nil {
		return err
	}

	if outcome.NoChanges {
		fmt.Fprintf(w, "%s: no changes\n", outcome.Stack)
	} else {
		fmt.Fprintf(w, "%s: %s\n", outcome.Stack, outcome.Status)
	}
	keys := make([]string, 0, len(outcome.Outputs))
	for k := range outcome.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s = %s\n", k, outcome.Outputs[k])
	}
	return nil
}

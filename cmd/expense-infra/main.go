// Command expense-infra synthesizes and deploys the expense tracker's AWS
// infrastructure.
//
// Usage:
//
//	expense-infra synth -o cdk.out       Write the cloud assembly
//	expense-infra simulate               Apply both stacks in memory
//	expense-infra deploy                 Deploy the network, then the services
//	expense-infra version                Show version
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "expense-infra",
		Short: "Synthesize and deploy the expense tracker infrastructure",
		Long: `expense-infra declares the expense tracker's AWS infrastructure as two
CloudFormation stacks:

    ExpenseTrackerNetworkStack   VPC, subnets, NAT and internet gateways
    ExpenseServiceStack          MySQL, Zookeeper, and Kafka on Fargate behind an internal NLB

The network stack publishes its IDs to SSM Parameter Store; the service stack
reads them back at synthesis time.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(opts.logLevel)
			if err != nil {
				return err
			}
			opts.logger = logrus.New()
			opts.logger.SetOutput(os.Stderr)
			opts.logger.SetLevel(level)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "Configuration file (default: expense.yaml if present)")
	flags.StringVar(&opts.region, "region", "", "AWS region (overrides the configuration)")
	flags.StringVar(&opts.profile, "profile", "", "AWS shared config profile")
	flags.StringVar(&opts.contextFile, "context", "", "Lookup cache file (default: expense.context.json)")
	flags.BoolVar(&opts.clearContext, "clear-context", false, "Discard cached lookups before resolving")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newSynthCmd(opts),
		newListCmd(opts),
		newGraphCmd(opts),
		newValidateCmd(opts),
		newDiffCmd(),
		newOptimizeCmd(opts),
		newSimulateCmd(opts),
		newDeployCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "expense-infra %s\n", getVersion())
		},
	}
}

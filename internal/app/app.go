// Package app assembles the expense tracker stacks from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/expense-tracker/expense-infra-go/internal/config"
	"github.com/expense-tracker/expense-infra-go/internal/network"
	"github.com/expense-tracker/expense-infra-go/internal/services"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
)

// SynthesizeNetwork declares the network stack.
func SynthesizeNetwork(cfg config.Config) (*stack.Stack, *network.Network, error) {
	s := stack.New(cfg.App.NetworkStack)
	s.SetDescription("Expense tracker VPC and published network parameters")

	n, err := network.Build(s, cfg.Network)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", cfg.App.NetworkStack, err)
	}
	return s, n, nil
}

// SynthesizeServices declares the service stack. The network stack's
// parameters must already be published for resolver to succeed.
func SynthesizeServices(ctx context.Context, cfg config.Config, resolver services.NetworkResolver) (*stack.Stack, *services.Services, error) {
	s := stack.New(cfg.App.ServiceStack)
	s.SetDescription("Expense tracker data services behind an internal network load balancer")

	svc, err := services.Build(ctx, s, cfg.Services, resolver)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", cfg.App.ServiceStack, err)
	}
	return s, svc, nil
}

// Synthesize declares both stacks: network first, then services.
func Synthesize(ctx context.Context, cfg config.Config, resolver services.NetworkResolver) (*stack.App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	networkStack, _, err := SynthesizeNetwork(cfg)
	if err != nil {
		return nil, err
	}
	serviceStack, _, err := SynthesizeServices(ctx, cfg, resolver)
	if err != nil {
		return nil, err
	}
	serviceStack.AddDependency(networkStack)

	a := stack.NewApp()
	if err := a.Add(networkStack); err != nil {
		return nil, err
	}
	if err := a.Add(serviceStack); err != nil {
		return nil, err
	}
	return a, nil
}

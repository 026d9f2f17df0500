package app

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/expense-tracker/expense-infra-go/internal/config"
	"github.com/expense-tracker/expense-infra-go/internal/engine"
	"github.com/expense-tracker/expense-infra-go/internal/lookup"
	"github.com/expense-tracker/expense-infra-go/internal/params"
)

// Simulation is the outcome of applying both stacks to the in-memory engine.
type Simulation struct {
	Network  *engine.Result
	Services *engine.Result
	Params   *params.MemoryStore
}

// Simulate synthesizes and applies the network stack, then synthesizes the
// service stack against the parameters that apply published, and applies it.
func Simulate(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := params.NewMemoryStore()
	vpcs := lookup.NewStaticVpcs()
	eng := engine.New(store, vpcs, logger)
	if cfg.App.Region != "" {
		eng.Region = cfg.App.Region
	}

	networkStack, _, err := SynthesizeNetwork(cfg)
	if err != nil {
		return nil, err
	}
	networkSynth, err := networkStack.Synth()
	if err != nil {
		return nil, err
	}
	networkResult, err := eng.Apply(ctx, networkSynth.Name, networkSynth.Template, networkSynth.Order)
	if err != nil {
		return nil, err
	}

	resolver := &lookup.Resolver{Params: store, Vpcs: vpcs, Logger: logger}
	serviceStack, _, err := SynthesizeServices(ctx, cfg, resolver)
	if err != nil {
		return nil, err
	}
	serviceSynth, err := serviceStack.Synth()
	if err != nil {
		return nil, err
	}
	serviceResult, err := eng.Apply(ctx, serviceSynth.Name, serviceSynth.Template, serviceSynth.Order)
	if err != nil {
		return nil, err
	}

	return &Simulation{Network: networkResult, Services: serviceResult, Params: store}, nil
}

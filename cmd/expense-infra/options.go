package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/sirupsen/logrus"

	"github.com/expense-tracker/expense-infra-go/internal/app"
	"github.com/expense-tracker/expense-infra-go/internal/config"
	"github.com/expense-tracker/expense-infra-go/internal/lookup"
	"github.com/expense-tracker/expense-infra-go/internal/params"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configFile   string
	region       string
	profile      string
	contextFile  string
	clearContext bool
	logLevel     string

	logger *logrus.Logger
}

func (o *rootOptions) log() *logrus.Logger {
	if o.logger == nil {
		o.logger = logrus.New()
	}
	return o.logger
}

// loadConfig reads the configuration file and applies flag overrides.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return cfg, err
	}
	if o.region != "" {
		cfg.App.Region = o.region
	}
	if o.profile != "" {
		cfg.App.Profile = o.profile
	}
	if o.contextFile != "" {
		cfg.App.Context = o.contextFile
	}
	return cfg, cfg.Validate()
}

// session opens an AWS session for the configured region and profile.
func (o *rootOptions) session(cfg config.Config) (*session.Session, error) {
	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            aws.Config{Region: aws.String(cfg.App.Region)},
		Profile:           cfg.App.Profile,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("creating AWS session: %w", err)
	}
	return sess, nil
}

// resolver builds a lookup resolver backed by SSM and EC2. When useCache is
// set, lookups go through the context file.
func (o *rootOptions) resolver(cfg config.Config, useCache bool) (*lookup.Resolver, error) {
	sess, err := o.session(cfg)
	if err != nil {
		return nil, err
	}

	r := &lookup.Resolver{
		Params: params.NewSSMStore(ssm.New(sess)),
		Vpcs:   lookup.NewEC2VpcLookup(ec2.New(sess)),
		Logger: o.log(),
	}
	if !useCache {
		return r, nil
	}

	cache, err := lookup.LoadCache(cfg.App.Context)
	if err != nil {
		return nil, err
	}
	if o.clearContext {
		cache.Clear()
	}
	r.Cache = cache
	return r, nil
}

// synthesize declares and synthesizes the requested stacks. Only the
// service stack needs lookups, so synthesizing just the network stack works
// without AWS credentials.
func (o *rootOptions) synthesize(ctx context.Context, cfg config.Config, only string) ([]*stack.Synthesized, error) {
	if only != "" && only != cfg.App.NetworkStack && only != cfg.App.ServiceStack {
		return nil, fmt.Errorf("unknown stack %q (have %s, %s)", only, cfg.App.NetworkStack, cfg.App.ServiceStack)
	}

	if only == cfg.App.NetworkStack {
		s, _, err := app.SynthesizeNetwork(cfg)
		if err != nil {
			return nil, err
		}
		synth, err := s.Synth()
		if err != nil {
			return nil, err
		}
		return []*stack.Synthesized{synth}, nil
	}

	r, err := o.resolver(cfg, true)
	if err != nil {
		return nil, err
	}

	a, err := app.Synthesize(ctx, cfg, r)
	if err != nil {
		return nil, err
	}
	stacks, err := a.Synth()
	if err != nil {
		return nil, err
	}
	if err := r.Cache.Save(); err != nil {
		return nil, err
	}

	if only == "" {
		return stacks, nil
	}
	for _, s := range stacks {
		if s.Name == only {
			return []*stack.Synthesized{s}, nil
		}
	}
	return nil, fmt.Errorf("stack %q was not synthesized", only)
}

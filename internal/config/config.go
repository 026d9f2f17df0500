// Package config loads the expense-infra YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/expense-tracker/expense-infra-go/internal/lookup"
	"github.com/expense-tracker/expense-infra-go/internal/network"
	"github.com/expense-tracker/expense-infra-go/internal/services"
)

// DefaultFile is the configuration file read when --config is not given.
const DefaultFile = "expense.yaml"

// App holds settings that apply to the whole program.
type App struct {
	NetworkStack string `yaml:"networkStack"`
	ServiceStack string `yaml:"serviceStack"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile,omitempty"`
	Output       string `yaml:"output"`
	Context      string `yaml:"context"`
}

// Config is the full configuration file.
type Config struct {
	App      App             `yaml:"app"`
	Network  network.Config  `yaml:"network"`
	Services services.Config `yaml:"services"`
}

// Default reproduces the original expense tracker deployment.
func Default() Config {
	return Config{
		App: App{
			NetworkStack: "ExpenseTrackerNetworkStack",
			ServiceStack: "ExpenseServiceStack",
			Region:       "us-east-1",
			Output:       "cdk.out",
			Context:      lookup.DefaultCacheFile,
		},
		Network:  network.DefaultConfig(),
		Services: services.DefaultConfig(),
	}
}

// Load reads path and overlays it on Default. A missing file at the default
// location yields the defaults; a missing explicit path is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultFile
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, rejecting unknown keys.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if c.App.NetworkStack == "" || c.App.ServiceStack == "" {
		return errors.New("app: stack names are required")
	}
	if c.App.NetworkStack == c.App.ServiceStack {
		return errors.New("app: network and service stacks need different names")
	}
	if _, err := network.Plan(c.Network); err != nil {
		return fmt.Errorf("network: %w", err)
	}
	if err := c.Services.Validate(); err != nil {
		return fmt.Errorf("services: %w", err)
	}
	if c.Services.PrivateSubnets > c.Network.Zones {
		return fmt.Errorf("services: privateSubnets (%d) exceeds network zones (%d)",
			c.Services.PrivateSubnets, c.Network.Zones)
	}
	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

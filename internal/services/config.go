// Package services declares the data tier of the expense tracker: a MySQL
// database, a Zookeeper ensemble, and a Kafka broker running on Fargate
// behind an internal network load balancer.
package services

import (
	"errors"
	"fmt"
	"strings"
)

// LoadBalancerDNSToken in an environment value is replaced with the service
// load balancer's DNS name.
const LoadBalancerDNSToken = "${NLB_DNS}"

// EnvVar is a container environment variable.
type EnvVar struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// Workload describes one containerized component.
type Workload struct {
	// Name prefixes the workload's logical IDs (MySQL, Zookeeper, Kafka).
	Name            string   `yaml:"name"`
	ContainerName   string   `yaml:"containerName"`
	Image           string   `yaml:"image"`
	Cpu             int      `yaml:"cpu"`
	Memory          int      `yaml:"memory"`
	Port            int      `yaml:"port"`
	DesiredCount    int      `yaml:"desiredCount"`
	Environment     []EnvVar `yaml:"environment"`
	LogStreamPrefix string   `yaml:"logStreamPrefix"`
	// IngressDescription labels the security group rule for Port.
	IngressDescription string `yaml:"ingressDescription"`
	// LoadBalanced workloads get a target group and listener on Port.
	LoadBalanced bool `yaml:"loadBalanced"`
	// CloudMapName registers the workload in the private namespace.
	CloudMapName string `yaml:"cloudMapName,omitempty"`
}

// Config is the service stack configuration.
type Config struct {
	Namespace        string   `yaml:"namespace"`
	PrivateSubnets   int      `yaml:"privateSubnets"`
	LogMode          string   `yaml:"logMode"`
	LogBufferSize    string   `yaml:"logBufferSize"`
	LogRetentionDays int      `yaml:"logRetentionDays,omitempty"`
	Database         Workload `yaml:"database"`
	Coordination     Workload `yaml:"coordination"`
	Broker           Workload `yaml:"broker"`
}

// DefaultConfig reproduces the original expense tracker services.
func DefaultConfig() Config {
	return Config{
		Namespace:      "local",
		PrivateSubnets: 2,
		LogMode:        "non-blocking",
		LogBufferSize:  "25m",
		Database: Workload{
			Name:          "MySQL",
			ContainerName: "mysql",
			Image:         "mysql:8.3.0",
			Cpu:           256,
			Memory:        512,
			Port:          3306,
			DesiredCount:  1,
			Environment: []EnvVar{
				{Name: "MYSQL_ROOT_PASSWORD", Value: "password"},
				{Name: "MYSQL_USER", Value: "user"},
				{Name: "MYSQL_PASSWORD", Value: "password"},
				{Name: "MYSQL_ROOT_USER", Value: "root"},
			},
			LogStreamPrefix:    "MySql",
			IngressDescription: "Allow MySQL traffic",
			LoadBalanced:       true,
		},
		Coordination: Workload{
			Name:          "Zookeeper",
			ContainerName: "zookeeper",
			Image:         "confluentinc/cp-zookeeper:7.4.4",
			Cpu:           256,
			Memory:        512,
			Port:          2181,
			DesiredCount:  3,
			Environment: []EnvVar{
				{Name: "ZOOKEEPER_CLIENT_PORT", Value: "2181"},
				{Name: "ZOOKEEPER_TICK_TIME", Value: "2000"},
			},
			LogStreamPrefix:    "Zookeeper",
			IngressDescription: "Allow Kafka to access Zookeeper",
			CloudMapName:       "zookeeper-service",
		},
		Broker: Workload{
			Name:          "Kafka",
			ContainerName: "kafka",
			Image:         "confluentinc/cp-kafka:7.4.4",
			Cpu:           512,
			Memory:        1024,
			Port:          9092,
			DesiredCount:  3,
			Environment: []EnvVar{
				{Name: "KAFKA_BROKER_ID", Value: "1"},
				{Name: "KAFKA_ZOOKEEPER_CONNECT", Value: "zookeeper-service.local:2181"},
				{Name: "KAFKA_ADVERTISED_LISTENERS", Value: "PLAINTEXT://" + LoadBalancerDNSToken + ":9092"},
				{Name: "KAFKA_LISTENERS", Value: "PLAINTEXT://:9092"},
				{Name: "KAFKA_LISTENER_SECURITY_PROTOCOL_MAP", Value: "PLAINTEXT:PLAINTEXT"},
				{Name: "KAFKA_INTER_BROKER_LISTENER_NAME", Value: "PLAINTEXT"},
				{Name: "KAFKA_OFFSETS_TOPIC_REPLICATION_FACTOR", Value: "3"},
			},
			LogStreamPrefix:    "Kafka",
			IngressDescription: "Allow Kafka traffic",
			LoadBalanced:       true,
		},
	}
}

// Workloads returns the workloads in declaration order.
func (c Config) Workloads() []Workload {
	return []Workload{c.Database, c.Coordination, c.Broker}
}

// IngressPorts returns the ports opened to the VPC, in rule order.
func (c Config) IngressPorts() []int {
	return []int{c.Database.Port, c.Broker.Port, c.Coordination.Port}
}

var validLogModes = map[string]bool{"blocking": true, "non-blocking": true}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []string
	if c.Namespace == "" {
		errs = append(errs, "namespace is required")
	}
	if c.PrivateSubnets < 1 {
		errs = append(errs, "privateSubnets must be at least 1")
	}
	if !validLogModes[c.LogMode] {
		errs = append(errs, fmt.Sprintf("unknown log mode %q", c.LogMode))
	}

	seen := make(map[string]bool)
	for _, w := range c.Workloads() {
		switch {
		case w.Name == "" || w.ContainerName == "" || w.Image == "":
			errs = append(errs, fmt.Sprintf("workload %q needs name, containerName, and image", w.Name))
		case w.Cpu <= 0 || w.Memory <= 0:
			errs = append(errs, fmt.Sprintf("workload %s: cpu and memory must be positive", w.Name))
		case w.Port <= 0 || w.Port > 65535:
			errs = append(errs, fmt.Sprintf("workload %s: invalid port %d", w.Name, w.Port))
		case w.DesiredCount < 1:
			errs = append(errs, fmt.Sprintf("workload %s: desiredCount must be at least 1", w.Name))
		}
		if seen[w.Name] {
			errs = append(errs, fmt.Sprintf("duplicate workload name %s", w.Name))
		}
		seen[w.Name] = true
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

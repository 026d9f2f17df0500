package optimizer

import (
	"fmt"
	"strings"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
)

// resourceRules maps a CloudFormation type to the rules that inspect it.
var resourceRules = map[string][]Rule{
	"AWS::ECS::TaskDefinition":                  taskDefinitionRules,
	"AWS::ECS::Service":                         serviceRules,
	"AWS::Logs::LogGroup":                       logGroupRules,
	"AWS::ElasticLoadBalancingV2::LoadBalancer": loadBalancerRules,
}

var secretMarkers = []string{"PASSWORD", "SECRET", "TOKEN", "PRIVATE_KEY"}

var taskDefinitionRules = []Rule{
	{
		ID:       "OPT-ECS-001",
		Category: "security",
		Title:    "Container secrets should not be plaintext environment variables",
		Check: func(res expenseinfra.DeclaredResource) []expenseinfra.OptimizeSuggestion {
			var out []expenseinfra.OptimizeSuggestion
			for _, container := range list(res.Properties["ContainerDefinitions"]) {
				for _, env := range list(container["Environment"]) {
					name, _ := env["Name"].(string)
					if !looksSecret(name) {
						continue
					}
					out = append(out, expenseinfra.OptimizeSuggestion{
						Severity:    "high",
						Title:       fmt.Sprintf("%s is a plaintext environment variable", name),
						Description: fmt.Sprintf("Container %v passes %s in the task definition, where anyone who can describe tasks can read it.", container["Name"], name),
						Suggestion:  "Store the value in Secrets Manager or SSM SecureString and reference it from the container's Secrets.",
					})
				}
			}
			return out
		},
	},
	{
		ID:       "OPT-ECS-002",
		Category: "reliability",
		Title:    "Containers should log to CloudWatch",
		Check: func(res expenseinfra.DeclaredResource) []expenseinfra.OptimizeSuggestion {
			var out []expenseinfra.OptimizeSuggestion
			for _, container := range list(res.Properties["ContainerDefinitions"]) {
				if _, ok := container["LogConfiguration"]; ok {
					continue
				}
				out = append(out, expenseinfra.OptimizeSuggestion{
					Severity:    "medium",
					Title:       fmt.Sprintf("Container %v has no log configuration", container["Name"]),
					Description: "Without a log driver, container output is lost when the task stops.",
					Suggestion:  "Add an awslogs LogConfiguration pointing at a log group.",
				})
			}
			return out
		},
	},
}

var serviceRules = []Rule{
	{
		ID:       "OPT-ECS-003",
		Category: "reliability",
		Title:    "Services should run more than one task",
		Check: func(res expenseinfra.DeclaredResource) []expenseinfra.OptimizeSuggestion {
			count, ok := toInt(res.Properties["DesiredCount"])
			if !ok || count > 1 {
				return nil
			}
			return []expenseinfra.OptimizeSuggestion{{
				Severity:    "medium",
				Title:       "Service runs a single task",
				Description: "A single task is a single point of failure; a stopped task leaves the service unavailable until ECS replaces it.",
				Suggestion:  "Raise DesiredCount, or move stateful workloads to a managed service with failover.",
			}}
		},
	},
	{
		ID:       "OPT-ECS-004",
		Category: "security",
		Title:    "Tasks in private subnets should not request public IPs",
		Check: func(res expenseinfra.DeclaredResource) []expenseinfra.OptimizeSuggestion {
			network, _ := res.Properties["NetworkConfiguration"].(map[string]any)
			awsvpc, _ := network["AwsvpcConfiguration"].(map[string]any)
			if awsvpc["AssignPublicIp"] != "ENABLED" {
				return nil
			}
			return []expenseinfra.OptimizeSuggestion{{
				Severity:    "medium",
				Title:       "Service assigns public IPs",
				Description: "Tasks receive public addresses even though they are reached through the internal load balancer.",
				Suggestion:  "Set AssignPublicIp to DISABLED and reach the internet through the NAT gateways.",
			}}
		},
	},
}

var logGroupRules = []Rule{
	{
		ID:       "OPT-LOG-001",
		Category: "cost",
		Title:    "Log groups should expire old events",
		Check: func(res expenseinfra.DeclaredResource) []expenseinfra.OptimizeSuggestion {
			if _, ok := res.Properties["RetentionInDays"]; ok {
				return nil
			}
			return []expenseinfra.OptimizeSuggestion{{
				Severity:    "low",
				Title:       "Log group retains events forever",
				Description: "CloudWatch Logs bills stored data; without a retention period it grows without bound.",
				Suggestion:  "Set RetentionInDays (services.logRetentionDays in expense.yaml).",
			}}
		},
	},
}

var loadBalancerRules = []Rule{
	{
		ID:       "OPT-ELB-001",
		Category: "security",
		Title:    "Database load balancers should be internal",
		Check: func(res expenseinfra.DeclaredResource) []expenseinfra.OptimizeSuggestion {
			if res.Properties["Scheme"] == "internal" {
				return nil
			}
			return []expenseinfra.OptimizeSuggestion{{
				Severity:    "high",
				Title:       "Load balancer is internet-facing",
				Description: "The load balancer fronts the database and broker ports.",
				Suggestion:  "Set Scheme to internal.",
			}}
		},
	},
}

// stackRules inspect a stack as a whole.
var stackRules = []Rule{
	{
		ID:       "OPT-NET-001",
		Category: "cost",
		Title:    "One NAT gateway per zone",
		CheckStack: func(s *stack.Synthesized) []expenseinfra.OptimizeSuggestion {
			var nats []string
			for _, res := range s.Resources {
				if res.Type == "AWS::EC2::NatGateway" {
					nats = append(nats, res.Name)
				}
			}
			if len(nats) < 2 {
				return nil
			}
			return []expenseinfra.OptimizeSuggestion{{
				Resource:    nats[0],
				Category:    "cost",
				Severity:    "low",
				Title:       fmt.Sprintf("%d NAT gateways are billed hourly", len(nats)),
				Description: "Each zone has its own NAT gateway, which keeps private subnets online when a zone fails.",
				Suggestion:  "For non-production environments, set network.zones to 1.",
			}}
		},
	},
}

func looksSecret(name string) bool {
	upper := strings.ToUpper(name)
	for _, marker := range secretMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}

// list returns the map elements of a serialized property list.
func list(v any) []map[string]any {
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

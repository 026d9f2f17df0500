// Package template builds CloudFormation templates from declared resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
)

// resourceTypePattern is the AWS::Service::Type shape of a CloudFormation type.
var resourceTypePattern = regexp.MustCompile(`^AWS::[A-Za-z0-9]+::[A-Za-z0-9]+$`)

// Builder constructs CloudFormation templates from declared resources.
type Builder struct {
	resources   map[string]expenseinfra.DeclaredResource
	outputs     map[string]expenseinfra.Output
	description string
}

// NewBuilder creates a template builder from declared resources.
func NewBuilder(resources []expenseinfra.DeclaredResource) *Builder {
	b := &Builder{
		resources: make(map[string]expenseinfra.DeclaredResource, len(resources)),
		outputs:   make(map[string]expenseinfra.Output),
	}
	for _, res := range resources {
		b.resources[res.Name] = res
	}
	return b
}

// SetDescription sets the template description.
func (b *Builder) SetDescription(description string) {
	b.description = description
}

// AddOutput declares a template output.
func (b *Builder) AddOutput(name string, output expenseinfra.Output) {
	b.outputs[name] = output
}

// Build constructs the CloudFormation template and returns it together with
// the order in which the resources must be created.
func (b *Builder) Build() (*expenseinfra.Template, []string, error) {
	order, err := b.Order()
	if err != nil {
		return nil, nil, err
	}

	template := &expenseinfra.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              b.description,
		Resources:                make(map[string]expenseinfra.ResourceDef, len(order)),
	}

	for _, name := range order {
		res := b.resources[name]
		if !resourceTypePattern.MatchString(res.Type) {
			return nil, nil, fmt.Errorf("unknown resource type for %s: %q", name, res.Type)
		}

		var dependsOn []string
		if len(res.DependsOn) > 0 {
			dependsOn = append(dependsOn, res.DependsOn...)
		}

		template.Resources[name] = expenseinfra.ResourceDef{
			Type:       res.Type,
			Properties: res.Properties,
			DependsOn:  dependsOn,
		}
	}

	if len(b.outputs) > 0 {
		template.Outputs = make(map[string]expenseinfra.Output, len(b.outputs))
		for name, output := range b.outputs {
			template.Outputs[name] = output
		}
	}

	return template, order, nil
}

// Order returns the resources in dependency order. Ties are broken
// alphabetically so the order is stable across runs.
func (b *Builder) Order() ([]string, error) {
	return b.topologicalSort()
}

func (b *Builder) topologicalSort() ([]string, error) {
	// Build adjacency list
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range b.resources {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, res := range b.resources {
		for _, dep := range res.AllDependencies() {
			if _, exists := b.resources[dep]; exists {
				graph[dep] = append(graph[dep], name)
				inDegree[name]++
			}
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(b.resources) {
		return nil, b.detectCycle()
	}

	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func (b *Builder) detectCycle() error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	names := make([]string, 0, len(b.resources))
	for name := range b.resources {
		names = append(names, name)
	}
	sort.Strings(names)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range b.resources[node].AllDependencies() {
			if _, exists := b.resources[dep]; !exists {
				continue
			}
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) == 0 {
		return errors.New("circular dependency detected")
	}

	var msg strings.Builder
	msg.WriteString("circular dependency detected:\n")
	for i, name := range cycle {
		fmt.Fprintf(&msg, "  %s (%s)", name, b.resources[name].Type)
		if i < len(cycle)-1 {
			msg.WriteString("\n    → ")
		}
	}
	return errors.New(msg.String())
}

// ToJSON serializes a template to indented JSON.
func ToJSON(t *expenseinfra.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes a template to YAML.
func ToYAML(t *expenseinfra.Template) ([]byte, error) {
	return yaml.Marshal(t)
}

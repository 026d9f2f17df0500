// Package graph generates DOT and Mermaid dependency graphs from synthesized stacks.
package graph

import (
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from synthesized stacks.
type Generator struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByService groups resources by AWS service.
	ClusterByService bool

	// Readers maps a published parameter name to the stacks that read it.
	// Each pair becomes a dotted cross-stack edge.
	Readers map[string][]string
}

// Generate creates a dependency graph and writes it to w.
func (g *Generator) Generate(stacks []*stack.Synthesized, w io.Writer) error {
	graph := g.buildGraph(stacks)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(stacks []*stack.Synthesized) (string, error) {
	var sb strings.Builder
	if err := g.Generate(stacks, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(stacks []*stack.Synthesized) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	multi := len(stacks) > 1
	nodes := make(map[string]map[string]dot.Node, len(stacks))
	for _, s := range stacks {
		parent := graph
		if multi {
			parent = graph.Subgraph(s.Name, dot.ClusterOption{})
			parent.Attr("label", s.Name)
		}
		nodes[s.Name] = g.addStack(graph, parent, s, multi)
	}

	if multi {
		g.addCrossStackEdges(graph, stacks, nodes)
	}
	return graph
}

// addStack adds one stack's nodes to parent and its edges to root.
func (g *Generator) addStack(root, parent *dot.Graph, s *stack.Synthesized, qualify bool) map[string]dot.Node {
	id := func(name string) string {
		if qualify {
			return s.Name + "/" + name
		}
		return name
	}

	declared := make(map[string]bool, len(s.Resources))
	for _, res := range s.Resources {
		declared[res.Name] = true
	}

	nodes := make(map[string]dot.Node, len(s.Resources))
	clusters := map[string]*dot.Graph{}
	for _, name := range sortedNames(s.Resources) {
		res := findResource(s.Resources, name)
		target := parent
		if g.ClusterByService && countService(s.Resources, service(res.Type)) > 1 {
			svc := service(res.Type)
			cluster, ok := clusters[svc]
			if !ok {
				cluster = parent.Subgraph("cluster_"+s.Name+"_"+svc, dot.ClusterOption{})
				cluster.Attr("label", svc)
				cluster.Attr("style", "rounded")
				cluster.Attr("bgcolor", "lightyellow")
				clusters[svc] = cluster
			}
			target = cluster
		}
		n := target.Node(id(name))
		n.Label(name + "\\n[" + res.Type + "]")
		nodes[name] = n
	}

	for _, name := range sortedNames(s.Resources) {
		res := findResource(s.Resources, name)
		attrs := getAttTargets(res.Properties)
		explicit := make(map[string]bool, len(res.DependsOn))
		for _, dep := range res.DependsOn {
			explicit[dep] = true
		}

		for _, dep := range res.AllDependencies() {
			if !declared[dep] {
				continue
			}
			e := root.Edge(nodes[name], nodes[dep])
			switch {
			case attrs[dep]:
				e.Attr("color", "blue")
			case explicit[dep]:
				e.Attr("style", "dashed")
			}
		}
	}
	return nodes
}

// addCrossStackEdges links each SSM parameter resource to the stacks that
// read its value.
func (g *Generator) addCrossStackEdges(graph *dot.Graph, stacks []*stack.Synthesized, nodes map[string]map[string]dot.Node) {
	for _, s := range stacks {
		for _, res := range s.Resources {
			if res.Type != "AWS::SSM::Parameter" {
				continue
			}
			name, ok := res.Properties["Name"].(string)
			if !ok {
				continue
			}
			for _, reader := range g.Readers[name] {
				if reader == s.Name {
					continue
				}
				to := graph.Node(reader)
				to.Attr("shape", "folder")
				e := graph.Edge(nodes[s.Name][res.Name], to, name)
				e.Attr("style", "dotted")
			}
		}
	}
}

func sortedNames(resources []expenseinfra.DeclaredResource) []string {
	names := make([]string, 0, len(resources))
	for _, res := range resources {
		names = append(names, res.Name)
	}
	sort.Strings(names)
	return names
}

func findResource(resources []expenseinfra.DeclaredResource, name string) expenseinfra.DeclaredResource {
	for _, res := range resources {
		if res.Name == name {
			return res
		}
	}
	return expenseinfra.DeclaredResource{}
}

func countService(resources []expenseinfra.DeclaredResource, svc string) int {
	n := 0
	for _, res := range resources {
		if service(res.Type) == svc {
			n++
		}
	}
	return n
}

// service extracts the AWS service name from a CloudFormation type.
// e.g., "AWS::EC2::Subnet" -> "EC2"
func service(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 {
		return parts[1]
	}
	return "Other"
}

var subAttr = regexp.MustCompile(`\$\{([^!}][^}.]*)\.[^}]+\}`)

// getAttTargets returns the logical IDs read through Fn::GetAtt or a dotted
// Fn::Sub variable.
func getAttTargets(value any) map[string]bool {
	targets := map[string]bool{}
	var walk func(any)
	walk = func(value any) {
		switch v := value.(type) {
		case map[string]any:
			if args, ok := v["Fn::GetAtt"]; ok && len(v) == 1 {
				switch a := args.(type) {
				case []any:
					if len(a) > 0 {
						if name, ok := a[0].(string); ok {
							targets[name] = true
						}
					}
				case string:
					targets[strings.SplitN(a, ".", 2)[0]] = true
				}
				return
			}
			if sub, ok := v["Fn::Sub"]; ok && len(v) == 1 {
				var s string
				switch a := sub.(type) {
				case string:
					s = a
				case []any:
					if len(a) > 0 {
						s, _ = a[0].(string)
						for _, rest := range a[1:] {
							walk(rest)
						}
					}
				}
				for _, m := range subAttr.FindAllStringSubmatch(s, -1) {
					targets[m[1]] = true
				}
				return
			}
			for _, child := range v {
				walk(child)
			}
		case []any:
			for _, child := range v {
				walk(child)
			}
		}
	}
	walk(value)
	return targets
}

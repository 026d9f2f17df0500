// Package stack declares CloudFormation resources into named stacks and
// synthesizes them into templates with an explicit deployment order.
//
// A stack is write-once: a logical ID can be declared a single time, and a
// construct cannot be changed after it is added.
//
//	s := stack.New("ExpenseTrackerNetworkStack")
//	vpc := s.Add("ExpenseTrackerVpc", ec2.VPC{CidrBlock: "10.0.0.0/16"})
//	igw := s.Add("ExpenseTrackerInternetGateway", ec2.InternetGateway{})
//	attach := s.Add("ExpenseTrackerVPCGatewayAttachment", ec2.VPCGatewayAttachment{
//		VpcId:             vpc.Ref(),
//		InternetGatewayId: igw.Ref(),
//	})
//	s.Add("PublicRouteToInternetGateway0", ec2.Route{GatewayId: igw.Ref()}, stack.DependsOn(attach))
package stack

import (
	"errors"
	"fmt"
	"regexp"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/serialize"
	"github.com/expense-tracker/expense-infra-go/internal/template"
	"github.com/expense-tracker/expense-infra-go/intrinsics"
)

var (
	// ErrDuplicateLogicalID is returned when a logical ID is declared twice.
	ErrDuplicateLogicalID = errors.New("duplicate logical ID")
	// ErrInvalidLogicalID is returned for logical IDs that are not alphanumeric.
	ErrInvalidLogicalID = errors.New("invalid logical ID")
	// ErrUnknownReference is returned when a resource or output refers to a
	// logical ID that is not declared in the same stack.
	ErrUnknownReference = errors.New("unknown reference")
)

var logicalIDPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Construct is a resource declared in a stack.
type Construct struct {
	id        string
	resource  expenseinfra.Resource
	dependsOn []string
}

// ID returns the logical ID.
func (c *Construct) ID() string { return c.id }

// Type returns the CloudFormation resource type.
func (c *Construct) Type() string { return c.resource.ResourceType() }

// Ref returns a Ref to the construct.
func (c *Construct) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: c.id}
}

// Attr returns a Fn::GetAtt reference to one of the construct's attributes.
func (c *Construct) Attr(name string) expenseinfra.AttrRef {
	return expenseinfra.AttrRef{Resource: c.id, Attribute: name}
}

// Option configures a construct when it is added.
type Option func(*Construct)

// DependsOn adds explicit ordering dependencies on other constructs.
func DependsOn(constructs ...*Construct) Option {
	return func(c *Construct) {
		for _, dep := range constructs {
			c.dependsOn = append(c.dependsOn, dep.id)
		}
	}
}

// Stack is a named set of resources deployed as one CloudFormation stack.
type Stack struct {
	name        string
	description string
	constructs  []*Construct
	byID        map[string]*Construct
	outputs     map[string]expenseinfra.Output
	dependsOn   []string
	err         error
}

// New creates an empty stack.
func New(name string) *Stack {
	return &Stack{
		name:    name,
		byID:    make(map[string]*Construct),
		outputs: make(map[string]expenseinfra.Output),
	}
}

// Name returns the stack name.
func (s *Stack) Name() string { return s.name }

// SetDescription sets the template description.
func (s *Stack) SetDescription(description string) { s.description = description }

// Err returns the first declaration error, if any.
func (s *Stack) Err() error { return s.err }

// AddDependency records that this stack must be deployed after other.
func (s *Stack) AddDependency(other *Stack) {
	s.dependsOn = append(s.dependsOn, other.name)
}

// Dependencies returns the names of stacks this stack depends on.
func (s *Stack) Dependencies() []string {
	return append([]string(nil), s.dependsOn...)
}

// Add declares a resource under a logical ID. Declaration errors are kept on
// the stack and reported by Synth; the returned construct is always usable.
func (s *Stack) Add(id string, resource expenseinfra.Resource, opts ...Option) *Construct {
	c := &Construct{id: id, resource: resource}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case !logicalIDPattern.MatchString(id):
		s.fail(fmt.Errorf("%w: %q in stack %s", ErrInvalidLogicalID, id, s.name))
		return c
	case s.byID[id] != nil:
		s.fail(fmt.Errorf("%w: %s in stack %s", ErrDuplicateLogicalID, id, s.name))
		return c
	}

	s.constructs = append(s.constructs, c)
	s.byID[id] = c
	return c
}

// Output declares a stack output.
func (s *Stack) Output(id, description string, value any) {
	if _, exists := s.outputs[id]; exists {
		s.fail(fmt.Errorf("%w: output %s in stack %s", ErrDuplicateLogicalID, id, s.name))
		return
	}
	s.outputs[id] = expenseinfra.Output{Description: description, Value: value}
}

// Lookup returns the construct declared under id.
func (s *Stack) Lookup(id string) (*Construct, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Constructs returns the declared constructs in declaration order.
func (s *Stack) Constructs() []*Construct {
	return append([]*Construct(nil), s.constructs...)
}

func (s *Stack) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Synthesized is a stack rendered to a CloudFormation template.
type Synthesized struct {
	Name      string
	Template  *expenseinfra.Template
	Order     []string
	Resources []expenseinfra.DeclaredResource
	DependsOn []string
}

// Synth serializes every resource, derives reference dependencies, and
// builds the template and deployment order.
func (s *Stack) Synth() (*Synthesized, error) {
	if s.err != nil {
		return nil, s.err
	}

	declared := make([]expenseinfra.DeclaredResource, 0, len(s.constructs))
	for _, c := range s.constructs {
		props, err := serialize.Resource(c.resource)
		if err != nil {
			return nil, fmt.Errorf("serializing %s: %w", c.id, err)
		}

		refs := serialize.References(props)
		for _, name := range append(append([]string(nil), refs...), c.dependsOn...) {
			if name == c.id {
				return nil, fmt.Errorf("%s refers to itself", c.id)
			}
			if s.byID[name] == nil {
				return nil, fmt.Errorf("%w: %s refers to %s in stack %s", ErrUnknownReference, c.id, name, s.name)
			}
		}

		declared = append(declared, expenseinfra.DeclaredResource{
			Name:         c.id,
			Type:         c.resource.ResourceType(),
			Properties:   props,
			Dependencies: refs,
			DependsOn:    c.dependsOn,
		})
	}

	builder := template.NewBuilder(declared)
	builder.SetDescription(s.description)

	for id, output := range s.outputs {
		value, err := serialize.Value(output.Value)
		if err != nil {
			return nil, fmt.Errorf("serializing output %s: %w", id, err)
		}
		for _, name := range serialize.References(value) {
			if s.byID[name] == nil {
				return nil, fmt.Errorf("%w: output %s refers to %s in stack %s", ErrUnknownReference, id, name, s.name)
			}
		}
		output.Value = value
		builder.AddOutput(id, output)
	}

	tmpl, order, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", s.name, err)
	}

	return &Synthesized{
		Name:      s.name,
		Template:  tmpl,
		Order:     order,
		Resources: declared,
		DependsOn: s.Dependencies(),
	}, nil
}

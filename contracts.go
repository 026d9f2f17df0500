// Package expenseinfra declares the expense tracker's AWS infrastructure as
// CloudFormation stacks built from native Go values.
//
// Resources are typed structs from the resources/* packages:
//
//	vpc := s.Add("ExpenseTrackerVpc", ec2.VPC{
//	    CidrBlock:        "10.0.0.0/16",
//	    EnableDnsSupport: true,
//	})
//
//	s.Add("PublicSubnet0", ec2.Subnet{
//	    VpcId:     vpc.Ref(),
//	    CidrBlock: "10.0.0.0/24",
//	})
//
// The expense-infra CLI assembles the network and service stacks and writes
// their CloudFormation templates.
package expenseinfra

import (
	"encoding/json"
)

// Resource represents a CloudFormation resource.
// All resource types (ec2.VPC, ecs.Service, etc.) implement this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::EC2::VPC")
	ResourceType() string
}

// AttrRef represents a GetAtt reference to a resource attribute.
//
// Example:
//
//	eip := s.Add("NatEIP", ec2.EIP{Domain: "vpc"})
//	s.Add("Nat", ec2.NatGateway{
//	    AllocationId: eip.Attr("AllocationId"),
//	})
//
// When serialized to CloudFormation JSON, AttrRef becomes:
//
//	{"Fn::GetAtt": ["NatEIP", "AllocationId"]}
type AttrRef struct {
	// Resource is the logical name of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "AllocationId", "DNSName")
	Attribute string
}

// MarshalJSON serializes AttrRef to CloudFormation GetAtt syntax.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string][]string{
		"Fn::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// DeclaredResource is a resource declared in a stack, after serialization.
type DeclaredResource struct {
	// Name is the logical ID
	Name string
	// Type is the CloudFormation type (e.g., "AWS::EC2::Subnet")
	Type string
	// Properties are the serialized resource properties
	Properties map[string]any
	// Dependencies are logical names referenced from Properties
	Dependencies []string
	// DependsOn are explicit ordering dependencies
	DependsOn []string
}

// AllDependencies returns reference and explicit dependencies, deduplicated.
func (r DeclaredResource) AllDependencies() []string {
	seen := make(map[string]bool, len(r.Dependencies)+len(r.DependsOn))
	var deps []string
	for _, list := range [][]string{r.Dependencies, r.DependsOn} {
		for _, d := range list {
			if !seen[d] {
				seen[d] = true
				deps = append(deps, d)
			}
		}
	}
	return deps
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Parameters               map[string]Parameter   `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
}

// Parameter is a CloudFormation template parameter.
type Parameter struct {
	Type          string   `json:"Type" yaml:"Type"`
	Description   string   `json:"Description,omitempty" yaml:"Description,omitempty"`
	Default       any      `json:"Default,omitempty" yaml:"Default,omitempty"`
	AllowedValues []string `json:"AllowedValues,omitempty" yaml:"AllowedValues,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string        `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any           `json:"Value" yaml:"Value"`
	Export      *OutputExport `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// OutputExport names a CloudFormation export.
type OutputExport struct {
	Name string `json:"Name" yaml:"Name"`
}

// SynthResult is the JSON output from `expense-infra synth --format json`
// when templates are not written to a directory.
type SynthResult struct {
	Success bool          `json:"success"`
	Stacks  []StackResult `json:"stacks,omitempty"`
	Errors  []string      `json:"errors,omitempty"`
}

// StackResult is one synthesized stack.
type StackResult struct {
	Name      string   `json:"name"`
	Template  Template `json:"template"`
	Order     []string `json:"order"`
	DependsOn []string `json:"dependsOn,omitempty"`
}

// ListResult is the JSON output from `expense-infra list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Stack string `json:"stack"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

// ValidateResult is the JSON output from `expense-infra validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// TemplateDiff lists resource-level differences between two templates.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
}

// DiffEntry is a single changed resource.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// DiffSummary counts the differences.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}

// OptimizeSuggestion is a single improvement suggested for a resource.
type OptimizeSuggestion struct {
	Rule        string `json:"rule"`
	Stack       string `json:"stack"`
	Resource    string `json:"resource"`
	Category    string `json:"category"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// OptimizeSummary counts suggestions by category.
type OptimizeSummary struct {
	Security    int `json:"security"`
	Cost        int `json:"cost"`
	Performance int `json:"performance"`
	Reliability int `json:"reliability"`
	Total       int `json:"total"`
}

// OptimizeResult is the JSON output from `expense-infra optimize`.
type OptimizeResult struct {
	Suggestions []OptimizeSuggestion `json:"suggestions"`
	Summary     OptimizeSummary      `json:"summary"`
}

// SchemaError is a schema violation in a template resource.
type SchemaError struct {
	Resource string `json:"resource"`
	Property string `json:"property"`
	Message  string `json:"message"`
}

func (e SchemaError) String() string {
	return e.Resource + "." + e.Property + ": " + e.Message
}

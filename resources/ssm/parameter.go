// Package ssm contains the AWS::SSM resource types.
package ssm

// Parameter represents AWS::SSM::Parameter.
type Parameter struct {
	Name        any `json:"Name,omitempty"`
	Type        any `json:"Type,omitempty"`
	Value       any `json:"Value,omitempty"`
	Description any `json:"Description,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Parameter) ResourceType() string { return "AWS::SSM::Parameter" }

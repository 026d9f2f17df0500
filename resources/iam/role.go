// Package iam contains the AWS::IAM resource types.
package iam

// Role represents AWS::IAM::Role.
type Role struct {
	RoleName                 any   `json:"RoleName,omitempty"`
	AssumeRolePolicyDocument any   `json:"AssumeRolePolicyDocument,omitempty"`
	ManagedPolicyArns        []any `json:"ManagedPolicyArns,omitempty"`
	Description              any   `json:"Description,omitempty"`
	Tags                     []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Role) ResourceType() string { return "AWS::IAM::Role" }

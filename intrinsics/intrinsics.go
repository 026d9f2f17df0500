// Package intrinsics provides the CloudFormation intrinsic functions used by
// the expense tracker stacks.
//
// The core types are re-exported from cloudformation-schema-go:
//
//	Ref{LogicalName: "ExpenseTrackerVpc"} → {"Ref": "ExpenseTrackerVpc"}
//	Sub{String: "PLAINTEXT://${DatabaseNLB.DNSName}:9092"} → {"Fn::Sub": "..."}
//	Select{Index: 0, List: GetAZs{}} → {"Fn::Select": [0, {"Fn::GetAZs": ""}]}
package intrinsics

import (
	"sort"

	"github.com/lex00/cloudformation-schema-go/intrinsics"
)

type (
	// Ref represents a CloudFormation Ref intrinsic function.
	Ref = intrinsics.Ref

	// GetAtt represents a CloudFormation Fn::GetAtt intrinsic function.
	GetAtt = intrinsics.GetAtt

	// Sub represents a CloudFormation Fn::Sub intrinsic function.
	Sub = intrinsics.Sub

	// Join represents a CloudFormation Fn::Join intrinsic function.
	Join = intrinsics.Join

	// Select represents a CloudFormation Fn::Select intrinsic function.
	Select = intrinsics.Select

	// GetAZs represents a CloudFormation Fn::GetAZs intrinsic function.
	GetAZs = intrinsics.GetAZs

	// Tag represents a CloudFormation resource tag.
	Tag = intrinsics.Tag
)

// AZ selects the availability zone at index from the region's zone list.
func AZ(index int) Select {
	return Select{Index: index, List: GetAZs{}}
}

// Tags converts a key/value map into a tag list sorted by key, so repeated
// synthesis produces identical templates.
func Tags(m map[string]any) []any {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tags := make([]any, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, Tag{Key: k, Value: m[k]})
	}
	return tags
}

// NameTag returns a single Name tag.
func NameTag(name any) []any {
	return []any{Tag{Key: "Name", Value: name}}
}

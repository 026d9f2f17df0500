package differ

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
)

func subnet(cidr string) expenseinfra.ResourceDef {
	return expenseinfra.ResourceDef{
		Type: "AWS::EC2::Subnet",
		Properties: map[string]any{
			"CidrBlock": cidr,
			"VpcId":     map[string]any{"Ref": "ExpenseTrackerVpc"},
		},
	}
}

func TestCompare(t *testing.T) {
	t1 := &expenseinfra.Template{
		Resources: map[string]expenseinfra.ResourceDef{
			"PublicSubnet0":  subnet("10.0.0.0/24"),
			"PublicSubnet1":  subnet("10.0.1.0/24"),
			"PrivateSubnet0": subnet("10.0.2.0/24"),
		},
	}
	t2 := &expenseinfra.Template{
		Resources: map[string]expenseinfra.ResourceDef{
			"PublicSubnet0":  subnet("10.0.0.0/24"),
			"PrivateSubnet0": subnet("10.0.16.0/20"),
			"PrivateSubnet1": subnet("10.0.32.0/20"),
		},
	}

	result, err := Compare(t1, t2, Options{})
	require.NoError(t, err)

	assert.Equal(t, []expenseinfra.DiffEntry{{Resource: "PrivateSubnet1", Type: "AWS::EC2::Subnet"}}, result.Diff.Added)
	assert.Equal(t, []expenseinfra.DiffEntry{{Resource: "PublicSubnet1", Type: "AWS::EC2::Subnet"}}, result.Diff.Removed)
	assert.Equal(t, []expenseinfra.DiffEntry{{
		Resource: "PrivateSubnet0",
		Type:     "AWS::EC2::Subnet",
		Changes:  []string{"CidrBlock modified"},
	}}, result.Diff.Modified)
	assert.Equal(t, expenseinfra.DiffSummary{Added: 1, Removed: 1, Modified: 1, Total: 3}, result.Summary)
}

func TestCompare_Identical(t *testing.T) {
	tmpl := &expenseinfra.Template{
		Resources: map[string]expenseinfra.ResourceDef{"PublicSubnet0": subnet("10.0.0.0/24")},
	}

	result, err := Compare(tmpl, tmpl, Options{})
	require.NoError(t, err)
	assert.Zero(t, result.Summary.Total)
}

func TestCompare_NestedPaths(t *testing.T) {
	def := func(port float64, sub string) expenseinfra.ResourceDef {
		return expenseinfra.ResourceDef{
			Type: "AWS::ECS::Service",
			Properties: map[string]any{
				"DeploymentConfiguration": map[string]any{"MinimumHealthyPercent": port},
				"ServiceName":             map[string]any{"Fn::Sub": sub},
			},
		}
	}
	t1 := &expenseinfra.Template{Resources: map[string]expenseinfra.ResourceDef{"KafkaService": def(50, "${AWS::StackName}-kafka")}}
	t2 := &expenseinfra.Template{Resources: map[string]expenseinfra.ResourceDef{"KafkaService": def(100, "${AWS::StackName}-broker")}}

	result, err := Compare(t1, t2, Options{})
	require.NoError(t, err)
	require.Len(t, result.Diff.Modified, 1)
	assert.Equal(t, []string{
		"DeploymentConfiguration.MinimumHealthyPercent modified",
		"ServiceName modified",
	}, result.Diff.Modified[0].Changes)
}

func TestCompare_IgnoreOrder(t *testing.T) {
	def := func(subnets ...any) expenseinfra.ResourceDef {
		return expenseinfra.ResourceDef{
			Type:       "AWS::ElasticLoadBalancingV2::LoadBalancer",
			Properties: map[string]any{"Subnets": subnets},
			DependsOn:  []string{"A", "B"},
		}
	}
	t1 := &expenseinfra.Template{Resources: map[string]expenseinfra.ResourceDef{"DatabaseNLB": def("subnet-a", "subnet-b")}}
	t2 := &expenseinfra.Template{Resources: map[string]expenseinfra.ResourceDef{"DatabaseNLB": def("subnet-b", "subnet-a")}}

	ordered, err := Compare(t1, t2, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, ordered.Summary.Modified)

	unordered, err := Compare(t1, t2, Options{IgnoreOrder: true})
	require.NoError(t, err)
	assert.Zero(t, unordered.Summary.Total)
}

func TestCompare_TypeAndDependsOn(t *testing.T) {
	t1 := &expenseinfra.Template{Resources: map[string]expenseinfra.ResourceDef{
		"Route": {Type: "AWS::EC2::Route", DependsOn: []string{"ExpenseTrackerVPCGatewayAttachment"}},
	}}
	t2 := &expenseinfra.Template{Resources: map[string]expenseinfra.ResourceDef{
		"Route": {Type: "AWS::EC2::TransitGatewayRoute"},
	}}

	result, err := Compare(t1, t2, Options{})
	require.NoError(t, err)
	require.Len(t, result.Diff.Modified, 1)
	assert.Equal(t, []string{
		"Type changed: AWS::EC2::Route → AWS::EC2::TransitGatewayRoute",
		"DependsOn changed",
	}, result.Diff.Modified[0].Changes)
}

func TestCompareFiles_JSONAgainstYAML(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "a.template.json")
	yamlPath := filepath.Join(dir, "b.template.yaml")

	require.NoError(t, os.WriteFile(jsonPath, []byte(`{
  "AWSTemplateFormatVersion": "2010-09-09",
  "Resources": {
    "DatabaseTargetGroup": {"Type": "AWS::ElasticLoadBalancingV2::TargetGroup", "Properties": {"Port": 3306, "Protocol": "TCP"}}
  }
}`), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte(`AWSTemplateFormatVersion: "2010-09-09"
Resources:
  DatabaseTargetGroup:
    Type: AWS::ElasticLoadBalancingV2::TargetGroup
    Properties:
      Port: 3306
      Protocol: TCP
`), 0o644))

	result, err := CompareFiles(jsonPath, yamlPath, Options{})
	require.NoError(t, err)
	assert.Zero(t, result.Summary.Total)
}

func TestCompareFiles_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not: [valid"), 0o644))

	_, err := CompareFiles(filepath.Join(dir, "missing.json"), bad, Options{})
	assert.ErrorContains(t, err, "missing.json")

	_, err = LoadTemplate(bad)
	assert.ErrorContains(t, err, "failed to parse as JSON or YAML")
}

func TestCompare_NilTemplate(t *testing.T) {
	_, err := Compare(nil, &expenseinfra.Template{}, Options{})
	assert.Error(t, err)
}

package intrinsics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRef_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Ref{LogicalName: "ExpenseTrackerVpc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ref": "ExpenseTrackerVpc"}`, string(data))
}

func TestSub_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(Sub{String: "PLAINTEXT://${DatabaseNLB.DNSName}:9092"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Fn::Sub": "PLAINTEXT://${DatabaseNLB.DNSName}:9092"}`, string(data))
}

func TestAZ_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(AZ(1))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Fn::Select"`)
	assert.Contains(t, string(data), `"Fn::GetAZs"`)
}

func TestTags_SortedByKey(t *testing.T) {
	tags := Tags(map[string]any{
		"Name":        "ExpenseTrackerVpc",
		"Application": "expense-tracker",
	})

	data, err := json.Marshal(tags)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"Key": "Application", "Value": "expense-tracker"},
		{"Key": "Name", "Value": "ExpenseTrackerVpc"}
	]`, string(data))
}

func TestAssumeRolePolicy(t *testing.T) {
	data, err := json.Marshal(AssumeRolePolicy("ecs-tasks.amazonaws.com"))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"Service": "ecs-tasks.amazonaws.com"},
			"Action": "sts:AssumeRole"
		}]
	}`, string(data))
}

func TestPseudoParameters(t *testing.T) {
	tests := []struct {
		name     string
		param    Ref
		expected string
	}{
		{"AWS_REGION", AWS_REGION, `{"Ref": "AWS::Region"}`},
		{"AWS_ACCOUNT_ID", AWS_ACCOUNT_ID, `{"Ref": "AWS::AccountId"}`},
		{"AWS_STACK_NAME", AWS_STACK_NAME, `{"Ref": "AWS::StackName"}`},
		{"AWS_URL_SUFFIX", AWS_URL_SUFFIX, `{"Ref": "AWS::URLSuffix"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.param)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

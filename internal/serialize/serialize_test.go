package serialize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
)

type testTaskDefinition struct {
	Family      string            `json:"Family,omitempty"`
	Cpu         string            `json:"Cpu,omitempty"`
	Tags        []testTag         `json:"Tags,omitempty"`
	Logging     *testLogging      `json:"LogConfiguration,omitempty"`
	Environment map[string]string `json:"Environment,omitempty"`
	Essential   bool              `json:"Essential,omitempty"`
	Port        int               `json:"Port,omitempty"`
}

type testTag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

type testLogging struct {
	LogDriver string `json:"LogDriver"`
}

func TestResource_SimpleStruct(t *testing.T) {
	props, err := Resource(testTaskDefinition{Family: "kafka"})
	require.NoError(t, err)

	assert.Equal(t, "kafka", props["Family"])
	assert.NotContains(t, props, "Tags")
	assert.NotContains(t, props, "LogConfiguration")
}

func TestResource_WithNestedStruct(t *testing.T) {
	props, err := Resource(testTaskDefinition{
		Family:  "kafka",
		Logging: &testLogging{LogDriver: "awslogs"},
	})
	require.NoError(t, err)

	logging := props["LogConfiguration"].(map[string]any)
	assert.Equal(t, "awslogs", logging["LogDriver"])
}

func TestResource_WithSlice(t *testing.T) {
	props, err := Resource(testTaskDefinition{
		Family: "zookeeper",
		Tags: []testTag{
			{Key: "Application", Value: "expense-tracker"},
			{Key: "Workload", Value: "zookeeper"},
		},
	})
	require.NoError(t, err)

	tags := props["Tags"].([]any)
	require.Len(t, tags, 2)

	tag0 := tags[0].(map[string]any)
	assert.Equal(t, "Application", tag0["Key"])
	assert.Equal(t, "expense-tracker", tag0["Value"])
}

func TestResource_WithMap(t *testing.T) {
	props, err := Resource(testTaskDefinition{
		Environment: map[string]string{
			"ZOOKEEPER_CLIENT_PORT": "2181",
			"ZOOKEEPER_TICK_TIME":   "2000",
		},
	})
	require.NoError(t, err)

	env := props["Environment"].(map[string]any)
	assert.Equal(t, "2181", env["ZOOKEEPER_CLIENT_PORT"])
	assert.Equal(t, "2000", env["ZOOKEEPER_TICK_TIME"])
}

func TestResource_OmitsZeroValues(t *testing.T) {
	props, err := Resource(testTaskDefinition{})
	require.NoError(t, err)
	assert.Empty(t, props)
}

func TestResource_WithPointerAndScalars(t *testing.T) {
	props, err := Resource(&testTaskDefinition{Cpu: "512", Essential: true, Port: 9092})
	require.NoError(t, err)

	assert.Equal(t, "512", props["Cpu"])
	assert.Equal(t, true, props["Essential"])
	assert.Equal(t, int64(9092), props["Port"])
}

func TestResource_HonorsMarshaler(t *testing.T) {
	type natGateway struct {
		AllocationId any `json:"AllocationId,omitempty"`
	}

	props, err := Resource(natGateway{
		AllocationId: expenseinfra.AttrRef{Resource: "ExpenseTrackerNatGateway0EIP", Attribute: "AllocationId"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"Fn::GetAtt": []any{"ExpenseTrackerNatGateway0EIP", "AllocationId"},
	}, props["AllocationId"])
}

func TestReferences(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected []string
	}{
		{
			name:     "ref",
			value:    map[string]any{"VpcId": map[string]any{"Ref": "ExpenseTrackerVpc"}},
			expected: []string{"ExpenseTrackerVpc"},
		},
		{
			name:     "pseudo parameter ignored",
			value:    map[string]any{"Region": map[string]any{"Ref": "AWS::Region"}},
			expected: []string{},
		},
		{
			name: "getatt list and dotted forms",
			value: []any{
				map[string]any{"Fn::GetAtt": []any{"ExpenseTrackerNatGateway0EIP", "AllocationId"}},
				map[string]any{"Fn::GetAtt": "DatabaseNLB.DNSName"},
			},
			expected: []string{"DatabaseNLB", "ExpenseTrackerNatGateway0EIP"},
		},
		{
			name:     "sub string",
			value:    map[string]any{"Fn::Sub": "PLAINTEXT://${DatabaseNLB.DNSName}:9092 in ${AWS::Region} ${!Literal}"},
			expected: []string{"DatabaseNLB"},
		},
		{
			name: "sub with variable map",
			value: map[string]any{"Fn::Sub": []any{
				"${Host}:${Port}",
				map[string]any{
					"Host": map[string]any{"Fn::GetAtt": []any{"DatabaseNLB", "DNSName"}},
					"Port": "9092",
				},
			}},
			expected: []string{"DatabaseNLB"},
		},
		{
			name: "nested and deduplicated",
			value: map[string]any{
				"Subnets": []any{
					map[string]any{"Ref": "PrivateSubnet1"},
					map[string]any{"Ref": "PrivateSubnet0"},
					map[string]any{"Ref": "PrivateSubnet0"},
				},
			},
			expected: []string{"PrivateSubnet0", "PrivateSubnet1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, References(tt.value))
		})
	}
}

func TestValue_Intrinsic(t *testing.T) {
	value, err := Value(expenseinfra.AttrRef{Resource: "DatabaseNLB", Attribute: "DNSName"})
	require.NoError(t, err)
	assert.Equal(t, []string{"DatabaseNLB"}, References(value))
}

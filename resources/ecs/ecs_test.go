package ecs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
)

func TestResourceTypes(t *testing.T) {
	tests := []struct {
		name     string
		resource expenseinfra.Resource
		expected string
	}{
		{"Cluster", Cluster{}, "AWS::ECS::Cluster"},
		{"TaskDefinition", TaskDefinition{}, "AWS::ECS::TaskDefinition"},
		{"Service", Service{}, "AWS::ECS::Service"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.resource.ResourceType())
		})
	}
}

func TestTaskDefinitionSerialization(t *testing.T) {
	td := TaskDefinition{
		Cpu:                     "256",
		Memory:                  "512",
		NetworkMode:             "awsvpc",
		RequiresCompatibilities: []any{"FARGATE"},
		ContainerDefinitions: []TaskDefinition_ContainerDefinition{{
			Name:      "zookeeper",
			Image:     "confluentinc/cp-zookeeper:7.4.4",
			Essential: true,
			Environment: []TaskDefinition_KeyValuePair{
				{Name: "ZOOKEEPER_CLIENT_PORT", Value: "2181"},
			},
			PortMappings: []TaskDefinition_PortMapping{{ContainerPort: 2181, Protocol: "tcp"}},
			LogConfiguration: &TaskDefinition_LogConfiguration{
				LogDriver: "awslogs",
				Options:   map[string]any{"mode": "non-blocking"},
			},
		}},
	}

	data, err := json.Marshal(td)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"Cpu": "256",
		"Memory": "512",
		"NetworkMode": "awsvpc",
		"RequiresCompatibilities": ["FARGATE"],
		"ContainerDefinitions": [{
			"Name": "zookeeper",
			"Image": "confluentinc/cp-zookeeper:7.4.4",
			"Essential": true,
			"Environment": [{"Name": "ZOOKEEPER_CLIENT_PORT", "Value": "2181"}],
			"PortMappings": [{"ContainerPort": 2181, "Protocol": "tcp"}],
			"LogConfiguration": {"LogDriver": "awslogs", "Options": {"mode": "non-blocking"}}
		}]
	}`, string(data))
}

func TestServiceSerialization(t *testing.T) {
	svc := Service{
		LaunchType:   "FARGATE",
		DesiredCount: 3,
		NetworkConfiguration: &Service_NetworkConfiguration{
			AwsvpcConfiguration: &Service_AwsVpcConfiguration{
				AssignPublicIp: "DISABLED",
				Subnets:        []any{"subnet-a", "subnet-b"},
			},
		},
	}

	data, err := json.Marshal(svc)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, float64(3), parsed["DesiredCount"])
	assert.NotContains(t, parsed, "LoadBalancers")

	awsvpc := parsed["NetworkConfiguration"].(map[string]any)["AwsvpcConfiguration"].(map[string]any)
	assert.Equal(t, "DISABLED", awsvpc["AssignPublicIp"])
	assert.Len(t, awsvpc["Subnets"], 2)
}

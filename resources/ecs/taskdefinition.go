package ecs

// TaskDefinition represents AWS::ECS::TaskDefinition.
//
// Cpu and Memory are strings in CloudFormation ("256", "512").
type TaskDefinition struct {
	Family                  any                                  `json:"Family,omitempty"`
	Cpu                     any                                  `json:"Cpu,omitempty"`
	Memory                  any                                  `json:"Memory,omitempty"`
	NetworkMode             any                                  `json:"NetworkMode,omitempty"`
	RequiresCompatibilities []any                                `json:"RequiresCompatibilities,omitempty"`
	ExecutionRoleArn        any                                  `json:"ExecutionRoleArn,omitempty"`
	TaskRoleArn             any                                  `json:"TaskRoleArn,omitempty"`
	ContainerDefinitions    []TaskDefinition_ContainerDefinition `json:"ContainerDefinitions,omitempty"`
	Tags                    []any                                `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r TaskDefinition) ResourceType() string { return "AWS::ECS::TaskDefinition" }

// TaskDefinition_ContainerDefinition describes one container of a task.
type TaskDefinition_ContainerDefinition struct {
	Name             any                              `json:"Name,omitempty"`
	Image            any                              `json:"Image,omitempty"`
	Essential        bool                             `json:"Essential,omitempty"`
	Environment      []TaskDefinition_KeyValuePair    `json:"Environment,omitempty"`
	PortMappings     []TaskDefinition_PortMapping     `json:"PortMappings,omitempty"`
	LogConfiguration *TaskDefinition_LogConfiguration `json:"LogConfiguration,omitempty"`
}

// TaskDefinition_KeyValuePair is a container environment variable.
type TaskDefinition_KeyValuePair struct {
	Name  any `json:"Name,omitempty"`
	Value any `json:"Value,omitempty"`
}

// TaskDefinition_PortMapping maps a container port.
type TaskDefinition_PortMapping struct {
	ContainerPort int `json:"ContainerPort,omitempty"`
	Protocol      any `json:"Protocol,omitempty"`
}

// TaskDefinition_LogConfiguration selects the container log driver.
type TaskDefinition_LogConfiguration struct {
	LogDriver any            `json:"LogDriver,omitempty"`
	Options   map[string]any `json:"Options,omitempty"`
}

package ecs

// Service represents AWS::ECS::Service.
type Service struct {
	Cluster                 any                              `json:"Cluster,omitempty"`
	ServiceName             any                              `json:"ServiceName,omitempty"`
	LaunchType              any                              `json:"LaunchType,omitempty"`
	TaskDefinition          any                              `json:"TaskDefinition,omitempty"`
	DesiredCount            int                              `json:"DesiredCount,omitempty"`
	DeploymentConfiguration *Service_DeploymentConfiguration `json:"DeploymentConfiguration,omitempty"`
	NetworkConfiguration    *Service_NetworkConfiguration    `json:"NetworkConfiguration,omitempty"`
	LoadBalancers           []Service_LoadBalancer           `json:"LoadBalancers,omitempty"`
	ServiceRegistries       []Service_ServiceRegistry        `json:"ServiceRegistries,omitempty"`
	Tags                    []any                            `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Service) ResourceType() string { return "AWS::ECS::Service" }

// Service_DeploymentConfiguration bounds task replacement during deploys.
type Service_DeploymentConfiguration struct {
	MaximumPercent        int `json:"MaximumPercent,omitempty"`
	MinimumHealthyPercent int `json:"MinimumHealthyPercent,omitempty"`
}

// Service_NetworkConfiguration wraps the awsvpc settings.
type Service_NetworkConfiguration struct {
	AwsvpcConfiguration *Service_AwsVpcConfiguration `json:"AwsvpcConfiguration,omitempty"`
}

// Service_AwsVpcConfiguration places tasks in subnets behind security groups.
type Service_AwsVpcConfiguration struct {
	AssignPublicIp any   `json:"AssignPublicIp,omitempty"`
	SecurityGroups []any `json:"SecurityGroups,omitempty"`
	Subnets        []any `json:"Subnets,omitempty"`
}

// Service_LoadBalancer registers a container port with a target group.
type Service_LoadBalancer struct {
	ContainerName  any `json:"ContainerName,omitempty"`
	ContainerPort  int `json:"ContainerPort,omitempty"`
	TargetGroupArn any `json:"TargetGroupArn,omitempty"`
}

// Service_ServiceRegistry registers tasks in a Cloud Map service.
type Service_ServiceRegistry struct {
	RegistryArn any `json:"RegistryArn,omitempty"`
}

// Package elasticloadbalancingv2 contains the AWS::ElasticLoadBalancingV2
// resource types for network load balancers.
package elasticloadbalancingv2

// LoadBalancer represents AWS::ElasticLoadBalancingV2::LoadBalancer.
type LoadBalancer struct {
	Name    any   `json:"Name,omitempty"`
	Scheme  any   `json:"Scheme,omitempty"`
	Type    any   `json:"Type,omitempty"`
	Subnets []any `json:"Subnets,omitempty"`
	Tags    []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r LoadBalancer) ResourceType() string {
	return "AWS::ElasticLoadBalancingV2::LoadBalancer"
}

// TargetGroup represents AWS::ElasticLoadBalancingV2::TargetGroup.
type TargetGroup struct {
	Name                any   `json:"Name,omitempty"`
	Port                int   `json:"Port,omitempty"`
	Protocol            any   `json:"Protocol,omitempty"`
	TargetType          any   `json:"TargetType,omitempty"`
	VpcId               any   `json:"VpcId,omitempty"`
	HealthCheckProtocol any   `json:"HealthCheckProtocol,omitempty"`
	Tags                []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r TargetGroup) ResourceType() string {
	return "AWS::ElasticLoadBalancingV2::TargetGroup"
}

// Listener represents AWS::ElasticLoadBalancingV2::Listener.
type Listener struct {
	LoadBalancerArn any               `json:"LoadBalancerArn,omitempty"`
	Port            int               `json:"Port,omitempty"`
	Protocol        any               `json:"Protocol,omitempty"`
	DefaultActions  []Listener_Action `json:"DefaultActions,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Listener) ResourceType() string {
	return "AWS::ElasticLoadBalancingV2::Listener"
}

// Listener_Action is a listener default action.
type Listener_Action struct {
	Type           any `json:"Type,omitempty"`
	TargetGroupArn any `json:"TargetGroupArn,omitempty"`
}

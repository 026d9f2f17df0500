// Package servicediscovery contains the AWS::ServiceDiscovery (Cloud Map)
// resource types.
package servicediscovery

// PrivateDnsNamespace represents AWS::ServiceDiscovery::PrivateDnsNamespace.
type PrivateDnsNamespace struct {
	Name        any   `json:"Name,omitempty"`
	Vpc         any   `json:"Vpc,omitempty"`
	Description any   `json:"Description,omitempty"`
	Tags        []any `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r PrivateDnsNamespace) ResourceType() string {
	return "AWS::ServiceDiscovery::PrivateDnsNamespace"
}

// Service represents AWS::ServiceDiscovery::Service.
type Service struct {
	Name                    any                              `json:"Name,omitempty"`
	NamespaceId             any                              `json:"NamespaceId,omitempty"`
	DnsConfig               *Service_DnsConfig               `json:"DnsConfig,omitempty"`
	HealthCheckCustomConfig *Service_HealthCheckCustomConfig `json:"HealthCheckCustomConfig,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Service) ResourceType() string { return "AWS::ServiceDiscovery::Service" }

// Service_DnsConfig lists the records Cloud Map creates per instance.
type Service_DnsConfig struct {
	DnsRecords    []Service_DnsRecord `json:"DnsRecords,omitempty"`
	NamespaceId   any                 `json:"NamespaceId,omitempty"`
	RoutingPolicy any                 `json:"RoutingPolicy,omitempty"`
}

// Service_DnsRecord is a single record template.
type Service_DnsRecord struct {
	Type any `json:"Type,omitempty"`
	TTL  int `json:"TTL,omitempty"`
}

// Service_HealthCheckCustomConfig delegates health to the registering service.
type Service_HealthCheckCustomConfig struct {
	FailureThreshold int `json:"FailureThreshold,omitempty"`
}

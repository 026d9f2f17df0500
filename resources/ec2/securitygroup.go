package ec2

// SecurityGroup represents AWS::EC2::SecurityGroup.
type SecurityGroup struct {
	GroupDescription     any                     `json:"GroupDescription,omitempty"`
	GroupName            any                     `json:"GroupName,omitempty"`
	VpcId                any                     `json:"VpcId,omitempty"`
	SecurityGroupIngress []SecurityGroup_Ingress `json:"SecurityGroupIngress,omitempty"`
	SecurityGroupEgress  []SecurityGroup_Egress  `json:"SecurityGroupEgress,omitempty"`
	Tags                 []any                   `json:"Tags,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r SecurityGroup) ResourceType() string { return "AWS::EC2::SecurityGroup" }

// SecurityGroup_Ingress is an inbound rule.
type SecurityGroup_Ingress struct {
	IpProtocol  any    `json:"IpProtocol,omitempty"`
	FromPort    int    `json:"FromPort,omitempty"`
	ToPort      int    `json:"ToPort,omitempty"`
	CidrIp      any    `json:"CidrIp,omitempty"`
	Description string `json:"Description,omitempty"`
}

// SecurityGroup_Egress is an outbound rule. IpProtocol "-1" means all protocols.
type SecurityGroup_Egress struct {
	IpProtocol  any    `json:"IpProtocol,omitempty"`
	FromPort    int    `json:"FromPort,omitempty"`
	ToPort      int    `json:"ToPort,omitempty"`
	CidrIp      any    `json:"CidrIp,omitempty"`
	Description string `json:"Description,omitempty"`
}

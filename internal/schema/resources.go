package schema

import (
	"fmt"
	"net/netip"
	"strconv"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
)

// property is the rule for one resource property.
type property struct {
	kind     kind
	required bool
	allowed  []string
	// check returns a message when an otherwise well-typed value is invalid.
	check func(value any) string
}

// resourceSchema holds the property rules of one resource type. check
// covers rules that span several properties.
type resourceSchema struct {
	properties map[string]property
	check      func(props map[string]any) []expenseinfra.SchemaError
}

var (
	str     = property{kind: kindString}
	boolean = property{kind: kindBoolean}
	list    = property{kind: kindList}
	object  = property{kind: kindMap}
	tags    = list
)

func required(p property) property {
	p.required = true
	return p
}

func oneOf(values ...string) property {
	return property{kind: kindString, allowed: values}
}

var (
	cidr = property{kind: kindString, check: checkIPv4CIDR}
	port = property{kind: kindInteger, check: checkPort}
)

// resourceSchemas covers the resource types the expense tracker stacks declare.
var resourceSchemas = map[string]resourceSchema{
	"AWS::EC2::VPC": {properties: map[string]property{
		"CidrBlock":          cidr,
		"EnableDnsHostnames": boolean,
		"EnableDnsSupport":   boolean,
		"InstanceTenancy":    oneOf("default", "dedicated", "host"),
		"Tags":               tags,
	}},
	"AWS::EC2::Subnet": {properties: map[string]property{
		"VpcId":               required(str),
		"CidrBlock":           cidr,
		"AvailabilityZone":    str,
		"MapPublicIpOnLaunch": boolean,
		"Tags":                tags,
	}},
	"AWS::EC2::InternetGateway": {properties: map[string]property{
		"Tags": tags,
	}},
	"AWS::EC2::VPCGatewayAttachment": {properties: map[string]property{
		"VpcId":             required(str),
		"InternetGatewayId": str,
	}},
	"AWS::EC2::EIP": {properties: map[string]property{
		"Domain": oneOf("vpc", "standard"),
		"Tags":   tags,
	}},
	"AWS::EC2::NatGateway": {properties: map[string]property{
		"AllocationId": str,
		"SubnetId":     required(str),
		"Tags":         tags,
	}},
	"AWS::EC2::RouteTable": {properties: map[string]property{
		"VpcId": required(str),
		"Tags":  tags,
	}},
	"AWS::EC2::Route": {
		properties: map[string]property{
			"RouteTableId":         required(str),
			"DestinationCidrBlock": cidr,
			"GatewayId":            str,
			"NatGatewayId":         str,
		},
		check: exactlyOneTarget,
	},
	"AWS::EC2::SubnetRouteTableAssociation": {properties: map[string]property{
		"RouteTableId": required(str),
		"SubnetId":     required(str),
	}},
	"AWS::EC2::SecurityGroup": {properties: map[string]property{
		"GroupDescription":     required(str),
		"GroupName":            str,
		"VpcId":                str,
		"SecurityGroupIngress": list,
		"SecurityGroupEgress":  list,
		"Tags":                 tags,
	}},
	"AWS::ECS::Cluster": {properties: map[string]property{
		"ClusterName": str,
		"Tags":        tags,
	}},
	"AWS::ECS::TaskDefinition": {
		properties: map[string]property{
			"Family":                  str,
			"Cpu":                     oneOf("256", "512", "1024", "2048", "4096"),
			"Memory":                  str,
			"NetworkMode":             oneOf("awsvpc", "bridge", "host", "none"),
			"RequiresCompatibilities": list,
			"ExecutionRoleArn":        str,
			"TaskRoleArn":             str,
			"ContainerDefinitions":    required(list),
			"Tags":                    tags,
		},
		check: fargateSize,
	},
	"AWS::ECS::Service": {properties: map[string]property{
		"Cluster":                 str,
		"ServiceName":             str,
		"LaunchType":              oneOf("EC2", "FARGATE", "EXTERNAL"),
		"TaskDefinition":          required(str),
		"DesiredCount":            {kind: kindInteger, check: checkNonNegative},
		"DeploymentConfiguration": object,
		"NetworkConfiguration":    object,
		"LoadBalancers":           list,
		"ServiceRegistries":       list,
		"Tags":                    tags,
	}},
	"AWS::ElasticLoadBalancingV2::LoadBalancer": {properties: map[string]property{
		"Name":    str,
		"Scheme":  oneOf("internal", "internet-facing"),
		"Type":    oneOf("application", "network", "gateway"),
		"Subnets": list,
		"Tags":    tags,
	}},
	"AWS::ElasticLoadBalancingV2::TargetGroup": {properties: map[string]property{
		"Name":                str,
		"Port":                port,
		"Protocol":            oneOf("HTTP", "HTTPS", "TCP", "TLS", "UDP", "TCP_UDP", "GENEVE"),
		"TargetType":          oneOf("instance", "ip", "lambda", "alb"),
		"VpcId":               str,
		"HealthCheckProtocol": oneOf("HTTP", "HTTPS", "TCP"),
		"Tags":                tags,
	}},
	"AWS::ElasticLoadBalancingV2::Listener": {properties: map[string]property{
		"LoadBalancerArn": required(str),
		"Port":            port,
		"Protocol":        oneOf("HTTP", "HTTPS", "TCP", "TLS", "UDP", "TCP_UDP"),
		"DefaultActions":  required(list),
	}},
	"AWS::ServiceDiscovery::PrivateDnsNamespace": {properties: map[string]property{
		"Name":        required(str),
		"Vpc":         required(str),
		"Description": str,
		"Tags":        tags,
	}},
	"AWS::ServiceDiscovery::Service": {properties: map[string]property{
		"Name":                    str,
		"NamespaceId":             str,
		"DnsConfig":               object,
		"HealthCheckCustomConfig": object,
	}},
	"AWS::SSM::Parameter": {properties: map[string]property{
		"Name":        str,
		"Type":        required(oneOf("String", "StringList")),
		"Value":       required(str),
		"Description": str,
	}},
	"AWS::Logs::LogGroup": {properties: map[string]property{
		"LogGroupName":    str,
		"RetentionInDays": {kind: kindInteger, check: checkRetention},
	}},
	"AWS::IAM::Role": {properties: map[string]property{
		"RoleName":                 str,
		"AssumeRolePolicyDocument": required(property{kind: kindJSON}),
		"ManagedPolicyArns":        list,
		"Description":              str,
		"Tags":                     tags,
	}},
}

func checkIPv4CIDR(value any) string {
	s, _ := value.(string)
	prefix, err := netip.ParsePrefix(s)
	if err != nil || !prefix.Addr().Is4() {
		return fmt.Sprintf("%q is not an IPv4 CIDR block", s)
	}
	return ""
}

func checkPort(value any) string {
	n, _ := toInt(value)
	if n < 1 || n > 65535 {
		return fmt.Sprintf("port %d out of range 1-65535", n)
	}
	return ""
}

func checkNonNegative(value any) string {
	if n, _ := toInt(value); n < 0 {
		return fmt.Sprintf("must not be negative, got %d", n)
	}
	return ""
}

// retentionDays are the periods CloudWatch Logs accepts.
var retentionDays = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 14: true, 30: true, 60: true, 90: true,
	120: true, 150: true, 180: true, 365: true, 400: true, 545: true, 731: true,
	1096: true, 1827: true, 2192: true, 2557: true, 2922: true, 3288: true, 3653: true,
}

func checkRetention(value any) string {
	n, _ := toInt(value)
	if !retentionDays[n] {
		return fmt.Sprintf("%d is not a CloudWatch Logs retention period", n)
	}
	return ""
}

// exactlyOneTarget requires a route to name a single gateway.
func exactlyOneTarget(props map[string]any) []expenseinfra.SchemaError {
	var targets int
	for _, key := range []string{"GatewayId", "NatGatewayId"} {
		if _, ok := props[key]; ok {
			targets++
		}
	}
	if targets == 1 {
		return nil
	}
	return []expenseinfra.SchemaError{{
		Property: "GatewayId",
		Message:  fmt.Sprintf("route needs exactly one of GatewayId or NatGatewayId, found %d", targets),
	}}
}

// fargateMemory lists the memory sizes (MiB) Fargate accepts for each CPU size.
var fargateMemory = map[int][2]int{
	256:  {512, 2048},
	512:  {1024, 4096},
	1024: {2048, 8192},
	2048: {4096, 16384},
	4096: {8192, 30720},
}

// fargateSize checks that Memory is a valid pairing for Cpu. Smallest tasks
// step by 512 MiB above 512, everything else by 1024 MiB.
func fargateSize(props map[string]any) []expenseinfra.SchemaError {
	cpuStr, ok1 := props["Cpu"].(string)
	memStr, ok2 := props["Memory"].(string)
	if !ok1 || !ok2 {
		return nil
	}
	cpu, err1 := strconv.Atoi(cpuStr)
	mem, err2 := strconv.Atoi(memStr)
	bounds, known := fargateMemory[cpu]
	if err1 != nil || !known {
		return nil
	}
	if err2 == nil && mem >= bounds[0] && mem <= bounds[1] && validStep(cpu, mem) {
		return nil
	}
	return []expenseinfra.SchemaError{{
		Property: "Memory",
		Message:  fmt.Sprintf("memory %s is not valid for %d CPU units (%d-%d MiB)", memStr, cpu, bounds[0], bounds[1]),
	}}
}

func validStep(cpu, mem int) bool {
	if cpu == 256 {
		return mem == 512 || mem%1024 == 0
	}
	return mem%1024 == 0
}

package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/expense-tracker/expense-infra-go/internal/lookup"
	"github.com/expense-tracker/expense-infra-go/internal/params"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
	"github.com/expense-tracker/expense-infra-go/intrinsics"
	"github.com/expense-tracker/expense-infra-go/resources/ec2"
	"github.com/expense-tracker/expense-infra-go/resources/ecs"
	elbv2 "github.com/expense-tracker/expense-infra-go/resources/elasticloadbalancingv2"
	"github.com/expense-tracker/expense-infra-go/resources/iam"
	"github.com/expense-tracker/expense-infra-go/resources/logs"
	"github.com/expense-tracker/expense-infra-go/resources/servicediscovery"
	"github.com/expense-tracker/expense-infra-go/resources/ssm"
)

// Logical IDs of the shared service resources.
const (
	SecurityGroupID     = "DbSecurityGroup"
	ClusterID           = "DatabaseKafkaCluster"
	NamespaceID         = "DatabaseKafkaClusterNamespace"
	LoadBalancerID      = "DatabaseNLB"
	ExecutionRoleID     = "TaskExecutionRole"
	ServicesNLBParamID  = "ServicesNLBParameter"
	ServicesNLBOutputID = "ServicesNLBDnsName"
)

const executionRolePolicy = "arn:${AWS::Partition}:iam::aws:policy/service-role/AmazonECSTaskExecutionRolePolicy"

// NetworkResolver supplies the network stack's published identifiers.
type NetworkResolver interface {
	Network(ctx context.Context, privateSubnets int) (*lookup.ResolvedNetwork, error)
}

// Deployed is one workload's constructs.
type Deployed struct {
	Workload       Workload
	LogGroup       *stack.Construct
	TaskDefinition *stack.Construct
	Service        *stack.Construct
	TargetGroup    *stack.Construct
	Listener       *stack.Construct
	CloudMap       *stack.Construct
}

// Services holds the constructs Build declared.
type Services struct {
	Network       *lookup.ResolvedNetwork
	SecurityGroup *stack.Construct
	Cluster       *stack.Construct
	Namespace     *stack.Construct
	LoadBalancer  *stack.Construct
	ExecutionRole *stack.Construct
	Workloads     []*Deployed
	Parameter     *stack.Construct
}

// Workload returns the deployed workload with the given name.
func (s *Services) Workload(name string) (*Deployed, bool) {
	for _, d := range s.Workloads {
		if d.Workload.Name == name {
			return d, true
		}
	}
	return nil, false
}

// Build resolves the network and declares the service tier into st. Nothing
// is declared when the network cannot be resolved.
func Build(ctx context.Context, st *stack.Stack, cfg Config, resolver NetworkResolver) (*Services, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid services config: %w", err)
	}

	network, err := resolver.Network(ctx, cfg.PrivateSubnets)
	if err != nil {
		return nil, err
	}

	subnets := make([]any, len(network.PrivateSubnets))
	for i, id := range network.PrivateSubnets {
		subnets[i] = id
	}

	out := &Services{Network: network}

	out.SecurityGroup = st.Add(SecurityGroupID, ec2.SecurityGroup{
		GroupDescription:     "Security group for the database and Kafka services",
		VpcId:                network.VpcID,
		SecurityGroupIngress: ingressRules(cfg, network.CIDR),
		SecurityGroupEgress: []ec2.SecurityGroup_Egress{{
			IpProtocol:  "-1",
			CidrIp:      "0.0.0.0/0",
			Description: "Allow all outbound traffic by default",
		}},
	})

	out.Cluster = st.Add(ClusterID, ecs.Cluster{})
	out.Namespace = st.Add(NamespaceID, servicediscovery.PrivateDnsNamespace{
		Name: cfg.Namespace,
		Vpc:  network.VpcID,
	})

	out.LoadBalancer = st.Add(LoadBalancerID, elbv2.LoadBalancer{
		Scheme:  "internal",
		Type:    "network",
		Subnets: subnets,
	})

	out.ExecutionRole = st.Add(ExecutionRoleID, iam.Role{
		AssumeRolePolicyDocument: intrinsics.AssumeRolePolicy("ecs-tasks.amazonaws.com"),
		ManagedPolicyArns:        []any{intrinsics.Sub{String: executionRolePolicy}},
	})

	for _, w := range cfg.Workloads() {
		out.Workloads = append(out.Workloads, declareWorkload(st, cfg, w, out, subnets, network.VpcID))
	}

	out.Parameter = st.Add(ServicesNLBParamID, ssm.Parameter{
		Name:        string(params.ServicesNLB),
		Type:        "String",
		Value:       out.LoadBalancer.Attr("DNSName"),
		Description: "DNS name of the internal service load balancer",
	})
	st.Output(ServicesNLBOutputID, "DNS name of the internal service load balancer", out.LoadBalancer.Attr("DNSName"))

	if err := st.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ingressRules opens each workload port to the VPC CIDR only.
func ingressRules(cfg Config, cidr string) []ec2.SecurityGroup_Ingress {
	workloads := []Workload{cfg.Database, cfg.Broker, cfg.Coordination}
	rules := make([]ec2.SecurityGroup_Ingress, 0, len(workloads))
	for _, w := range workloads {
		rules = append(rules, ec2.SecurityGroup_Ingress{
			IpProtocol:  "tcp",
			FromPort:    w.Port,
			ToPort:      w.Port,
			CidrIp:      cidr,
			Description: w.IngressDescription,
		})
	}
	return rules
}

func declareWorkload(st *stack.Stack, cfg Config, w Workload, out *Services, subnets []any, vpcID string) *Deployed {
	d := &Deployed{Workload: w}

	d.LogGroup = st.Add(w.Name+"LogGroup", logs.LogGroup{RetentionInDays: cfg.LogRetentionDays})

	d.TaskDefinition = st.Add(w.Name+"TaskDef", ecs.TaskDefinition{
		Family:                  w.Name,
		Cpu:                     strconv.Itoa(w.Cpu),
		Memory:                  strconv.Itoa(w.Memory),
		NetworkMode:             "awsvpc",
		RequiresCompatibilities: []any{"FARGATE"},
		ExecutionRoleArn:        out.ExecutionRole.Attr("Arn"),
		ContainerDefinitions: []ecs.TaskDefinition_ContainerDefinition{{
			Name:         w.ContainerName,
			Image:        w.Image,
			Essential:    true,
			Environment:  environment(w.Environment, out.LoadBalancer),
			PortMappings: []ecs.TaskDefinition_PortMapping{{ContainerPort: w.Port, Protocol: "tcp"}},
			LogConfiguration: &ecs.TaskDefinition_LogConfiguration{
				LogDriver: "awslogs",
				Options: map[string]any{
					"awslogs-group":         d.LogGroup.Ref(),
					"awslogs-region":        intrinsics.AWS_REGION,
					"awslogs-stream-prefix": w.LogStreamPrefix,
					"mode":                  cfg.LogMode,
					"max-buffer-size":       cfg.LogBufferSize,
				},
			},
		}},
	})

	svc := ecs.Service{
		Cluster:        out.Cluster.Ref(),
		LaunchType:     "FARGATE",
		TaskDefinition: d.TaskDefinition.Ref(),
		DesiredCount:   w.DesiredCount,
		DeploymentConfiguration: &ecs.Service_DeploymentConfiguration{
			MaximumPercent:        200,
			MinimumHealthyPercent: 50,
		},
		NetworkConfiguration: &ecs.Service_NetworkConfiguration{
			AwsvpcConfiguration: &ecs.Service_AwsVpcConfiguration{
				AssignPublicIp: "DISABLED",
				SecurityGroups: []any{out.SecurityGroup.Attr("GroupId")},
				Subnets:        subnets,
			},
		},
	}

	var opts []stack.Option
	if w.LoadBalanced {
		d.TargetGroup = st.Add(w.Name+"TargetGroup", elbv2.TargetGroup{
			Port:                w.Port,
			Protocol:            "TCP",
			TargetType:          "ip",
			VpcId:               vpcID,
			HealthCheckProtocol: "TCP",
		})
		d.Listener = st.Add(w.Name+"Listener", elbv2.Listener{
			LoadBalancerArn: out.LoadBalancer.Ref(),
			Port:            w.Port,
			Protocol:        "TCP",
			DefaultActions: []elbv2.Listener_Action{{
				Type:           "forward",
				TargetGroupArn: d.TargetGroup.Ref(),
			}},
		})
		svc.LoadBalancers = []ecs.Service_LoadBalancer{{
			ContainerName:  w.ContainerName,
			ContainerPort:  w.Port,
			TargetGroupArn: d.TargetGroup.Ref(),
		}}
		opts = append(opts, stack.DependsOn(d.Listener))
	}

	if w.CloudMapName != "" {
		d.CloudMap = st.Add(w.Name+"CloudMapService", servicediscovery.Service{
			Name: w.CloudMapName,
			DnsConfig: &servicediscovery.Service_DnsConfig{
				DnsRecords:    []servicediscovery.Service_DnsRecord{{Type: "A", TTL: 60}},
				NamespaceId:   out.Namespace.Attr("Id"),
				RoutingPolicy: "MULTIVALUE",
			},
			HealthCheckCustomConfig: &servicediscovery.Service_HealthCheckCustomConfig{FailureThreshold: 1},
		})
		svc.ServiceRegistries = []ecs.Service_ServiceRegistry{{RegistryArn: d.CloudMap.Attr("Arn")}}
	}

	d.Service = st.Add(w.Name+"Service", svc, opts...)
	return d
}

// environment renders env vars, turning the load balancer DNS token into an
// Fn::Sub over the load balancer's DNSName attribute.
func environment(vars []EnvVar, nlb *stack.Construct) []ecs.TaskDefinition_KeyValuePair {
	out := make([]ecs.TaskDefinition_KeyValuePair, 0, len(vars))
	for _, v := range vars {
		var value any = v.Value
		if strings.Contains(v.Value, LoadBalancerDNSToken) {
			value = intrinsics.Sub{
				String: strings.ReplaceAll(v.Value, LoadBalancerDNSToken, "${"+nlb.ID()+".DNSName}"),
			}
		}
		out = append(out, ecs.TaskDefinition_KeyValuePair{Name: v.Name, Value: value})
	}
	return out
}

package network

import (
	"fmt"

	"github.com/expense-tracker/expense-infra-go/internal/params"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
	"github.com/expense-tracker/expense-infra-go/intrinsics"
	"github.com/expense-tracker/expense-infra-go/resources/ec2"
	"github.com/expense-tracker/expense-infra-go/resources/ssm"
)

// Logical IDs of the singleton network resources.
const (
	InternetGatewayID = "ExpenseTrackerInternetGateway"
	AttachmentID      = "ExpenseTrackerVPCGatewayAttachment"
	anyIPv4           = "0.0.0.0/0"
)

// PublicSubnetID is the logical ID of public subnet i.
func PublicSubnetID(i int) string { return fmt.Sprintf("PublicSubnet%d", i) }

// PrivateSubnetID is the logical ID of private subnet i.
func PrivateSubnetID(i int) string { return fmt.Sprintf("PrivateSubnet%d", i) }

// NatGatewayID is the logical ID of the NAT gateway in zone i.
func NatGatewayID(i int) string { return fmt.Sprintf("ExpenseTrackerNatGateway%d", i) }

// NatEIPID is the logical ID of the Elastic IP bound to NAT gateway i.
func NatEIPID(i int) string { return NatGatewayID(i) + "EIP" }

// PrivateRouteID is the logical ID of private subnet i's default route.
func PrivateRouteID(i int) string { return fmt.Sprintf("PrivateRouteToNatGateway%d", i) }

// PublicRouteID is the logical ID of public subnet i's default route.
func PublicRouteID(i int) string { return fmt.Sprintf("PublicRouteToInternetGateway%d", i) }

func routeTableID(subnet string) string { return subnet + "RouteTable" }

// Subnet is a declared subnet with its route table.
type Subnet struct {
	CIDR        string
	Subnet      *stack.Construct
	RouteTable  *stack.Construct
	Association *stack.Construct
}

// Network holds the constructs Build declared.
type Network struct {
	Topology        *Topology
	VPC             *stack.Construct
	PublicSubnets   []Subnet
	PrivateSubnets  []Subnet
	InternetGateway *stack.Construct
	Attachment      *stack.Construct
	EIPs            []*stack.Construct
	NatGateways     []*stack.Construct
	PublicRoutes    []*stack.Construct
	PrivateRoutes   []*stack.Construct
	Parameters      map[params.Name]*stack.Construct
}

// natFor returns the NAT gateway serving private subnet i. There is no
// wraparound: an index without a gateway is an error.
func (n *Network) natFor(i int) (*stack.Construct, error) {
	if i < 0 || i >= len(n.NatGateways) {
		return nil, fmt.Errorf("no NAT gateway for private subnet %d (have %d)", i, len(n.NatGateways))
	}
	return n.NatGateways[i], nil
}

// Build declares the network into s.
func Build(s *stack.Stack, cfg Config) (*Network, error) {
	topo, err := Plan(cfg)
	if err != nil {
		return nil, err
	}

	name := cfg.Name
	if name == "" {
		name = DefaultConfig().Name
	}
	tag := func(id string) []any {
		return intrinsics.NameTag(s.Name() + "/" + id)
	}

	n := &Network{Topology: topo, Parameters: make(map[params.Name]*stack.Construct)}

	n.VPC = s.Add(name, ec2.VPC{
		CidrBlock:          topo.VpcCIDR,
		EnableDnsHostnames: true,
		EnableDnsSupport:   true,
		InstanceTenancy:    "default",
		Tags:               tag(name),
	})

	declareSubnet := func(id, cidr string, zone int, public bool) Subnet {
		subnet := s.Add(id, ec2.Subnet{
			VpcId:               n.VPC.Ref(),
			CidrBlock:           cidr,
			AvailabilityZone:    intrinsics.AZ(zone),
			MapPublicIpOnLaunch: public,
			Tags:                tag(id),
		})
		rt := s.Add(routeTableID(id), ec2.RouteTable{VpcId: n.VPC.Ref(), Tags: tag(id)})
		assoc := s.Add(id+"RouteTableAssociation", ec2.SubnetRouteTableAssociation{
			RouteTableId: rt.Ref(),
			SubnetId:     subnet.Ref(),
		})
		return Subnet{CIDR: cidr, Subnet: subnet, RouteTable: rt, Association: assoc}
	}

	for i, cidr := range topo.PublicSubnets {
		n.PublicSubnets = append(n.PublicSubnets, declareSubnet(PublicSubnetID(i), cidr, i, true))
	}
	for i, cidr := range topo.PrivateSubnets {
		n.PrivateSubnets = append(n.PrivateSubnets, declareSubnet(PrivateSubnetID(i), cidr, i, false))
	}

	n.InternetGateway = s.Add(InternetGatewayID, ec2.InternetGateway{Tags: tag(InternetGatewayID)})
	n.Attachment = s.Add(AttachmentID, ec2.VPCGatewayAttachment{
		VpcId:             n.VPC.Ref(),
		InternetGatewayId: n.InternetGateway.Ref(),
	})

	for i := range n.PublicSubnets {
		// An EIP in this VPC needs the internet gateway attached first. NAT
		// gateways and private routes follow it through the allocation.
		eip := s.Add(NatEIPID(i), ec2.EIP{Domain: "vpc", Tags: tag(NatEIPID(i))},
			stack.DependsOn(n.Attachment))
		nat := s.Add(NatGatewayID(i), ec2.NatGateway{
			AllocationId: eip.Attr("AllocationId"),
			SubnetId:     n.PublicSubnets[i].Subnet.Ref(),
			Tags:         tag(NatGatewayID(i)),
		})
		n.EIPs = append(n.EIPs, eip)
		n.NatGateways = append(n.NatGateways, nat)
	}

	for i, private := range n.PrivateSubnets {
		nat, err := n.natFor(i)
		if err != nil {
			return nil, err
		}
		n.PrivateRoutes = append(n.PrivateRoutes, s.Add(PrivateRouteID(i), ec2.Route{
			RouteTableId:         private.RouteTable.Ref(),
			DestinationCidrBlock: anyIPv4,
			NatGatewayId:         nat.Ref(),
		}))
	}

	for i, public := range n.PublicSubnets {
		n.PublicRoutes = append(n.PublicRoutes, s.Add(PublicRouteID(i), ec2.Route{
			RouteTableId:         public.RouteTable.Ref(),
			DestinationCidrBlock: anyIPv4,
			GatewayId:            n.InternetGateway.Ref(),
		}, stack.DependsOn(n.Attachment)))
	}

	n.publish(s, "VpcIdExport", params.VpcID, n.VPC, "ID of the expense tracker VPC")
	for i, public := range n.PublicSubnets {
		n.publish(s, fmt.Sprintf("PublicSubnetExport%d", i), params.PublicSubnet(i), public.Subnet,
			fmt.Sprintf("ID of public subnet %d", i))
	}
	for i, private := range n.PrivateSubnets {
		n.publish(s, fmt.Sprintf("PrivateSubnetExport%d", i), params.PrivateSubnet(i), private.Subnet,
			fmt.Sprintf("ID of private subnet %d", i))
	}

	if err := s.Err(); err != nil {
		return nil, err
	}
	return n, nil
}

// publish writes target's ID to the parameter store and mirrors it as an output.
func (n *Network) publish(s *stack.Stack, id string, name params.Name, target *stack.Construct, description string) {
	n.Parameters[name] = s.Add(id, ssm.Parameter{
		Name:        string(name),
		Type:        "String",
		Value:       target.Ref(),
		Description: description,
	})
	s.Output(id, description, target.Ref())
}

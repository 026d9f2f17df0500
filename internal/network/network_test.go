package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expense-tracker/expense-infra-go/internal/params"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
)

func TestPlan_Default(t *testing.T) {
	topo, err := Plan(DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.0/16", topo.VpcCIDR)
	assert.Equal(t, []string{"10.0.0.0/24", "10.0.1.0/24"}, topo.PublicSubnets)
	assert.Equal(t, []string{"10.0.2.0/24", "10.0.3.0/24"}, topo.PrivateSubnets)
}

func TestPlan_MixedMasks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Zones = 3
	cfg.PrivateMask = 20

	topo, err := Plan(cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.0/24", "10.0.1.0/24", "10.0.2.0/24"}, topo.PublicSubnets)
	assert.Equal(t, []string{"10.0.16.0/20", "10.0.32.0/20", "10.0.48.0/20"}, topo.PrivateSubnets)
}

func TestPlan_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"no zones", func(c *Config) { c.Zones = 0 }, "zones must be at least 1"},
		{"too many zones", func(c *Config) { c.Zones = MaxZones + 1 }, "zones must be at most 6"},
		{"bad cidr", func(c *Config) { c.CIDR = "10.0.0.0/33" }, "invalid vpc cidr"},
		{"mask wider than vpc", func(c *Config) { c.PublicMask = 16 }, "must be narrower"},
		{"not enough space", func(c *Config) { c.CIDR = "10.0.0.0/23"; c.Zones = 2 }, "cannot hold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := Plan(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func synthNetwork(t *testing.T, zones int) (*Network, *stack.Synthesized) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Zones = zones

	s := stack.New("ExpenseTrackerNetworkStack")
	n, err := Build(s, cfg)
	require.NoError(t, err)

	synth, err := s.Synth()
	require.NoError(t, err)
	return n, synth
}

func TestBuild_NatGatewaysPerZone(t *testing.T) {
	for _, zones := range []int{1, 2, 3} {
		n, synth := synthNetwork(t, zones)

		require.Len(t, n.NatGateways, zones)
		require.Len(t, n.PrivateRoutes, zones)

		nats := 0
		for _, res := range synth.Template.Resources {
			if res.Type == "AWS::EC2::NatGateway" {
				nats++
			}
		}
		assert.Equal(t, zones, nats)

		for i := 0; i < zones; i++ {
			route := synth.Template.Resources[PrivateRouteID(i)]
			assert.Equal(t, map[string]any{"Ref": NatGatewayID(i)}, route.Properties["NatGatewayId"])
			assert.Equal(t, map[string]any{"Ref": PrivateSubnetID(i) + "RouteTable"}, route.Properties["RouteTableId"])
			assert.Equal(t, "0.0.0.0/0", route.Properties["DestinationCidrBlock"])

			nat := synth.Template.Resources[NatGatewayID(i)]
			assert.Equal(t,
				map[string]any{"Fn::GetAtt": []any{NatEIPID(i), "AllocationId"}},
				nat.Properties["AllocationId"])
			assert.Equal(t, map[string]any{"Ref": PublicSubnetID(i)}, nat.Properties["SubnetId"])
		}
	}
}

// dependsOn reports whether from reaches target through references or
// explicit DependsOn.
func dependsOn(synth *stack.Synthesized, from, target string) bool {
	deps := make(map[string][]string, len(synth.Resources))
	for _, res := range synth.Resources {
		deps[res.Name] = res.AllDependencies()
	}
	seen := map[string]bool{}
	queue := []string{from}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, dep := range deps[name] {
			if dep == target {
				return true
			}
			if !seen[dep] {
				seen[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return false
}

func TestBuild_PublicRoutesDependOnAttachment(t *testing.T) {
	n, synth := synthNetwork(t, 2)
	require.Len(t, n.PublicRoutes, 2)

	pos := make(map[string]int, len(synth.Order))
	for i, name := range synth.Order {
		pos[name] = i
	}

	for i := 0; i < 2; i++ {
		route := synth.Template.Resources[PublicRouteID(i)]
		assert.Equal(t, map[string]any{"Ref": InternetGatewayID}, route.Properties["GatewayId"])
		assert.Equal(t, []string{AttachmentID}, route.DependsOn)
		assert.Less(t, pos[AttachmentID], pos[PublicRouteID(i)])
	}

	for i := 0; i < 2; i++ {
		assert.Equal(t, []string{AttachmentID}, synth.Template.Resources[NatEIPID(i)].DependsOn)
		assert.True(t, dependsOn(synth, PrivateRouteID(i), AttachmentID), PrivateRouteID(i))
		assert.True(t, dependsOn(synth, NatGatewayID(i), AttachmentID), NatGatewayID(i))
		assert.Less(t, pos[AttachmentID], pos[NatEIPID(i)])
	}

	attachment := synth.Template.Resources[AttachmentID]
	assert.Equal(t, "AWS::EC2::VPCGatewayAttachment", attachment.Type)
	assert.Equal(t, map[string]any{"Ref": InternetGatewayID}, attachment.Properties["InternetGatewayId"])
}

func TestBuild_PublishesParameters(t *testing.T) {
	n, synth := synthNetwork(t, 2)

	require.Len(t, n.Parameters, 5)
	for _, name := range params.NetworkExports(2) {
		require.Contains(t, n.Parameters, name)
		res := synth.Template.Resources[n.Parameters[name].ID()]
		assert.Equal(t, "AWS::SSM::Parameter", res.Type)
		assert.Equal(t, string(name), res.Properties["Name"])
		assert.Equal(t, "String", res.Properties["Type"])
	}

	vpcParam := synth.Template.Resources["VpcIdExport"]
	assert.Equal(t, map[string]any{"Ref": "ExpenseTrackerVpc"}, vpcParam.Properties["Value"])
	assert.Len(t, synth.Template.Outputs, 5)
}

func TestBuild_SubnetsAlternateZones(t *testing.T) {
	_, synth := synthNetwork(t, 2)

	public1 := synth.Template.Resources[PublicSubnetID(1)]
	assert.Equal(t, true, public1.Properties["MapPublicIpOnLaunch"])
	assert.Equal(t, "10.0.1.0/24", public1.Properties["CidrBlock"])
	az := public1.Properties["AvailabilityZone"].(map[string]any)
	assert.Contains(t, az, "Fn::Select")

	private0 := synth.Template.Resources[PrivateSubnetID(0)]
	assert.NotContains(t, private0.Properties, "MapPublicIpOnLaunch")
	assert.Equal(t, "10.0.2.0/24", private0.Properties["CidrBlock"])
}

func TestBuild_Idempotent(t *testing.T) {
	_, first := synthNetwork(t, 2)
	_, second := synthNetwork(t, 2)

	assert.Equal(t, first.Order, second.Order)
	assert.Equal(t, first.Template, second.Template)
}

func TestNatFor_NoWraparound(t *testing.T) {
	n, _ := synthNetwork(t, 2)

	_, err := n.natFor(2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no NAT gateway for private subnet 2")

	nat, err := n.natFor(1)
	require.NoError(t, err)
	assert.Equal(t, NatGatewayID(1), nat.ID())
}

func TestBuild_DuplicateDeclarationFails(t *testing.T) {
	s := stack.New("ExpenseTrackerNetworkStack")
	_, err := Build(s, DefaultConfig())
	require.NoError(t, err)

	_, err = Build(s, DefaultConfig())
	require.ErrorIs(t, err, stack.ErrDuplicateLogicalID)
}

package app

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expense-tracker/expense-infra-go/internal/config"
	"github.com/expense-tracker/expense-infra-go/internal/engine"
	"github.com/expense-tracker/expense-infra-go/internal/lookup"
	"github.com/expense-tracker/expense-infra-go/internal/params"
)

type fixedResolver struct {
	network *lookup.ResolvedNetwork
	err     error
}

func (f fixedResolver) Network(ctx context.Context, privateSubnets int) (*lookup.ResolvedNetwork, error) {
	return f.network, f.err
}

func resolved() fixedResolver {
	return fixedResolver{network: &lookup.ResolvedNetwork{
		VpcID:          "vpc-0abc",
		CIDR:           "10.0.0.0/16",
		PrivateSubnets: []string{"subnet-a", "subnet-b"},
	}}
}

func countType(r *engine.Result, typ string) []*engine.Physical {
	var out []*engine.Physical
	for _, p := range r.Resources {
		if p.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

func TestSynthesize(t *testing.T) {
	a, err := Synthesize(context.Background(), config.Default(), resolved())
	require.NoError(t, err)

	stacks, err := a.Synth()
	require.NoError(t, err)
	require.Len(t, stacks, 2)

	assert.Equal(t, "ExpenseTrackerNetworkStack", stacks[0].Name)
	assert.Equal(t, "ExpenseServiceStack", stacks[1].Name)
	assert.Equal(t, []string{"ExpenseTrackerNetworkStack"}, stacks[1].DependsOn)
	assert.NotEmpty(t, stacks[0].Template.Description)
	assert.Contains(t, stacks[0].Template.Resources, "ExpenseTrackerVpc")
	assert.Contains(t, stacks[1].Template.Resources, "DatabaseNLB")

	for name, count := range map[string]int64{"MySQLService": 1, "ZookeeperService": 3, "KafkaService": 3} {
		assert.Equal(t, count, stacks[1].Template.Resources[name].Properties["DesiredCount"], name)
	}
}

func TestSynthesize_ResolverFailure(t *testing.T) {
	_, err := Synthesize(context.Background(), config.Default(), fixedResolver{
		err: &params.NotPublishedError{Name: params.VpcID},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, params.ErrNotPublished))
	assert.Contains(t, err.Error(), "ExpenseServiceStack")
}

func TestSynthesize_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Services.PrivateSubnets = 5

	_, err := Synthesize(context.Background(), cfg, resolved())
	assert.Error(t, err)
}

func TestSimulate(t *testing.T) {
	logger, _ := test.NewNullLogger()

	sim, err := Simulate(context.Background(), config.Default(), logger)
	require.NoError(t, err)

	assert.Len(t, sim.Network.ParametersWritten, 5)
	assert.ElementsMatch(t, []params.Name{
		params.VpcID, params.PrivateSubnet(0), params.PrivateSubnet(1),
	}, sim.Params.Reads())

	services := countType(sim.Services, "AWS::ECS::Service")
	assert.Len(t, services, 3)
	assert.Len(t, countType(sim.Services, "AWS::ElasticLoadBalancingV2::LoadBalancer"), 1)
	assert.Len(t, countType(sim.Services, "AWS::ElasticLoadBalancingV2::Listener"), 2)
	assert.Len(t, countType(sim.Network, "AWS::EC2::NatGateway"), 2)

	dns, ok := sim.Params.Snapshot()[params.ServicesNLB]
	require.True(t, ok)
	assert.Regexp(t, `^Expens-Datab-[0-9a-f]{16}\.elb\.us-east-1\.amazonaws\.com$`, dns)
}

func TestSimulate_AllZones(t *testing.T) {
	logger, _ := test.NewNullLogger()
	for _, zones := range []int{4, 6} {
		cfg := config.Default()
		cfg.Network.Zones = zones

		sim, err := Simulate(context.Background(), cfg, logger)
		require.NoError(t, err, "zones=%d", zones)
		assert.Len(t, countType(sim.Network, "AWS::EC2::NatGateway"), zones)
	}
}

func TestSimulate_Region(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := config.Default()
	cfg.App.Region = "eu-west-1"

	sim, err := Simulate(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.Contains(t, sim.Params.Snapshot()[params.ServicesNLB], ".elb.eu-west-1.")
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/lookup"
	"github.com/expense-tracker/expense-infra-go/internal/params"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
)

func publishedResolver(t *testing.T, skip ...params.Name) *lookup.Resolver {
	t.Helper()
	ctx := context.Background()
	values := map[params.Name]string{
		params.VpcID:            "vpc-0abc",
		params.PrivateSubnet(0): "subnet-private-a",
		params.PrivateSubnet(1): "subnet-private-b",
	}
	store := params.NewMemoryStore()
	for name, value := range values {
		skipped := false
		for _, s := range skip {
			skipped = skipped || s == name
		}
		if !skipped {
			require.NoError(t, store.Put(ctx, name, value))
		}
	}
	return &lookup.Resolver{
		Params: store,
		Vpcs:   lookup.NewStaticVpcs(lookup.Vpc{ID: "vpc-0abc", CIDR: "10.0.0.0/16"}),
	}
}

func synthServices(t *testing.T) (*Services, *stack.Synthesized) {
	t.Helper()
	st := stack.New("ExpenseServiceStack")
	svc, err := Build(context.Background(), st, DefaultConfig(), publishedResolver(t))
	require.NoError(t, err)

	synth, err := st.Synth()
	require.NoError(t, err)
	return svc, synth
}

func resourcesOfType(tmpl *expenseinfra.Template, typ string) map[string]expenseinfra.ResourceDef {
	out := make(map[string]expenseinfra.ResourceDef)
	for name, res := range tmpl.Resources {
		if res.Type == typ {
			out[name] = res
		}
	}
	return out
}

func TestBuild_SecurityGroup(t *testing.T) {
	_, synth := synthServices(t)

	sg := synth.Template.Resources[SecurityGroupID]
	assert.Equal(t, "vpc-0abc", sg.Properties["VpcId"])

	ingress := sg.Properties["SecurityGroupIngress"].([]any)
	require.Len(t, ingress, 3)

	var ports []int64
	for _, r := range ingress {
		rule := r.(map[string]any)
		assert.Equal(t, "10.0.0.0/16", rule["CidrIp"])
		assert.Equal(t, "tcp", rule["IpProtocol"])
		assert.Equal(t, rule["FromPort"], rule["ToPort"])
		ports = append(ports, rule["FromPort"].(int64))
	}
	assert.Equal(t, []int64{3306, 9092, 2181}, ports)
	assert.Equal(t, "Allow Kafka to access Zookeeper", ingress[2].(map[string]any)["Description"])

	egress := sg.Properties["SecurityGroupEgress"].([]any)
	require.Len(t, egress, 1)
	assert.Equal(t, "-1", egress[0].(map[string]any)["IpProtocol"])
	assert.Equal(t, "0.0.0.0/0", egress[0].(map[string]any)["CidrIp"])
}

func TestBuild_ServicesAndReplicas(t *testing.T) {
	_, synth := synthServices(t)

	ecsServices := resourcesOfType(synth.Template, "AWS::ECS::Service")
	require.Len(t, ecsServices, 3)

	assert.Equal(t, int64(1), ecsServices["MySQLService"].Properties["DesiredCount"])
	assert.Equal(t, int64(3), ecsServices["ZookeeperService"].Properties["DesiredCount"])
	assert.Equal(t, int64(3), ecsServices["KafkaService"].Properties["DesiredCount"])

	assert.Equal(t, []string{"MySQLListener"}, ecsServices["MySQLService"].DependsOn)
	assert.Equal(t, []string{"KafkaListener"}, ecsServices["KafkaService"].DependsOn)
	assert.Empty(t, ecsServices["ZookeeperService"].DependsOn)

	for name, svc := range ecsServices {
		netCfg := svc.Properties["NetworkConfiguration"].(map[string]any)["AwsvpcConfiguration"].(map[string]any)
		assert.Equal(t, []any{"subnet-private-a", "subnet-private-b"}, netCfg["Subnets"], name)
		assert.Equal(t, "DISABLED", netCfg["AssignPublicIp"], name)
		assert.Equal(t, "FARGATE", svc.Properties["LaunchType"], name)
	}

	registries := ecsServices["ZookeeperService"].Properties["ServiceRegistries"].([]any)
	require.Len(t, registries, 1)
	cloudMap := synth.Template.Resources["ZookeeperCloudMapService"]
	assert.Equal(t, "zookeeper-service", cloudMap.Properties["Name"])
}

func TestBuild_LoadBalancer(t *testing.T) {
	_, synth := synthServices(t)

	nlbs := resourcesOfType(synth.Template, "AWS::ElasticLoadBalancingV2::LoadBalancer")
	require.Len(t, nlbs, 1)
	nlb := nlbs[LoadBalancerID]
	assert.Equal(t, "internal", nlb.Properties["Scheme"])
	assert.Equal(t, "network", nlb.Properties["Type"])

	listeners := resourcesOfType(synth.Template, "AWS::ElasticLoadBalancingV2::Listener")
	require.Len(t, listeners, 2)
	assert.Equal(t, int64(3306), listeners["MySQLListener"].Properties["Port"])
	assert.Equal(t, int64(9092), listeners["KafkaListener"].Properties["Port"])

	for _, tg := range resourcesOfType(synth.Template, "AWS::ElasticLoadBalancingV2::TargetGroup") {
		assert.Equal(t, "TCP", tg.Properties["Protocol"])
		assert.Equal(t, "ip", tg.Properties["TargetType"])
	}

	param := synth.Template.Resources[ServicesNLBParamID]
	assert.Equal(t, string(params.ServicesNLB), param.Properties["Name"])
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{LoadBalancerID, "DNSName"}}, param.Properties["Value"])
}

func TestBuild_KafkaAdvertisedListenerOrdersAfterNLB(t *testing.T) {
	_, synth := synthServices(t)

	td := synth.Template.Resources["KafkaTaskDef"]
	container := td.Properties["ContainerDefinitions"].([]any)[0].(map[string]any)
	env := container["Environment"].([]any)

	var advertised any
	for _, e := range env {
		kv := e.(map[string]any)
		if kv["Name"] == "KAFKA_ADVERTISED_LISTENERS" {
			advertised = kv["Value"]
		}
	}
	assert.Equal(t, map[string]any{"Fn::Sub": "PLAINTEXT://${DatabaseNLB.DNSName}:9092"}, advertised)

	pos := make(map[string]int)
	for i, n := range synth.Order {
		pos[n] = i
	}
	assert.Less(t, pos[LoadBalancerID], pos["KafkaTaskDef"])

	logOpts := container["LogConfiguration"].(map[string]any)["Options"].(map[string]any)
	assert.Equal(t, "non-blocking", logOpts["mode"])
	assert.Equal(t, "25m", logOpts["max-buffer-size"])
	assert.Equal(t, "Kafka", logOpts["awslogs-stream-prefix"])
}

func TestBuild_TaskSizes(t *testing.T) {
	_, synth := synthServices(t)

	tests := []struct {
		id, cpu, memory, image string
	}{
		{"MySQLTaskDef", "256", "512", "mysql:8.3.0"},
		{"ZookeeperTaskDef", "256", "512", "confluentinc/cp-zookeeper:7.4.4"},
		{"KafkaTaskDef", "512", "1024", "confluentinc/cp-kafka:7.4.4"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			td := synth.Template.Resources[tt.id]
			assert.Equal(t, tt.cpu, td.Properties["Cpu"])
			assert.Equal(t, tt.memory, td.Properties["Memory"])
			assert.Equal(t, "awsvpc", td.Properties["NetworkMode"])
			container := td.Properties["ContainerDefinitions"].([]any)[0].(map[string]any)
			assert.Equal(t, tt.image, container["Image"])
		})
	}
}

func TestBuild_MissingParameterDeclaresNothing(t *testing.T) {
	for _, missing := range []params.Name{params.VpcID, params.PrivateSubnet(0), params.PrivateSubnet(1)} {
		t.Run(string(missing), func(t *testing.T) {
			st := stack.New("ExpenseServiceStack")
			_, err := Build(context.Background(), st, DefaultConfig(), publishedResolver(t, missing))
			require.ErrorIs(t, err, params.ErrNotPublished)
			assert.Contains(t, err.Error(), string(missing))
			assert.Empty(t, st.Constructs())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"log mode", func(c *Config) { c.LogMode = "async" }, "unknown log mode"},
		{"replicas", func(c *Config) { c.Broker.DesiredCount = 0 }, "desiredCount"},
		{"port", func(c *Config) { c.Database.Port = 70000 }, "invalid port"},
		{"subnets", func(c *Config) { c.PrivateSubnets = 0 }, "privateSubnets"},
		{"duplicate name", func(c *Config) { c.Broker.Name = "MySQL" }, "duplicate workload"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_IngressPorts(t *testing.T) {
	assert.Equal(t, []int{3306, 9092, 2181}, DefaultConfig().IngressPorts())
}

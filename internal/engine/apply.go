package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/expense-tracker/expense-infra-go/internal/lookup"
	"github.com/expense-tracker/expense-infra-go/internal/params"
)

var subVariable = regexp.MustCompile(`\$\{([^}]+)\}`)

type applyRun struct {
	engine  *Engine
	stack   string
	applied map[string]*Physical
}

// create assigns identifiers and attributes for a resource. Identifiers are
// derived from the stack name and logical ID only, so re-applying a template
// reproduces them.
func (r *applyRun) create(name, typ string, props map[string]any) *Physical {
	id := uuid.NewSHA1(namespace, []byte(r.stack+"/"+name))
	hex := strings.ReplaceAll(id.String(), "-", "")
	short := hex[:17]
	region := r.engine.region()
	arn := func(service, resource string) string {
		return fmt.Sprintf("arn:aws:%s:%s:%s:%s", service, region, accountID, resource)
	}
	str := func(key, fallback string) string {
		if v, ok := props[key].(string); ok && v != "" {
			return v
		}
		return fallback
	}

	p := &Physical{LogicalID: name, Type: typ, Attributes: map[string]string{}}
	switch typ {
	case "AWS::EC2::VPC":
		p.PhysicalID = "vpc-" + short
		p.Attributes["VpcId"] = p.PhysicalID
		p.Attributes["CidrBlock"] = str("CidrBlock", "")
	case "AWS::EC2::Subnet":
		p.PhysicalID = "subnet-" + short
		p.Attributes["SubnetId"] = p.PhysicalID
	case "AWS::EC2::InternetGateway":
		p.PhysicalID = "igw-" + short
		p.Attributes["InternetGatewayId"] = p.PhysicalID
	case "AWS::EC2::VPCGatewayAttachment":
		p.PhysicalID = "IGW|" + str("VpcId", "")
	case "AWS::EC2::EIP":
		p.PhysicalID = fmt.Sprintf("3.%d.%d.%d", id[0], id[1], id[2])
		p.Attributes["PublicIp"] = p.PhysicalID
		p.Attributes["AllocationId"] = "eipalloc-" + short
	case "AWS::EC2::NatGateway":
		p.PhysicalID = "nat-" + short
	case "AWS::EC2::RouteTable":
		p.PhysicalID = "rtb-" + short
		p.Attributes["RouteTableId"] = p.PhysicalID
	case "AWS::EC2::Route":
		p.PhysicalID = "rtb-" + short + "|" + str("DestinationCidrBlock", "")
	case "AWS::EC2::SubnetRouteTableAssociation":
		p.PhysicalID = "rtbassoc-" + short
	case "AWS::EC2::SecurityGroup":
		p.PhysicalID = "sg-" + short
		p.Attributes["GroupId"] = p.PhysicalID
		p.Attributes["VpcId"] = str("VpcId", "")
	case "AWS::ECS::Cluster":
		p.PhysicalID = str("ClusterName", shortName(r.stack, name)+"-"+hex[:12])
		p.Attributes["Arn"] = arn("ecs", "cluster/"+p.PhysicalID)
	case "AWS::ECS::TaskDefinition":
		p.PhysicalID = arn("ecs", "task-definition/"+str("Family", name)+":1")
		p.Attributes["TaskDefinitionArn"] = p.PhysicalID
	case "AWS::ECS::Service":
		p.PhysicalID = arn("ecs", "service/"+shortName(r.stack, name)+"-"+hex[:12])
		p.Attributes["ServiceArn"] = p.PhysicalID
		p.Attributes["Name"] = shortName(r.stack, name) + "-" + hex[:12]
	case "AWS::ElasticLoadBalancingV2::LoadBalancer":
		lbName := shortName(r.stack, name)
		p.PhysicalID = arn("elasticloadbalancing", "loadbalancer/net/"+lbName+"/"+hex[:16])
		p.Attributes["LoadBalancerName"] = lbName
		p.Attributes["LoadBalancerFullName"] = "net/" + lbName + "/" + hex[:16]
		p.Attributes["DNSName"] = fmt.Sprintf("%s-%s.elb.%s.amazonaws.com", lbName, hex[:16], region)
	case "AWS::ElasticLoadBalancingV2::TargetGroup":
		p.PhysicalID = arn("elasticloadbalancing", "targetgroup/"+shortName(r.stack, name)+"/"+hex[:16])
		p.Attributes["TargetGroupArn"] = p.PhysicalID
	case "AWS::ElasticLoadBalancingV2::Listener":
		p.PhysicalID = arn("elasticloadbalancing", "listener/net/"+hex[:16])
		p.Attributes["ListenerArn"] = p.PhysicalID
	case "AWS::ServiceDiscovery::PrivateDnsNamespace":
		p.PhysicalID = "ns-" + hex[:16]
		p.Attributes["Id"] = p.PhysicalID
		p.Attributes["Arn"] = arn("servicediscovery", "namespace/"+p.PhysicalID)
	case "AWS::ServiceDiscovery::Service":
		p.PhysicalID = "srv-" + hex[:16]
		p.Attributes["Id"] = p.PhysicalID
		p.Attributes["Arn"] = arn("servicediscovery", "service/"+p.PhysicalID)
		p.Attributes["Name"] = str("Name", name)
	case "AWS::SSM::Parameter":
		p.PhysicalID = str("Name", shortName(r.stack, name)+"-"+hex[:12])
		p.Attributes["Type"] = str("Type", "String")
		p.Attributes["Value"] = str("Value", "")
	case "AWS::Logs::LogGroup":
		p.PhysicalID = str("LogGroupName", r.stack+"-"+name+"-"+hex[:12])
		p.Attributes["Arn"] = arn("logs", "log-group:"+p.PhysicalID+":*")
	case "AWS::IAM::Role":
		p.PhysicalID = str("RoleName", r.stack+"-"+name+"-"+strings.ToUpper(hex[:12]))
		p.Attributes["Arn"] = fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, p.PhysicalID)
		p.Attributes["RoleId"] = "AROA" + strings.ToUpper(short)
	default:
		p.PhysicalID = name + "-" + hex[:12]
	}
	return p
}

// shortName mimics CloudFormation's truncated generated names.
func shortName(stack, logical string) string {
	trunc := func(s string, n int) string {
		if len(s) > n {
			return s[:n]
		}
		return s
	}
	return trunc(stack, 6) + "-" + trunc(logical, 5)
}

// sideEffects performs the externally visible effects of a created resource
// and returns the parameter name written, if any.
func (r *applyRun) sideEffects(ctx context.Context, p *Physical, props map[string]any) (params.Name, error) {
	switch p.Type {
	case "AWS::SSM::Parameter":
		name, ok := props["Name"].(string)
		if !ok || name == "" {
			return "", errors.New("parameter name must resolve to a string")
		}
		value, ok := props["Value"].(string)
		if !ok {
			return "", fmt.Errorf("parameter %s value must resolve to a string, got %T", name, props["Value"])
		}
		if r.engine.Params == nil {
			return "", nil
		}
		if err := r.engine.Params.Put(ctx, params.Name(name), value); err != nil {
			return "", err
		}
		return params.Name(name), nil
	case "AWS::EC2::VPC":
		if r.engine.Vpcs != nil {
			r.engine.Vpcs.Register(lookup.Vpc{ID: p.PhysicalID, CIDR: p.Attributes["CidrBlock"]})
		}
	}
	return "", nil
}

// resolve evaluates intrinsic functions in a JSON-shaped value.
func (r *applyRun) resolve(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 1 {
			for fn, args := range v {
				if strings.HasPrefix(fn, "Fn::") || fn == "Ref" {
					return r.intrinsic(fn, args)
				}
			}
		}
		out := make(map[string]any, len(v))
		for k, child := range v {
			resolved, err := r.resolve(child)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			resolved, err := r.resolve(child)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return value, nil
	}
}

func (r *applyRun) intrinsic(fn string, args any) (any, error) {
	switch fn {
	case "Ref":
		name, ok := args.(string)
		if !ok {
			return nil, fmt.Errorf("Ref expects a string, got %T", args)
		}
		return r.ref(name)

	case "Fn::GetAtt":
		var target, attr string
		switch a := args.(type) {
		case []any:
			if len(a) != 2 {
				return nil, fmt.Errorf("Fn::GetAtt expects 2 arguments, got %d", len(a))
			}
			target, _ = a[0].(string)
			attr, _ = a[1].(string)
		case string:
			parts := strings.SplitN(a, ".", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("Fn::GetAtt: malformed %q", a)
			}
			target, attr = parts[0], parts[1]
		default:
			return nil, fmt.Errorf("Fn::GetAtt: unexpected %T", args)
		}
		return r.getAtt(target, attr)

	case "Fn::Sub":
		switch a := args.(type) {
		case string:
			return r.sub(a, nil)
		case []any:
			if len(a) != 2 {
				return nil, fmt.Errorf("Fn::Sub expects 2 arguments, got %d", len(a))
			}
			s, _ := a[0].(string)
			raw, _ := a[1].(map[string]any)
			vars := make(map[string]string, len(raw))
			for k, v := range raw {
				resolved, err := r.resolve(v)
				if err != nil {
					return nil, err
				}
				vars[k] = fmt.Sprint(resolved)
			}
			return r.sub(s, vars)
		}
		return nil, fmt.Errorf("Fn::Sub: unexpected %T", args)

	case "Fn::Join":
		a, ok := args.([]any)
		if !ok || len(a) != 2 {
			return nil, errors.New("Fn::Join expects [delimiter, list]")
		}
		delim, _ := a[0].(string)
		list, err := r.resolve(a[1])
		if err != nil {
			return nil, err
		}
		items, _ := list.([]any)
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, delim), nil

	case "Fn::Select":
		a, ok := args.([]any)
		if !ok || len(a) != 2 {
			return nil, errors.New("Fn::Select expects [index, list]")
		}
		idx, err := toIndex(a[0])
		if err != nil {
			return nil, err
		}
		list, err := r.resolve(a[1])
		if err != nil {
			return nil, err
		}
		items, _ := list.([]any)
		if idx < 0 || idx >= len(items) {
			return nil, fmt.Errorf("Fn::Select index %d out of range (%d items)", idx, len(items))
		}
		return items[idx], nil

	case "Fn::GetAZs":
		region := r.engine.region()
		if s, ok := args.(string); ok && s != "" {
			region = s
		}
		return availabilityZones(region), nil
	}

	return nil, fmt.Errorf("unsupported intrinsic %s", fn)
}

// availabilityZones lists the simulated zones of region, as many as the
// largest real region has.
func availabilityZones(region string) []any {
	const letters = "abcdef"
	zones := make([]any, len(letters))
	for i := range letters {
		zones[i] = region + letters[i:i+1]
	}
	return zones
}

func (r *applyRun) ref(name string) (string, error) {
	switch name {
	case "AWS::Region":
		return r.engine.region(), nil
	case "AWS::AccountId":
		return accountID, nil
	case "AWS::StackName":
		return r.stack, nil
	case "AWS::Partition":
		return "aws", nil
	case "AWS::URLSuffix":
		return "amazonaws.com", nil
	}
	p := r.applied[name]
	if p == nil {
		return "", fmt.Errorf("%w: Ref %s", ErrOrdering, name)
	}
	return p.PhysicalID, nil
}

func (r *applyRun) getAtt(name, attr string) (string, error) {
	p := r.applied[name]
	if p == nil {
		return "", fmt.Errorf("%w: Fn::GetAtt %s.%s", ErrOrdering, name, attr)
	}
	v, ok := p.Attributes[attr]
	if !ok {
		return "", fmt.Errorf("%s (%s) has no attribute %s", name, p.Type, attr)
	}
	return v, nil
}

func (r *applyRun) sub(s string, vars map[string]string) (string, error) {
	var firstErr error
	out := subVariable.ReplaceAllStringFunc(s, func(match string) string {
		inner := match[2 : len(match)-1]
		if strings.HasPrefix(inner, "!") {
			return "${" + inner[1:] + "}"
		}
		if v, ok := vars[inner]; ok {
			return v
		}
		var (
			v   string
			err error
		)
		if parts := strings.SplitN(inner, ".", 2); len(parts) == 2 && !strings.HasPrefix(inner, "AWS::") {
			v, err = r.getAtt(parts[0], parts[1])
		} else {
			v, err = r.ref(inner)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func toIndex(v any) (int, error) {
	switch i := v.(type) {
	case float64:
		return int(i), nil
	case int:
		return i, nil
	case int64:
		return int(i), nil
	case string:
		return strconv.Atoi(i)
	}
	return 0, fmt.Errorf("Fn::Select index must be a number, got %T", v)
}

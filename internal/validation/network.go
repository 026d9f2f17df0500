package validation

import (
	"fmt"
	"sort"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/serialize"
)

const anyIPv4 = "0.0.0.0/0"

// CheckNetwork verifies the routing of a synthesized network template:
//   - one NAT gateway per zone
//   - every private subnet's default route targets the NAT gateway in the same zone
//     and reaches the gateway attachment through its dependencies
//   - every public default route targets the single internet gateway and
//     depends on its VPC attachment
//
// It returns one message per violation.
func CheckNetwork(tmpl *expenseinfra.Template, zones int) []string {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	nats := ofType(tmpl, "AWS::EC2::NatGateway")
	if len(nats) != zones {
		report("expected %d NAT gateways, found %d", zones, len(nats))
	}

	igws := ofType(tmpl, "AWS::EC2::InternetGateway")
	if len(igws) != 1 {
		report("expected 1 internet gateway, found %d", len(igws))
	}
	attachments := ofType(tmpl, "AWS::EC2::VPCGatewayAttachment")

	// route table -> subnet
	subnetOf := map[string]string{}
	for _, name := range ofType(tmpl, "AWS::EC2::SubnetRouteTableAssociation") {
		props := tmpl.Resources[name].Properties
		subnetOf[refTarget(props["RouteTableId"])] = refTarget(props["SubnetId"])
	}

	defaultRoute := map[string]string{}
	for _, name := range ofType(tmpl, "AWS::EC2::Route") {
		def := tmpl.Resources[name]
		if def.Properties["DestinationCidrBlock"] != anyIPv4 {
			continue
		}
		subnet := subnetOf[refTarget(def.Properties["RouteTableId"])]
		if subnet == "" {
			report("route %s: route table is not associated with a subnet", name)
			continue
		}
		defaultRoute[subnet] = name

		if gw := refTarget(def.Properties["GatewayId"]); gw != "" {
			if len(igws) == 1 && gw != igws[0] {
				report("route %s: targets %s, not the internet gateway", name, gw)
			}
			if !dependsOnAny(def, attachments) {
				report("route %s: does not depend on the gateway attachment", name)
			}
			if !isPublic(tmpl, subnet) {
				report("route %s: private subnet %s routes to the internet gateway", name, subnet)
			}
			continue
		}

		nat := refTarget(def.Properties["NatGatewayId"])
		if nat == "" {
			report("route %s: default route has no gateway", name)
			continue
		}
		natSubnet := refTarget(tmpl.Resources[nat].Properties["SubnetId"])
		want, ok1 := zoneIndex(tmpl, subnet)
		got, ok2 := zoneIndex(tmpl, natSubnet)
		if !ok1 || !ok2 || want != got {
			report("route %s: subnet %s routes to NAT gateway %s in another zone", name, subnet, nat)
		}
		if !follows(tmpl, name, attachments) {
			report("route %s: does not follow the gateway attachment", name)
		}
	}

	for _, name := range ofType(tmpl, "AWS::EC2::Subnet") {
		if _, ok := defaultRoute[name]; !ok {
			report("subnet %s has no default route", name)
		}
	}

	return problems
}

// ofType returns the sorted logical IDs of resources with the given type.
func ofType(tmpl *expenseinfra.Template, cfType string) []string {
	var names []string
	for name, def := range tmpl.Resources {
		if def.Type == cfType {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// refTarget returns the logical ID of a {"Ref": X} value.
func refTarget(v any) string {
	if m, ok := v.(map[string]any); ok {
		if name, ok := m["Ref"].(string); ok {
			return name
		}
	}
	return ""
}

func dependsOnAny(def expenseinfra.ResourceDef, names []string) bool {
	for _, dep := range def.DependsOn {
		for _, name := range names {
			if dep == name {
				return true
			}
		}
	}
	return false
}

// follows reports whether name reaches one of targets through Ref, GetAtt,
// Sub or DependsOn edges.
func follows(tmpl *expenseinfra.Template, name string, targets []string) bool {
	want := make(map[string]bool, len(targets))
	for _, t := range targets {
		want[t] = true
	}
	seen := map[string]bool{name: true}
	queue := []string{name}
	for len(queue) > 0 {
		def, ok := tmpl.Resources[queue[0]]
		queue = queue[1:]
		if !ok {
			continue
		}
		deps := append(serialize.References(def.Properties), def.DependsOn...)
		for _, dep := range deps {
			if want[dep] {
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

func isPublic(tmpl *expenseinfra.Template, subnet string) bool {
	public, _ := tmpl.Resources[subnet].Properties["MapPublicIpOnLaunch"].(bool)
	return public
}

// zoneIndex reads the index out of a subnet's {"Fn::Select": [i, {"Fn::GetAZs": ...}]}.
func zoneIndex(tmpl *expenseinfra.Template, subnet string) (int, bool) {
	az, ok := tmpl.Resources[subnet].Properties["AvailabilityZone"].(map[string]any)
	if !ok {
		return 0, false
	}
	args, ok := az["Fn::Select"].([]any)
	if !ok || len(args) != 2 {
		return 0, false
	}
	return toInt(args[0])
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		var i int
		if _, err := fmt.Sscanf(n, "%d", &i); err == nil {
			return i, true
		}
	}
	return 0, false
}

package validation

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
)

// CheckSecurityGroup verifies that the template declares exactly one
// security group whose ingress opens exactly ports, each as a single-port TCP
// rule scoped to cidr, and whose egress is unrestricted.
func CheckSecurityGroup(tmpl *expenseinfra.Template, cidr string, ports []int) []string {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	groups := ofType(tmpl, "AWS::EC2::SecurityGroup")
	if len(groups) != 1 {
		return []string{fmt.Sprintf("expected 1 security group, found %d", len(groups))}
	}
	name := groups[0]
	props := tmpl.Resources[name].Properties

	want := sets.New[int](ports...)
	got := sets.New[int]()
	for i, rule := range rules(props["SecurityGroupIngress"]) {
		from, _ := toInt(rule["FromPort"])
		to, _ := toInt(rule["ToPort"])
		if from != to {
			report("%s ingress %d: port range %d-%d, want a single port", name, i, from, to)
		}
		if rule["IpProtocol"] != "tcp" {
			report("%s ingress %d: protocol %v, want tcp", name, i, rule["IpProtocol"])
		}
		if rule["CidrIp"] != cidr {
			report("%s ingress %d: source %v, want %s", name, i, rule["CidrIp"], cidr)
		}
		if got.Has(from) {
			report("%s ingress %d: port %d opened twice", name, i, from)
		}
		got.Insert(from)
	}
	if missing := want.Difference(got); missing.Len() > 0 {
		report("%s: ports %v are not open", name, sets.List(missing))
	}
	if extra := got.Difference(want); extra.Len() > 0 {
		report("%s: unexpected ports %v are open", name, sets.List(extra))
	}

	open := false
	for _, rule := range rules(props["SecurityGroupEgress"]) {
		if fmt.Sprint(rule["IpProtocol"]) == "-1" && rule["CidrIp"] == anyIPv4 {
			open = true
		}
	}
	if !open {
		report("%s: egress is not unrestricted", name)
	}

	return problems
}

func rules(v any) []map[string]any {
	list, _ := v.([]any)
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// Package schema checks synthesized resources against the property rules of
// the resource types the expense tracker declares.
package schema

import (
	"fmt"
	"sort"
	"strings"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
)

// Options configures schema validation.
type Options struct {
	// Strict warns about properties the rule table does not know.
	Strict bool
}

// Result contains schema validation results.
type Result struct {
	Valid    bool
	Errors   []expenseinfra.SchemaError
	Warnings []expenseinfra.SchemaError
}

func (r *Result) fail(resource, property, format string, args ...any) {
	r.Errors = append(r.Errors, expenseinfra.SchemaError{
		Resource: resource, Property: property, Message: fmt.Sprintf(format, args...),
	})
}

func (r *Result) warn(resource, property, format string, args ...any) {
	r.Warnings = append(r.Warnings, expenseinfra.SchemaError{
		Resource: resource, Property: property, Message: fmt.Sprintf(format, args...),
	})
}

// ValidateTemplate checks every resource of template, in logical ID order.
func ValidateTemplate(template *expenseinfra.Template, opts Options) (*Result, error) {
	if template == nil {
		return nil, fmt.Errorf("template is nil")
	}
	result := &Result{}

	for _, name := range sortedKeys(template.Resources) {
		def := template.Resources[name]
		if !isValidResourceType(def.Type) {
			result.fail(name, "Type", "invalid resource type format: %s", def.Type)
		}
		rules, ok := resourceSchemas[def.Type]
		if !ok {
			result.warn(name, "Type", "unknown resource type: %s (schema not available for validation)", def.Type)
			continue
		}
		rules.validate(name, def.Properties, opts, result)
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

// validate applies the rules of one resource type to props.
func (s resourceSchema) validate(name string, props map[string]any, opts Options, result *Result) {
	for _, prop := range sortedKeys(s.properties) {
		if s.properties[prop].required {
			if _, ok := props[prop]; !ok {
				result.fail(name, prop, "missing required property: %s", prop)
			}
		}
	}

	for _, prop := range sortedKeys(props) {
		value := props[prop]
		rule, ok := s.properties[prop]
		if !ok {
			if opts.Strict {
				result.warn(name, prop, "unknown property: %s", prop)
			}
			continue
		}
		if isIntrinsic(value) {
			continue
		}
		if !rule.kind.accepts(value) {
			result.fail(name, prop, "expected type %s", rule.kind)
			continue
		}
		if len(rule.allowed) > 0 {
			if v, ok := value.(string); ok && !contains(rule.allowed, v) {
				result.fail(name, prop, "value %q not in allowed values: %v", v, rule.allowed)
			}
		}
		if rule.check != nil {
			if msg := rule.check(value); msg != "" {
				result.fail(name, prop, "%s", msg)
			}
		}
	}

	if s.check != nil {
		for _, e := range s.check(props) {
			e.Resource = name
			result.Errors = append(result.Errors, e)
		}
	}
}

// kind is the JSON shape a property value must have.
type kind int

const (
	kindString kind = iota
	kindInteger
	kindBoolean
	kindList
	kindMap
	kindJSON
)

func (k kind) String() string {
	switch k {
	case kindString:
		return "String"
	case kindInteger:
		return "Integer"
	case kindBoolean:
		return "Boolean"
	case kindList:
		return "List"
	case kindMap:
		return "Map"
	}
	return "Json"
}

func (k kind) accepts(value any) bool {
	switch k {
	case kindString:
		_, ok := value.(string)
		return ok
	case kindInteger:
		_, ok := toInt(value)
		return ok
	case kindBoolean:
		_, ok := value.(bool)
		return ok
	case kindList:
		_, ok := value.([]any)
		return ok
	case kindMap:
		_, ok := value.(map[string]any)
		return ok
	}
	return true
}

// isIntrinsic reports whether value is a Ref or Fn:: object, which only
// resolves at deploy time.
func isIntrinsic(value any) bool {
	m, ok := value.(map[string]any)
	if !ok || len(m) != 1 {
		return false
	}
	for key := range m {
		if key == "Ref" || strings.HasPrefix(key, "Fn::") {
			return true
		}
	}
	return false
}

// isValidResourceType checks the AWS::Service::Resource or Custom:: shape.
func isValidResourceType(resourceType string) bool {
	if strings.HasPrefix(resourceType, "Custom::") {
		return true
	}
	parts := strings.Split(resourceType, "::")
	return len(parts) == 3 && parts[0] == "AWS" && parts[1] != "" && parts[2] != ""
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	}
	return 0, false
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package engine is an in-memory stand-in for CloudFormation. It applies a
// synthesized template in deployment order, assigns stable physical IDs,
// evaluates intrinsics, and performs the side effects the expense tracker
// stacks rely on: writing SSM parameters and registering VPCs for lookup.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/lookup"
	"github.com/expense-tracker/expense-infra-go/internal/params"
)

// ErrOrdering is returned when a resource is applied before something it
// refers to or depends on.
var ErrOrdering = errors.New("resource applied before its dependency")

// DefaultRegion is used when Engine.Region is empty.
const DefaultRegion = "us-east-1"

const accountID = "123456789012"

// namespace seeds physical ID generation.
var namespace = uuid.MustParse("6f1c1f0e-7d0a-4c57-9d7e-3d3c0b5f2a11")

// Physical is an applied resource.
type Physical struct {
	LogicalID  string            `json:"logicalId"`
	Type       string            `json:"type"`
	PhysicalID string            `json:"physicalId"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Result is the outcome of applying one stack.
type Result struct {
	Stack             string            `json:"stack"`
	Resources         []*Physical       `json:"resources"`
	Outputs           map[string]string `json:"outputs,omitempty"`
	ParametersWritten []params.Name     `json:"parametersWritten,omitempty"`
}

// Engine applies templates against in-memory state.
type Engine struct {
	Region string
	Params params.Store
	Vpcs   *lookup.StaticVpcs
	Logger logrus.FieldLogger

	mu     sync.Mutex
	stacks map[string]*Result
}

// New creates an engine writing to store and registering VPCs in vpcs.
func New(store params.Store, vpcs *lookup.StaticVpcs, logger logrus.FieldLogger) *Engine {
	return &Engine{Region: DefaultRegion, Params: store, Vpcs: vpcs, Logger: logger}
}

// Stack returns the last result applied for name.
func (e *Engine) Stack(name string) (*Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.stacks[name]
	return r, ok
}

func (e *Engine) region() string {
	if e.Region == "" {
		return DefaultRegion
	}
	return e.Region
}

func (e *Engine) logger() logrus.FieldLogger {
	if e.Logger == nil {
		return logrus.StandardLogger()
	}
	return e.Logger
}

// Apply creates every resource of tmpl in order. order must list each
// template resource exactly once.
func (e *Engine) Apply(ctx context.Context, stackName string, tmpl *expenseinfra.Template, order []string) (*Result, error) {
	resources, outputs, err := normalize(tmpl)
	if err != nil {
		return nil, err
	}
	if err := checkOrder(resources, order); err != nil {
		return nil, err
	}

	run := &applyRun{
		engine:  e,
		stack:   stackName,
		applied: make(map[string]*Physical, len(order)),
	}
	result := &Result{Stack: stackName}
	log := e.logger().WithField("stack", stackName)

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res := resources[name]
		for _, dep := range res.DependsOn {
			if run.applied[dep] == nil {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrOrdering, name, dep)
			}
		}

		props, err := run.resolve(res.Properties)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		propMap, _ := props.(map[string]any)

		phys := run.create(name, res.Type, propMap)
		written, err := run.sideEffects(ctx, phys, propMap)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if written != "" {
			result.ParametersWritten = append(result.ParametersWritten, written)
		}

		run.applied[name] = phys
		result.Resources = append(result.Resources, phys)
		log.WithFields(logrus.Fields{
			"resource": name,
			"type":     res.Type,
			"physical": phys.PhysicalID,
		}).Debug("resource created")
	}

	if len(outputs) > 0 {
		result.Outputs = make(map[string]string, len(outputs))
		for id, value := range outputs {
			resolved, err := run.resolve(value)
			if err != nil {
				return nil, fmt.Errorf("output %s: %w", id, err)
			}
			result.Outputs[id] = fmt.Sprint(resolved)
		}
	}

	e.mu.Lock()
	if e.stacks == nil {
		e.stacks = make(map[string]*Result)
	}
	e.stacks[stackName] = result
	e.mu.Unlock()

	log.WithField("resources", len(result.Resources)).Info("stack applied")
	return result, nil
}

type resourceDef struct {
	Type       string         `json:"Type"`
	Properties map[string]any `json:"Properties"`
	DependsOn  []string       `json:"DependsOn"`
}

// normalize round-trips the template through JSON so every value has the
// shape CloudFormation would receive.
func normalize(tmpl *expenseinfra.Template) (map[string]resourceDef, map[string]any, error) {
	data, err := json.Marshal(tmpl)
	if err != nil {
		return nil, nil, err
	}
	var doc struct {
		Resources map[string]resourceDef `json:"Resources"`
		Outputs   map[string]struct {
			Value any `json:"Value"`
		} `json:"Outputs"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, err
	}

	outputs := make(map[string]any, len(doc.Outputs))
	for id, o := range doc.Outputs {
		outputs[id] = o.Value
	}
	return doc.Resources, outputs, nil
}

func checkOrder(resources map[string]resourceDef, order []string) error {
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if _, ok := resources[name]; !ok {
			return fmt.Errorf("order lists unknown resource %s", name)
		}
		if seen[name] {
			return fmt.Errorf("order lists %s twice", name)
		}
		seen[name] = true
	}
	if len(seen) != len(resources) {
		var missing []string
		for name := range resources {
			if !seen[name] {
				missing = append(missing, name)
			}
		}
		sort.Strings(missing)
		return fmt.Errorf("order is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Package validation checks synthesized expense tracker templates.
//
// CheckNetwork and CheckSecurityGroup verify the routing and ingress rules
// the two stacks promise each other. LintStack runs cfn-lint-go over a
// synthesized stack and attributes each match to the resource it concerns.
package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	"github.com/expense-tracker/expense-infra-go/internal/stack"
	"github.com/expense-tracker/expense-infra-go/internal/template"
)

// Lint levels reported by cfn-lint.
const (
	LevelError   = "Error"
	LevelWarning = "Warning"
)

// LintFinding is one cfn-lint match inside a stack.
type LintFinding struct {
	Stack string `json:"stack"`
	// Resource is the logical ID the match points into, empty for
	// template-level matches.
	Resource string `json:"resource,omitempty"`
	// Path is the location below the resource, e.g. "Properties/Cpu".
	Path    string `json:"path,omitempty"`
	Rule    string `json:"rule"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (f LintFinding) String() string {
	where := f.Stack
	if f.Resource != "" {
		where += "/" + f.Resource
	}
	if f.Path != "" {
		where += " (" + f.Path + ")"
	}
	return fmt.Sprintf("%s: %s %s", where, f.Rule, f.Message)
}

// LintReport holds the findings for one stack, ordered by resource then rule.
type LintReport struct {
	Stack    string
	Findings []LintFinding
}

// Count returns the number of findings at level.
func (r *LintReport) Count(level string) int {
	n := 0
	for _, f := range r.Findings {
		if f.Level == level {
			n++
		}
	}
	return n
}

// Passed is true when nothing was reported at error level.
func (r *LintReport) Passed() bool {
	return r.Count(LevelError) == 0
}

// Resources returns the logical IDs with at least one finding.
func (r *LintReport) Resources() []string {
	seen := map[string]bool{}
	var ids []string
	for _, f := range r.Findings {
		if f.Resource != "" && !seen[f.Resource] {
			seen[f.Resource] = true
			ids = append(ids, f.Resource)
		}
	}
	return ids
}

// LintStack writes s to a scratch file and lints it.
func LintStack(s *stack.Synthesized) (*LintReport, error) {
	data, err := template.ToJSON(s.Template)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}

	dir, err := os.MkdirTemp("", "expense-infra-lint")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, s.Name+".template.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}

	matches, err := lint.New(lint.Options{}).LintFile(path)
	if err != nil {
		return nil, fmt.Errorf("cfn-lint %s: %w", s.Name, err)
	}

	report := &LintReport{Stack: s.Name}
	for _, m := range matches {
		report.Findings = append(report.Findings, attribute(s.Name, m))
	}
	sort.SliceStable(report.Findings, func(i, j int) bool {
		a, b := report.Findings[i], report.Findings[j]
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		return a.Rule < b.Rule
	})
	return report, nil
}

// attribute maps a match's template path onto the logical ID it falls under.
func attribute(stackName string, m lint.Match) LintFinding {
	f := LintFinding{
		Stack:   stackName,
		Rule:    m.Rule.ID,
		Level:   m.Level,
		Message: m.Message,
	}

	path := make([]string, len(m.Location.Path))
	for i, p := range m.Location.Path {
		path[i] = fmt.Sprint(p)
	}
	if len(path) >= 2 && path[0] == "Resources" {
		f.Resource = path[1]
		path = path[2:]
	}
	f.Path = strings.Join(path, "/")
	return f
}

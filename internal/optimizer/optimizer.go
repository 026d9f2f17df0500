// Package optimizer suggests security, cost, performance, and reliability
// improvements for synthesized stacks.
package optimizer

import (
	"sort"

	expenseinfra "github.com/expense-tracker/expense-infra-go"
	"github.com/expense-tracker/expense-infra-go/internal/stack"
)

// Options configures the optimizer.
type Options struct {
	// Category filters suggestions: "all", "security", "cost", "performance", "reliability"
	Category string
}

// Optimize applies every rule to every resource of stacks.
func Optimize(stacks []*stack.Synthesized, opts Options) *expenseinfra.OptimizeResult {
	result := &expenseinfra.OptimizeResult{Suggestions: []expenseinfra.OptimizeSuggestion{}}

	for _, s := range stacks {
		for _, res := range s.Resources {
			for _, suggestion := range analyzeResource(res, opts.Category) {
				suggestion.Stack = s.Name
				result.Suggestions = append(result.Suggestions, suggestion)
			}
		}
		for _, rule := range stackRules {
			if !matches(rule, opts.Category) {
				continue
			}
			for _, suggestion := range rule.CheckStack(s) {
				suggestion.Rule = rule.ID
				suggestion.Stack = s.Name
				result.Suggestions = append(result.Suggestions, suggestion)
			}
		}
	}

	sort.SliceStable(result.Suggestions, func(i, j int) bool {
		a, b := result.Suggestions[i], result.Suggestions[j]
		if a.Stack != b.Stack {
			return a.Stack < b.Stack
		}
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		return a.Rule < b.Rule
	})

	result.Summary = calculateSummary(result.Suggestions)
	return result
}

// analyzeResource applies the rules for res's type.
func analyzeResource(res expenseinfra.DeclaredResource, category string) []expenseinfra.OptimizeSuggestion {
	var suggestions []expenseinfra.OptimizeSuggestion

	for _, rule := range resourceRules[res.Type] {
		if !matches(rule, category) {
			continue
		}
		for _, suggestion := range rule.Check(res) {
			suggestion.Rule = rule.ID
			suggestion.Resource = res.Name
			suggestion.Category = rule.Category
			suggestions = append(suggestions, suggestion)
		}
	}

	return suggestions
}

func matches(rule Rule, category string) bool {
	return category == "" || category == "all" || rule.Category == category
}

// calculateSummary tallies suggestions by category.
func calculateSummary(suggestions []expenseinfra.OptimizeSuggestion) expenseinfra.OptimizeSummary {
	summary := expenseinfra.OptimizeSummary{}
	for _, s := range suggestions {
		switch s.Category {
		case "security":
			summary.Security++
		case "cost":
			summary.Cost++
		case "performance":
			summary.Performance++
		case "reliability":
			summary.Reliability++
		}
		summary.Total++
	}
	return summary
}

// Rule is an optimization rule. Resource rules set Check; whole-stack rules
// set CheckStack.
type Rule struct {
	ID         string
	Category   string
	Title      string
	Check      func(res expenseinfra.DeclaredResource) []expenseinfra.OptimizeSuggestion
	CheckStack func(s *stack.Synthesized) []expenseinfra.OptimizeSuggestion
}

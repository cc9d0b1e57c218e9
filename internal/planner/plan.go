package planner

import "strings"

// Strategy is the structural category a query is routed to.
type Strategy string

const (
	StrategyEdgeNgram          Strategy = "edge_ngram"
	StrategyRegexScan          Strategy = "regex_scan"
	StrategyBooleanCombination Strategy = "boolean_combination"
	StrategyRangeScan          Strategy = "range_scan"
	StrategyFullScan           Strategy = "full_scan"
)

// Cost is a coarse estimate of how expensive a strategy is to execute,
// used only for logging/telemetry — it does not feed back into ranking.
type Cost string

const (
	CostLow    Cost = "low"
	CostMedium Cost = "medium"
	CostHigh   Cost = "high"
)

// Plan is the purely structural classification of a query: no term
// frequencies, no learned weights, just shape.
type Plan struct {
	AST      Node
	Strategy Strategy
	Cost     Cost
}

// Classify parses query and assigns it a Strategy/Cost based only on its
// surface shape — wildcard markers, boolean operators, and term count.
func Classify(query string) Plan {
	ast := Parse(query)
	return Plan{
		AST:      ast,
		Strategy: classifyStrategy(ast, query),
		Cost:     costFor(ast),
	}
}

func classifyStrategy(ast Node, query string) Strategy {
	if isBoolean(ast) {
		return StrategyBooleanCombination
	}
	if term, ok := ast.(Term); ok {
		return classifyTermStrategy(term.Text)
	}
	if _, ok := ast.(Quoted); ok {
		return StrategyBooleanCombination
	}
	if strings.TrimSpace(query) == "" {
		return StrategyFullScan
	}
	return StrategyFullScan
}

func classifyTermStrategy(text string) Strategy {
	switch {
	case strings.HasPrefix(text, "*") && strings.HasSuffix(text, "*") && len(text) > 2:
		return StrategyRegexScan
	case strings.HasPrefix(text, "*") && len(text) > 1:
		return StrategyRegexScan
	case strings.HasSuffix(text, "*") && len(text) > 1:
		return StrategyEdgeNgram
	default:
		return StrategyFullScan
	}
}

// isBoolean reports whether ast contains any And/Or/Not combinator, i.e.
// whether it's a multi-clause boolean query rather than a single term or
// phrase.
func isBoolean(ast Node) bool {
	switch ast.(type) {
	case And, Or, Not:
		return true
	default:
		return false
	}
}

func costFor(ast Node) Cost {
	switch n := ast.(type) {
	case Term:
		return classifyWildcardCost(n.Text)
	case Quoted:
		return CostMedium
	case Not:
		return CostMedium
	case And, Or:
		return CostHigh
	default:
		return CostLow
	}
}

func classifyWildcardCost(text string) Cost {
	switch classifyTermStrategy(text) {
	case StrategyRegexScan:
		return CostHigh
	case StrategyEdgeNgram:
		return CostLow
	default:
		return CostLow
	}
}

// IsRangeQuery reports whether filters carry a created_at bound. Classify
// does not consult it and never assigns StrategyRangeScan; a created_at
// bound is applied as a filter alongside whatever strategy the text
// query's shape selects.
func IsRangeQuery(hasCreatedAfter, hasCreatedBefore bool) bool {
	return hasCreatedAfter || hasCreatedBefore
}

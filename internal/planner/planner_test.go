package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_ImplicitAnd(t *testing.T) {
	ast := Parse("foo bar")
	and, ok := ast.(And)
	assert.True(t, ok)
	assert.Equal(t, Term{Text: "foo"}, and.Left)
	assert.Equal(t, Term{Text: "bar"}, and.Right)
}

func TestParse_ExplicitOr(t *testing.T) {
	ast := Parse("foo OR bar")
	or, ok := ast.(Or)
	assert.True(t, ok)
	assert.Equal(t, Term{Text: "foo"}, or.Left)
	assert.Equal(t, Term{Text: "bar"}, or.Right)
}

func TestParse_Not(t *testing.T) {
	ast := Parse("foo NOT bar")
	and, ok := ast.(And)
	assert.True(t, ok)
	not, ok := and.Right.(Not)
	assert.True(t, ok)
	assert.Equal(t, Term{Text: "bar"}, not.Child)
}

func TestParse_QuotedPhrase(t *testing.T) {
	ast := Parse(`"foo bar" baz`)
	and, ok := ast.(And)
	assert.True(t, ok)
	assert.Equal(t, Quoted{Text: "foo bar"}, and.Left)
	assert.Equal(t, Term{Text: "baz"}, and.Right)
}

func TestParse_Parentheses(t *testing.T) {
	ast := Parse("(foo OR bar) baz")
	and, ok := ast.(And)
	assert.True(t, ok)
	or, ok := and.Left.(Or)
	assert.True(t, ok)
	assert.Equal(t, Term{Text: "foo"}, or.Left)
}

func TestClassify_Wildcards(t *testing.T) {
	assert.Equal(t, StrategyEdgeNgram, Classify("foo*").Strategy)
	assert.Equal(t, StrategyRegexScan, Classify("*foo").Strategy)
	assert.Equal(t, StrategyRegexScan, Classify("*foo*").Strategy)
	assert.Equal(t, StrategyFullScan, Classify("foo").Strategy)
}

func TestClassify_Boolean(t *testing.T) {
	p := Classify("foo AND bar")
	assert.Equal(t, StrategyBooleanCombination, p.Strategy)
	assert.Equal(t, CostHigh, p.Cost)
}

func TestClassify_EmptyQuery(t *testing.T) {
	p := Classify("")
	assert.Equal(t, StrategyFullScan, p.Strategy)
}

func TestClassify_QuotedPhraseIsBooleanCombination(t *testing.T) {
	p := Classify(`"foo bar"`)
	assert.Equal(t, StrategyBooleanCombination, p.Strategy)
	assert.Equal(t, CostMedium, p.Cost)
}

func TestClassify_EdgeNgramCostIsLow(t *testing.T) {
	p := Classify("foo*")
	assert.Equal(t, StrategyEdgeNgram, p.Strategy)
	assert.Equal(t, CostLow, p.Cost)
}

func TestIsRangeQuery(t *testing.T) {
	assert.True(t, IsRangeQuery(true, false))
	assert.True(t, IsRangeQuery(false, true))
	assert.False(t, IsRangeQuery(false, false))
}

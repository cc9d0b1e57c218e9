package lexical

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/justSteve/coding-agent-session-search/internal/planner"
	"github.com/justSteve/coding-agent-session-search/internal/schema"
)

// buildQuery translates a parsed planner.Node into a bleve query tree,
// resolving wildcard terms per the strategy table: bareword -> should
// match on content/title (+ their prefix siblings), "foo*" -> prefix-field
// term match, "*foo"/"*foo*" -> anchored regex on content/title, "foo bar"
// quoted -> phrase match. wildcardFallback is set when a regex fallback
// was used anywhere in the tree.
func buildQuery(ast planner.Node) (bleveQuery.Query, bool) {
	switch n := ast.(type) {
	case planner.Term:
		return termQuery(n.Text)
	case planner.Quoted:
		return phraseQuery(n.Text), false
	case planner.And:
		l, lf := buildQuery(n.Left)
		r, rf := buildQuery(n.Right)
		cq := bleve.NewConjunctionQuery(l, r)
		return cq, lf || rf
	case planner.Or:
		l, lf := buildQuery(n.Left)
		r, rf := buildQuery(n.Right)
		dq := bleve.NewDisjunctionQuery(l, r)
		return dq, lf || rf
	case planner.Not:
		child, cf := buildQuery(n.Child)
		must := bleve.NewMatchAllQuery()
		bq := bleve.NewBooleanQuery()
		bq.AddMust(must)
		bq.AddMustNot(child)
		return bq, cf
	default:
		return bleve.NewMatchAllQuery(), false
	}
}

func termQuery(text string) (bleveQuery.Query, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return bleve.NewMatchNoneQuery(), false
	}

	switch {
	case strings.HasPrefix(text, "*") && strings.HasSuffix(text, "*") && len(text) > 2:
		return regexFallback(strings.Trim(text, "*")), true
	case strings.HasPrefix(text, "*") && len(text) > 1:
		return regexFallback(strings.TrimPrefix(text, "*")), true
	case strings.HasSuffix(text, "*") && len(text) > 1:
		literal := strings.TrimSuffix(text, "*")
		pt := bleve.NewPrefixQuery(strings.ToLower(literal))
		pt.SetField(schema.FieldTitlePrefix)
		pc := bleve.NewPrefixQuery(strings.ToLower(literal))
		pc.SetField(schema.FieldContentPrefix)
		return bleve.NewDisjunctionQuery(pt, pc), false
	default:
		mt := bleve.NewMatchQuery(text)
		mt.SetField(schema.FieldTitle)
		mc := bleve.NewMatchQuery(text)
		mc.SetField(schema.FieldContent)
		mtp := bleve.NewMatchQuery(text)
		mtp.SetField(schema.FieldTitlePrefix)
		mcp := bleve.NewMatchQuery(text)
		mcp.SetField(schema.FieldContentPrefix)
		return bleve.NewDisjunctionQuery(mt, mc, mtp, mcp), false
	}
}

// regexFallback builds an anchored, case-insensitive regex against title
// and content for *foo and *foo* patterns, which can't be served by the
// edge-n-gram prefix fields.
func regexFallback(literal string) bleveQuery.Query {
	pattern := fmt.Sprintf("(?i).*%s.*", regexEscape(literal))
	rt := bleve.NewRegexpQuery(pattern)
	rt.SetField(schema.FieldTitle)
	rc := bleve.NewRegexpQuery(pattern)
	rc.SetField(schema.FieldContent)
	return bleve.NewDisjunctionQuery(rt, rc)
}

func regexEscape(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`, `.`, `\.`, `+`, `\+`, `(`, `\(`, `)`, `\)`,
		`[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`, `^`, `\^`, `$`, `\$`, `|`, `\|`,
	)
	return replacer.Replace(s)
}

func phraseQuery(phrase string) bleveQuery.Query {
	mp := bleve.NewMatchPhraseQuery(phrase)
	mp.SetField(schema.FieldContent)
	return mp
}

type classification struct {
	ast      planner.Node
	strategy string
}

// classify wraps planner.Classify, mapping its structural strategy names
// onto the ones surfaced in SearchMeta.Strategy.
func classify(queryText string) classification {
	p := planner.Classify(queryText)
	strategy := StrategyTerm
	switch p.Strategy {
	case planner.StrategyEdgeNgram:
		strategy = StrategyPrefix
	case planner.StrategyRegexScan:
		strategy = StrategyRegexFallback
	case planner.StrategyBooleanCombination:
		strategy = StrategyBoolean
		if _, ok := p.AST.(planner.Quoted); ok {
			strategy = StrategyPhrase
		}
	}
	return classification{ast: p.AST, strategy: strategy}
}

// buildFilterQuery translates Filters into Must clauses: exact-match terms
// on agent/workspace/source_id/origin_kind and a numeric range on
// created_at.
func buildFilterQuery(f Filters) bleveQuery.Query {
	bq := bleve.NewBooleanQuery()
	any := false

	addExact := func(field, value string) {
		if value == "" {
			return
		}
		tq := bleve.NewTermQuery(value)
		tq.SetField(field)
		bq.AddMust(tq)
		any = true
	}
	addExact(schema.FieldAgent, f.Agent)
	addExact(schema.FieldWorkspace, f.Workspace)
	addExact(schema.FieldSourceID, f.SourceID)
	addExact(schema.FieldOriginKind, string(f.Origin))

	if f.CreatedAfter != 0 || f.CreatedBefore != 0 {
		var min, max *float64
		inclusive := true
		if f.CreatedAfter != 0 {
			v := float64(f.CreatedAfter)
			min = &v
		}
		if f.CreatedBefore != 0 {
			v := float64(f.CreatedBefore)
			max = &v
		}
		rq := bleve.NewNumericRangeInclusiveQuery(min, max, &inclusive, &inclusive)
		rq.SetField(schema.FieldCreatedAt)
		bq.AddMust(rq)
		any = true
	}

	if !any {
		return nil
	}
	return bq
}

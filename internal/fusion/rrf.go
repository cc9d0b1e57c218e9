// Package fusion implements the hybrid search façade's Reciprocal Rank
// Fusion merge: the lexical and semantic engines are run over the same
// filter set and their independently ranked hit lists are combined into a
// single ranking, without either engine ever seeing the other's scores.
package fusion

import (
	"sort"

	"github.com/justSteve/coding-agent-session-search/internal/lexical"
)

// DefaultK is the RRF smoothing constant used when none is configured.
const DefaultK = 60

// Fused is one document's merged ranking, carrying enough of each engine's
// contribution to support the tie-break rule and downstream dedup/snippet
// passes.
type Fused struct {
	Hit         lexical.Hit
	Score       float64
	LexicalRank int     // 1-indexed; 0 if absent from the lexical list
	VectorRank  int     // 1-indexed; 0 if absent from the vector list
	LexScore    float64 // raw BM25 score, 0 if absent from the lexical list
	VecScore    float64 // raw dot-product score, 0 if absent from the vector list
}

// Fuser merges a lexical and a semantic ranked list with the RRF formula
// Σ 1/(K+rank_e(d)), where an engine a document is absent from contributes
// zero rather than a penalized missing-rank term. Ties break on the higher
// of the two individual per-engine scores, then on doc_id ascending — a
// simpler two-level tie-break than a deeper multi-level one, since
// this formula has no per-engine weight to break on.
type Fuser struct {
	K int
}

// New creates a Fuser with the given RRF constant. k <= 0 uses DefaultK.
func New(k int) *Fuser {
	if k <= 0 {
		k = DefaultK
	}
	return &Fuser{K: k}
}

// candidate accumulates one document's lexical/vector contributions before
// the final RRF sum and sort.
type candidate struct {
	docID       uint64
	hit         lexical.Hit
	lexicalRank int
	vectorRank  int
	lexScore    float64
	vecScore    float64
}

// Fuse combines lexical hits (BM25-scored) and vector hits (dot-product
// scored, pre-converted to lexical.Hit by the caller) into a single RRF
// ranking. Both inputs are assumed already ranked (index 0 = best).
func (f *Fuser) Fuse(lexicalHits, vectorHits []lexical.Hit) []Fused {
	if len(lexicalHits) == 0 && len(vectorHits) == 0 {
		return []Fused{}
	}

	byDoc := make(map[uint64]*candidate, len(lexicalHits)+len(vectorHits))
	order := make([]uint64, 0, len(lexicalHits)+len(vectorHits))

	get := func(h lexical.Hit) *candidate {
		c, ok := byDoc[h.DocID]
		if !ok {
			c = &candidate{docID: h.DocID, hit: h}
			byDoc[h.DocID] = c
			order = append(order, h.DocID)
		}
		return c
	}

	for i, h := range lexicalHits {
		c := get(h)
		c.lexicalRank = i + 1
		c.lexScore = h.Score
		if len(c.hit.MatchedTerms) == 0 {
			c.hit.MatchedTerms = h.MatchedTerms
		}
	}
	for i, h := range vectorHits {
		c := get(h)
		c.vectorRank = i + 1
		c.vecScore = h.Score
		// A vector-only hit has no BM25 title/content populated by the
		// lexical engine; keep the vector engine's copy of the fields.
		if c.lexicalRank == 0 {
			c.hit = h
		}
	}

	out := make([]Fused, 0, len(order))
	for _, id := range order {
		c := byDoc[id]
		var score float64
		if c.lexicalRank > 0 {
			score += 1.0 / float64(f.K+c.lexicalRank)
		}
		if c.vectorRank > 0 {
			score += 1.0 / float64(f.K+c.vectorRank)
		}
		out = append(out, Fused{
			Hit:         c.hit,
			Score:       score,
			LexicalRank: c.lexicalRank,
			VectorRank:  c.vectorRank,
			LexScore:    c.lexScore,
			VecScore:    c.vecScore,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

// less reports whether a should rank before b: higher fused score first,
// then the higher of each side's own individual per-engine score, then
// doc_id ascending as the final deterministic tie-break.
func less(a, b Fused) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	aInd, bInd := individualScore(a), individualScore(b)
	if aInd != bInd {
		return aInd > bInd
	}
	return a.Hit.DocID < b.Hit.DocID
}

func individualScore(f Fused) float64 {
	if f.LexScore > f.VecScore {
		return f.LexScore
	}
	return f.VecScore
}

package tokenizer

import (
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

// Names under which this package's tokenizer, edge-n-gram filter, and
// composed analyzers are registered with bleve's registry, the same
// init-time registration pattern used for custom bleve tokenizers.
const (
	TokenizerName       = "core_tokenizer"
	EdgeNgramFilterName = "core_edge_ngram"
	ContentAnalyzerName = "core_content_analyzer"
	PrefixAnalyzerName  = "core_prefix_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(TokenizerName, tokenizerConstructor)
	_ = registry.RegisterTokenFilter(EdgeNgramFilterName, edgeNgramFilterConstructor)
}

func tokenizerConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveTokenizer{}, nil
}

// bleveTokenizer adapts Tokenize to bleve's analysis.Tokenizer interface.
type bleveTokenizer struct{}

func (t *bleveTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := Tokenize(text)

	stream := make(analysis.TokenStream, 0, len(tokens))
	offset := 0
	for i, tok := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), tok)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(tok)
		stream = append(stream, &analysis.Token{
			Term:     []byte(tok),
			Start:    start,
			End:      end,
			Position: i + 1,
			Type:     analysis.AlphaNumeric,
		})
		if end <= len(text) {
			offset = end
		}
	}
	return stream
}

func edgeNgramFilterConstructor(_ map[string]interface{}, _ *registry.Cache) (analysis.TokenFilter, error) {
	return &edgeNgramFilter{}, nil
}

// edgeNgramFilter expands each incoming token into its edge-n-gram
// prefixes, feeding the title_prefix/content_prefix fields used by the
// `foo*` wildcard strategy.
type edgeNgramFilter struct{}

func (f *edgeNgramFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	var out analysis.TokenStream
	pos := 1
	for _, tok := range input {
		for _, prefix := range EdgePrefixes(string(tok.Term)) {
			out = append(out, &analysis.Token{
				Term:     []byte(prefix),
				Start:    tok.Start,
				End:      tok.Start + len(prefix),
				Position: pos,
				Type:     analysis.AlphaNumeric,
			})
			pos++
		}
	}
	return out
}

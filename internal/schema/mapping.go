package schema

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"

	coretok "github.com/justSteve/coding-agent-session-search/internal/tokenizer"
)

// BuildIndexMapping assembles the bleve mapping for the lexical index's
// single document type, following the same AddCustomAnalyzer-then-field
// pattern used for registering a custom analyzer pipeline.
func BuildIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()

	if err := im.AddCustomAnalyzer(coretok.ContentAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     coretok.TokenizerName,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("add content analyzer: %w", err)
	}

	if err := im.AddCustomAnalyzer(coretok.PrefixAnalyzerName, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     coretok.TokenizerName,
		"token_filters": []string{lowercase.Name, coretok.EdgeNgramFilterName},
	}); err != nil {
		return nil, fmt.Errorf("add prefix analyzer: %w", err)
	}

	doc := bleve.NewDocumentMapping()

	for _, f := range Catalog {
		switch f.Type {
		case FieldText:
			fm := bleve.NewTextFieldMapping()
			fm.Analyzer = f.Analyzer
			fm.Store = f.Name == FieldTitle || f.Name == FieldContent
			fm.IncludeTermVectors = true
			doc.AddFieldMappingsAt(f.Name, fm)
		case FieldExact:
			fm := bleve.NewTextFieldMapping()
			fm.Analyzer = keyword.Name
			fm.Store = true
			doc.AddFieldMappingsAt(f.Name, fm)
		case FieldNumericFast:
			fm := bleve.NewNumericFieldMapping()
			fm.Store = false
			doc.AddFieldMappingsAt(f.Name, fm)
		case FieldNumericStored:
			fm := bleve.NewNumericFieldMapping()
			fm.Store = true
			doc.AddFieldMappingsAt(f.Name, fm)
		case FieldStoredOnly:
			fm := bleve.NewTextFieldMapping()
			fm.Analyzer = keyword.Name
			fm.Store = true
			fm.Index = false
			doc.AddFieldMappingsAt(f.Name, fm)
		}
	}

	im.DefaultMapping = doc
	im.DefaultAnalyzer = coretok.ContentAnalyzerName
	return im, nil
}

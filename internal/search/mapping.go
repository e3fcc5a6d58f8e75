package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for segment documents.
//
// The mapping is designed with these priorities:
//  1. Full-text search on segment descriptions with English stemming
//  2. Exact keyword matching for video and category filters
//  3. Numeric range queries for confidence and position
//  4. Term vectors on description for highlighting
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// Description - the primary search target.
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = true
	descFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	// ID - stored but not analyzed.
	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	// Video ID - exact filter, never tokenized (YouTube IDs contain
	// dashes and underscores).
	videoFieldMapping := bleve.NewTextFieldMapping()
	videoFieldMapping.Analyzer = keyword.Name
	videoFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("video_id", videoFieldMapping)

	// Category - exact filter, facetable. Keyword analyzer keeps merged
	// labels like "sponsor + selfpromo" intact.
	categoryFieldMapping := bleve.NewTextFieldMapping()
	categoryFieldMapping.Analyzer = keyword.Name
	categoryFieldMapping.Store = true
	categoryFieldMapping.IncludeTermVectors = true // For faceting
	docMapping.AddFieldMappingsAt("category", categoryFieldMapping)

	// Model - exact filter.
	modelFieldMapping := bleve.NewTextFieldMapping()
	modelFieldMapping.Analyzer = keyword.Name
	modelFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("model", modelFieldMapping)

	// Numeric fields for range filtering and sorting.
	startFieldMapping := bleve.NewNumericFieldMapping()
	startFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("start", startFieldMapping)

	endFieldMapping := bleve.NewNumericFieldMapping()
	endFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("end", endFieldMapping)

	confidenceFieldMapping := bleve.NewNumericFieldMapping()
	confidenceFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("confidence", confidenceFieldMapping)

	analyzedAtFieldMapping := bleve.NewNumericFieldMapping()
	analyzedAtFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("analyzed_at", analyzedAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

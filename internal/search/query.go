package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchParams configures a segment search.
type SearchParams struct {
	Query string // User's search query

	// Filters
	VideoID       string   // Restrict to one video
	Categories    []string // Filter by exact category labels
	MinConfidence float64  // Drop hits below this confidence

	// Pagination
	Limit  int
	Offset int

	// Sorting
	SortBy    string // "relevance", "recent", "position", "confidence"
	SortOrder string // "asc", "desc"

	// Options
	IncludeFacets bool // Include category facet counts
	Highlight     bool // Include match highlighting
}

// DefaultSearchParams returns sensible defaults.
func DefaultSearchParams() SearchParams {
	return SearchParams{
		Limit:         20,
		Offset:        0,
		SortBy:        "relevance",
		SortOrder:     "desc",
		IncludeFacets: true,
		Highlight:     true,
	}
}

// SearchResult represents the search results.
type SearchResult struct {
	Query  string       `json:"query"`
	Total  uint64       `json:"total"`
	TookMs int64        `json:"took_ms"`
	Hits   []SegmentHit `json:"hits"`
	Facets SearchFacets `json:"facets,omitempty"`
}

// SegmentHit is a single matching segment.
type SegmentHit struct {
	ID          string            `json:"id"`
	VideoID     string            `json:"video_id"`
	Score       float64           `json:"score"`
	Category    string            `json:"category"`
	Description string            `json:"description,omitempty"`
	Start       float64           `json:"start"`
	End         float64           `json:"end"`
	Confidence  float64           `json:"confidence"`
	Model       string            `json:"model,omitempty"`
	Highlights  map[string]string `json:"highlights,omitempty"`
}

// SearchFacets contains facet counts.
type SearchFacets struct {
	Categories []FacetCount `json:"categories,omitempty"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Search executes a segment search.
func (s *SearchIndex) Search(ctx context.Context, params SearchParams) (*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	searchQuery := buildSearchQuery(params)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, params.Limit, params.Offset, false)

	addSorting(searchRequest, params)

	if params.IncludeFacets {
		searchRequest.AddFacet("category", bleve.NewFacetRequest("category", 20))
	}

	if params.Highlight {
		searchRequest.Highlight = bleve.NewHighlight()
		searchRequest.Highlight.AddField("description")
	}

	searchRequest.Fields = []string{
		"id", "video_id", "category", "description",
		"start", "end", "confidence", "model",
	}

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &SearchResult{
		Query:  params.Query,
		Total:  searchResult.Total,
		TookMs: searchResult.Took.Milliseconds(),
		Hits:   make([]SegmentHit, 0, len(searchResult.Hits)),
	}

	for _, hit := range searchResult.Hits {
		segmentHit := SegmentHit{
			ID:    hit.ID,
			Score: hit.Score,
		}

		if v, ok := hit.Fields["video_id"].(string); ok {
			segmentHit.VideoID = v
		}
		if c, ok := hit.Fields["category"].(string); ok {
			segmentHit.Category = c
		}
		if d, ok := hit.Fields["description"].(string); ok {
			segmentHit.Description = d
		}
		if v, ok := hit.Fields["start"].(float64); ok {
			segmentHit.Start = v
		}
		if v, ok := hit.Fields["end"].(float64); ok {
			segmentHit.End = v
		}
		if v, ok := hit.Fields["confidence"].(float64); ok {
			segmentHit.Confidence = v
		}
		if m, ok := hit.Fields["model"].(string); ok {
			segmentHit.Model = m
		}

		if len(hit.Fragments) > 0 {
			segmentHit.Highlights = make(map[string]string)
			for field, fragments := range hit.Fragments {
				if len(fragments) > 0 {
					segmentHit.Highlights[field] = fragments[0]
				}
			}
		}

		result.Hits = append(result.Hits, segmentHit)
	}

	if params.IncludeFacets {
		result.Facets = extractFacets(searchResult)
	}

	return result, nil
}

// buildSearchQuery constructs the Bleve query from params.
func buildSearchQuery(params SearchParams) query.Query {
	var queries []query.Query

	// Main text query against the description. A match query carries the
	// scoring, fuzzy adds typo tolerance, and a prefix query catches
	// word stems the analyzer missed.
	if params.Query != "" {
		textQueries := []query.Query{}

		descMatch := bleve.NewMatchQuery(params.Query)
		descMatch.SetField("description")
		descMatch.SetBoost(3.0)
		textQueries = append(textQueries, descMatch)

		fuzzyQuery := bleve.NewFuzzyQuery(params.Query)
		fuzzyQuery.SetFuzziness(1)
		fuzzyQuery.SetField("description")
		fuzzyQuery.SetBoost(0.8)
		textQueries = append(textQueries, fuzzyQuery)

		if len(params.Query) >= 2 {
			prefixQuery := bleve.NewPrefixQuery(strings.ToLower(params.Query))
			prefixQuery.SetField("description")
			prefixQuery.SetBoost(0.5)
			textQueries = append(textQueries, prefixQuery)
		}

		queries = append(queries, bleve.NewDisjunctionQuery(textQueries...))
	}

	// Video filter (exact match).
	if params.VideoID != "" {
		vq := bleve.NewTermQuery(params.VideoID)
		vq.SetField("video_id")
		queries = append(queries, vq)
	}

	// Category filter (exact match, OR across labels).
	if len(params.Categories) > 0 {
		categoryQueries := make([]query.Query, len(params.Categories))
		for i, c := range params.Categories {
			cq := bleve.NewTermQuery(c)
			cq.SetField("category")
			categoryQueries[i] = cq
		}
		queries = append(queries, bleve.NewDisjunctionQuery(categoryQueries...))
	}

	// Confidence floor.
	if params.MinConfidence > 0 {
		min := params.MinConfidence
		max := 1.0
		rangeQuery := bleve.NewNumericRangeQuery(&min, &max)
		rangeQuery.SetField("confidence")
		queries = append(queries, rangeQuery)
	}

	// Combine all queries with AND.
	if len(queries) == 0 {
		return bleve.NewMatchAllQuery()
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewConjunctionQuery(queries...)
}

// addSorting configures sort order.
func addSorting(req *bleve.SearchRequest, params SearchParams) {
	switch params.SortBy {
	case "recent":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"analyzed_at"})
		} else {
			req.SortBy([]string{"-analyzed_at"})
		}
	case "position":
		if params.SortOrder == "desc" {
			req.SortBy([]string{"-start"})
		} else {
			req.SortBy([]string{"video_id", "start"})
		}
	case "confidence":
		if params.SortOrder == "asc" {
			req.SortBy([]string{"confidence"})
		} else {
			req.SortBy([]string{"-confidence"})
		}
	default:
		// Relevance (score) is default - Bleve handles this
		req.SortBy([]string{"-_score"})
	}
}

// extractFacets converts Bleve facets to our format.
func extractFacets(result *bleve.SearchResult) SearchFacets {
	facets := SearchFacets{}

	if categoryFacet, ok := result.Facets["category"]; ok {
		for _, term := range categoryFacet.Terms.Terms() {
			facets.Categories = append(facets.Categories, FacetCount{
				Value: term.Term,
				Count: term.Count,
			})
		}
	}

	return facets
}

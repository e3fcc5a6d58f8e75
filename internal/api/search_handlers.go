package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchSegments",
		Method:      http.MethodGet,
		Path:        "/api/v1/segments/search",
		Summary:     "Search cached segments",
		Description: "Full-text search over segment descriptions with category and confidence filters",
		Tags:        []string{"Search"},
	}, s.handleSearchSegments)

	huma.Register(s.api, huma.Operation{
		OperationID: "reindexSegments",
		Method:      http.MethodPost,
		Path:        "/api/v1/segments/reindex",
		Summary:     "Rebuild the segment search index",
		Tags:        []string{"Search"},
	}, s.handleReindexSegments)
}

// === DTOs ===

// SearchSegmentsInput carries the search parameters.
type SearchSegmentsInput struct {
	Query         string   `query:"q" doc:"Free-text query over segment descriptions"`
	VideoID       string   `query:"video_id" doc:"Restrict to one video"`
	Categories    []string `query:"category" doc:"Restrict to these categories"`
	MinConfidence float64  `query:"minConfidence" minimum:"0" maximum:"1" doc:"Minimum confidence"`
	Limit         int      `query:"limit" minimum:"0" maximum:"100" doc:"Page size (default 20)"`
	Offset        int      `query:"offset" minimum:"0" doc:"Page offset"`
	SortBy        string   `query:"sort" enum:"relevance,recent,position,confidence" doc:"Sort order (default relevance)"`
}

// SearchSegmentsOutput wraps search results for Huma.
type SearchSegmentsOutput struct {
	Body search.SearchResult
}

// ReindexOutput reports how many documents the rebuild indexed.
type ReindexOutput struct {
	Body struct {
		Indexed int `json:"indexed" doc:"Documents indexed during the rebuild"`
	}
}

// === Handlers ===

func (s *Server) handleSearchSegments(ctx context.Context, input *SearchSegmentsInput) (*SearchSegmentsOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.VideoID = input.VideoID
	params.Categories = input.Categories
	params.MinConfidence = input.MinConfidence
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	params.Offset = input.Offset
	if input.SortBy != "" {
		params.SortBy = input.SortBy
	}

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		return nil, err
	}

	return &SearchSegmentsOutput{Body: *result}, nil
}

func (s *Server) handleReindexSegments(ctx context.Context, _ *struct{}) (*ReindexOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	indexed, err := s.services.Search.Reindex(ctx)
	if err != nil {
		return nil, err
	}

	out := &ReindexOutput{}
	out.Body.Indexed = indexed
	return out, nil
}

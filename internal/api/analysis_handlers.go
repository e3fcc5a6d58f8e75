package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
)

func (s *Server) registerAnalysisRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "analyzeVideo",
		Method:      http.MethodPost,
		Path:        "/api/v1/videos/{videoID}/analysis",
		Summary:     "Analyze a video transcript",
		Description: "Runs sponsor-segment classification over the supplied transcript. Cached results are returned without a new provider call unless force is set.",
		Tags:        []string{"Analysis"},
	}, s.handleAnalyzeVideo)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSegments",
		Method:      http.MethodGet,
		Path:        "/api/v1/videos/{videoID}/segments",
		Summary:     "Get cached segments",
		Description: "Returns the cached analysis filtered by the current user settings",
		Tags:        []string{"Analysis"},
	}, s.handleGetSegments)

	huma.Register(s.api, huma.Operation{
		OperationID: "invalidateAnalysis",
		Method:      http.MethodDelete,
		Path:        "/api/v1/videos/{videoID}/analysis",
		Summary:     "Invalidate a cached analysis",
		Tags:        []string{"Analysis"},
	}, s.handleInvalidateAnalysis)
}

// === DTOs ===

// AnalyzeRequest is the request body for a transcript analysis.
type AnalyzeRequest struct {
	Transcript domain.Transcript `json:"transcript" doc:"Timestamped transcript lines"`
	Force      bool              `json:"force,omitempty" doc:"Bypass the cache and re-classify"`
}

// AnalyzeInput wraps the analysis request for Huma.
type AnalyzeInput struct {
	VideoID string `path:"videoID" maxLength:"64" doc:"Video ID"`
	Body    AnalyzeRequest
}

// AnalysisResponse contains an analysis result in API responses.
type AnalysisResponse struct {
	VideoID  string                  `json:"video_id" doc:"Video ID"`
	Segments []domain.Segment        `json:"segments" doc:"Detected segments"`
	Metadata domain.AnalysisMetadata `json:"metadata" doc:"Analysis provenance"`
	Cached   bool                    `json:"cached" doc:"Whether the result came from cache"`
}

// AnalysisOutput wraps the analysis response for Huma.
type AnalysisOutput struct {
	Body AnalysisResponse
}

// SegmentsInput identifies the video whose segments are requested.
type SegmentsInput struct {
	VideoID string `path:"videoID" maxLength:"64" doc:"Video ID"`
}

// === Handlers ===

func (s *Server) handleAnalyzeVideo(ctx context.Context, input *AnalyzeInput) (*AnalysisOutput, error) {
	clientID, err := GetClientID(ctx)
	if err != nil {
		return nil, err
	}

	if !s.analyzeRateLimiter.Allow(clientID) {
		return nil, huma.Error429TooManyRequests("Analysis rate limit exceeded. Try again later.")
	}

	if input.Body.Force {
		if err := s.services.Analysis.Invalidate(ctx, input.VideoID); err != nil {
			s.logger.Warn("failed to invalidate before forced analysis",
				"videoID", input.VideoID, "error", err)
		}
	}

	result, cached, err := s.services.Analysis.Analyze(ctx, input.VideoID, input.Body.Transcript, input.Body.Force)
	if err != nil {
		return nil, err
	}

	return &AnalysisOutput{
		Body: AnalysisResponse{
			VideoID:  result.VideoID,
			Segments: result.Segments,
			Metadata: result.Metadata,
			Cached:   cached,
		},
	}, nil
}

func (s *Server) handleGetSegments(ctx context.Context, input *SegmentsInput) (*AnalysisOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Analysis.CachedResult(ctx, input.VideoID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, huma.Error404NotFound("No cached analysis for this video")
	}

	settings, err := s.services.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	result = s.services.Analysis.ApplySettings(result, settings)

	return &AnalysisOutput{
		Body: AnalysisResponse{
			VideoID:  result.VideoID,
			Segments: result.Segments,
			Metadata: result.Metadata,
			Cached:   true,
		},
	}, nil
}

func (s *Server) handleInvalidateAnalysis(ctx context.Context, input *SegmentsInput) (*struct{}, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Analysis.Invalidate(ctx, input.VideoID); err != nil {
		return nil, err
	}

	return nil, nil
}

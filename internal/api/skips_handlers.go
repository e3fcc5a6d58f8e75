package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
)

func (s *Server) registerSkipRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "skipSummary",
		Method:      http.MethodGet,
		Path:        "/api/v1/skips/summary",
		Summary:     "Skip analytics summary",
		Description: "Aggregated skip counts, saved time, and per-category/per-day breakdowns",
		Tags:        []string{"Skips"},
	}, s.handleSkipSummary)

	huma.Register(s.api, huma.Operation{
		OperationID: "skipHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/skips/history",
		Summary:     "Skip event history",
		Tags:        []string{"Skips"},
	}, s.handleSkipHistory)
}

// === DTOs ===

// SkipSummaryInput carries the summary window.
type SkipSummaryInput struct {
	Days int `query:"days" minimum:"0" doc:"Window in days; 0 means all time"`
}

// SkipSummaryOutput wraps the summary for Huma.
type SkipSummaryOutput struct {
	Body domain.SkipSummary
}

// SkipHistoryInput filters the event history.
type SkipHistoryInput struct {
	VideoID string `query:"video_id" doc:"Restrict to one video"`
	Limit   int    `query:"limit" minimum:"0" maximum:"1000" doc:"Maximum events to return (default 100)"`
}

// SkipHistoryOutput wraps the event list for Huma.
type SkipHistoryOutput struct {
	Body []*domain.SkipEvent
}

// === Handlers ===

func (s *Server) handleSkipSummary(ctx context.Context, input *SkipSummaryInput) (*SkipSummaryOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	summary, err := s.services.Skips.Summary(ctx, input.Days)
	if err != nil {
		return nil, err
	}

	return &SkipSummaryOutput{Body: *summary}, nil
}

func (s *Server) handleSkipHistory(ctx context.Context, input *SkipHistoryInput) (*SkipHistoryOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	events, err := s.services.Skips.History(ctx, input.VideoID, input.Limit)
	if err != nil {
		return nil, err
	}

	return &SkipHistoryOutput{Body: events}, nil
}

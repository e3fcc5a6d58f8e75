package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/playback"
)

func (s *Server) registerSessionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "attachSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions",
		Summary:     "Attach a playback session",
		Description: "Starts monitoring a video. Requires a cached analysis; 404 otherwise.",
		Tags:        []string{"Sessions"},
	}, s.handleAttachSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "tickSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionID}/tick",
		Summary:     "Report playback position",
		Description: "Advances the session clock and returns the directive for the player",
		Tags:        []string{"Sessions"},
	}, s.handleTickSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "cancelPreview",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionID}/cancel",
		Summary:     "Cancel the active preview",
		Description: "Keeps playing through the previewed segment; it will not re-trigger",
		Tags:        []string{"Sessions"},
	}, s.handleCancelPreview)

	huma.Register(s.api, huma.Operation{
		OperationID: "manualSkip",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{sessionID}/skip",
		Summary:     "Skip a segment manually",
		Tags:        []string{"Sessions"},
	}, s.handleManualSkip)

	huma.Register(s.api, huma.Operation{
		OperationID: "detachSession",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sessions/{sessionID}",
		Summary:     "Detach a playback session",
		Tags:        []string{"Sessions"},
	}, s.handleDetachSession)
}

// === DTOs ===

// AttachSessionRequest identifies the video to monitor.
type AttachSessionRequest struct {
	VideoID string `json:"video_id" doc:"Video ID with a cached analysis"`
}

// AttachSessionInput wraps the attach request for Huma.
type AttachSessionInput struct {
	Body AttachSessionRequest
}

// SessionResponse describes an attached session.
type SessionResponse struct {
	SessionID    string           `json:"session_id" doc:"Session ID"`
	VideoID      string           `json:"video_id" doc:"Monitored video"`
	Segments     []domain.Segment `json:"segments" doc:"Working set after settings filtering"`
	SavedSeconds float64          `json:"saved_seconds" doc:"Watch time skipped so far"`
}

// SessionOutput wraps the session response for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// TickRequest carries the player clock.
type TickRequest struct {
	CurrentTime float64 `json:"current_time" minimum:"0" doc:"Playback position in seconds"`
}

// TickInput wraps the tick request for Huma.
type TickInput struct {
	SessionID string `path:"sessionID" doc:"Session ID"`
	Body      TickRequest
}

// DirectiveOutput wraps the tick directive for Huma.
type DirectiveOutput struct {
	Body playback.Directive
}

// SessionInput identifies a session.
type SessionInput struct {
	SessionID string `path:"sessionID" doc:"Session ID"`
}

// ManualSkipRequest identifies the pending segment to skip by its start.
type ManualSkipRequest struct {
	Start float64 `json:"start" minimum:"0" doc:"Start time of the segment to skip"`
}

// ManualSkipInput wraps the manual skip request for Huma.
type ManualSkipInput struct {
	SessionID string `path:"sessionID" doc:"Session ID"`
	Body      ManualSkipRequest
}

// DetachOutput reports how much watch time the session saved in total.
type DetachOutput struct {
	Body struct {
		SavedSeconds float64 `json:"saved_seconds" doc:"Total watch time skipped in this session"`
	}
}

// === Handlers ===

func (s *Server) handleAttachSession(ctx context.Context, input *AttachSessionInput) (*SessionOutput, error) {
	clientID, err := GetClientID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Analysis.CachedResult(ctx, input.Body.VideoID)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, huma.Error404NotFound("No cached analysis for this video; analyze it first")
	}

	settings, err := s.services.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	session, err := s.playback.Attach(input.Body.VideoID, clientID, result, settings)
	if err != nil {
		return nil, err
	}

	return &SessionOutput{
		Body: SessionResponse{
			SessionID: session.ID,
			VideoID:   session.VideoID,
			Segments:  session.PendingSegments(),
		},
	}, nil
}

func (s *Server) handleTickSession(ctx context.Context, input *TickInput) (*DirectiveOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	directive, err := s.playback.Tick(ctx, input.SessionID, input.Body.CurrentTime)
	if err != nil {
		return nil, err
	}

	return &DirectiveOutput{Body: directive}, nil
}

func (s *Server) handleCancelPreview(ctx context.Context, input *SessionInput) (*struct{}, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	if err := s.playback.CancelPreview(ctx, input.SessionID); err != nil {
		return nil, err
	}

	return nil, nil
}

func (s *Server) handleManualSkip(ctx context.Context, input *ManualSkipInput) (*DirectiveOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	directive, err := s.playback.ManualSkip(ctx, input.SessionID, input.Body.Start)
	if err != nil {
		return nil, err
	}

	return &DirectiveOutput{Body: directive}, nil
}

func (s *Server) handleDetachSession(ctx context.Context, input *SessionInput) (*DetachOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	saved, err := s.playback.End(input.SessionID)
	if err != nil {
		return nil, err
	}

	out := &DetachOutput{}
	out.Body.SavedSeconds = saved
	return out, nil
}

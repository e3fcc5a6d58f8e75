package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/service"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSettings",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings",
		Summary:     "Get user settings",
		Tags:        []string{"Settings"},
	}, s.handleGetSettings)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSettings",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings",
		Summary:     "Update user settings",
		Description: "Applies a partial settings update. Omitted fields keep their current value.",
		Tags:        []string{"Settings"},
	}, s.handleUpdateSettings)
}

// === DTOs ===

// SettingsUpdateRequest is the request body for a settings update. All
// fields are optional; only supplied fields change.
type SettingsUpdateRequest struct {
	Enabled             map[domain.Category]bool `json:"enabled,omitempty" doc:"Per-category skip toggles"`
	ConfidenceThreshold *float64                 `json:"confidence_threshold,omitempty" doc:"Minimum confidence to act on a segment"`
	SkipBuffer          *float64                 `json:"skip_buffer,omitempty" doc:"Preview countdown seconds"`
	PreviewEnabled      *bool                    `json:"preview_enabled,omitempty" doc:"Show a countdown before skipping"`
	AutoSkip            *bool                    `json:"auto_skip,omitempty" doc:"Skip automatically instead of just notifying"`
	Provider            *string                  `json:"provider,omitempty" doc:"Classifier provider (anthropic, openai, mock)"`
	Model               *string                  `json:"model,omitempty" doc:"Provider model override"`
	MaxAgeDays          *int                     `json:"max_age_days,omitempty" doc:"Cached analysis lifetime in days"`
}

// SettingsUpdateInput wraps the settings update for Huma.
type SettingsUpdateInput struct {
	Body SettingsUpdateRequest
}

// SettingsResponse contains settings plus display metadata.
type SettingsResponse struct {
	Settings *domain.UserSettings `json:"settings" doc:"Current user settings"`
	Colors   map[string]string    `json:"colors" doc:"Display color per category"`
}

// SettingsOutput wraps the settings response for Huma.
type SettingsOutput struct {
	Body SettingsResponse
}

// === Handlers ===

func (s *Server) handleGetSettings(ctx context.Context, _ *struct{}) (*SettingsOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	settings, err := s.services.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	return &SettingsOutput{Body: settingsResponse(settings)}, nil
}

func (s *Server) handleUpdateSettings(ctx context.Context, input *SettingsUpdateInput) (*SettingsOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	settings, err := s.services.Settings.Update(ctx, &service.SettingsUpdate{
		Enabled:             input.Body.Enabled,
		ConfidenceThreshold: input.Body.ConfidenceThreshold,
		SkipBuffer:          input.Body.SkipBuffer,
		PreviewEnabled:      input.Body.PreviewEnabled,
		AutoSkip:            input.Body.AutoSkip,
		Provider:            input.Body.Provider,
		Model:               input.Body.Model,
		MaxAgeDays:          input.Body.MaxAgeDays,
	})
	if err != nil {
		return nil, err
	}

	if s.sseManager != nil {
		s.sseManager.Emit(sse.NewSettingsUpdatedEvent(settings))
	}

	return &SettingsOutput{Body: settingsResponse(settings)}, nil
}

// settingsResponse pairs settings with the category color palette the
// extension uses for overlays.
func settingsResponse(settings *domain.UserSettings) SettingsResponse {
	colors := make(map[string]string)
	for _, c := range domain.AllCategories() {
		colors[string(c)] = domain.CategoryColor(string(c))
	}

	return SettingsResponse{
		Settings: settings,
		Colors:   colors,
	}
}

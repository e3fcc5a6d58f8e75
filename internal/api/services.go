package api

import (
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Instance *service.InstanceService
	Auth     *service.AuthService
	Analysis *service.AnalysisService
	Settings *service.SettingsService
	Skips    *service.SkipService
	Search   *service.SearchService
}

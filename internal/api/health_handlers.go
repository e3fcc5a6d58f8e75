package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns daemon health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := make(map[string]ComponentHealth)
	overall := "healthy"

	degrade := func(h ComponentHealth) {
		switch h.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	cacheHealth := s.checkCacheStore(ctx)
	components["cache"] = cacheHealth
	degrade(cacheHealth)

	analyticsHealth := s.checkAnalytics(ctx)
	components["analytics"] = analyticsHealth
	degrade(analyticsHealth)

	classifierHealth := s.checkClassifier(ctx)
	components["classifier"] = classifierHealth
	degrade(classifierHealth)

	sseHealth := s.checkSSEManager()
	components["sse"] = sseHealth
	degrade(sseHealth)

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkCacheStore verifies the Badger-backed segment cache is accessible.
func (s *Server) checkCacheStore(ctx context.Context) ComponentHealth {
	if s.store == nil {
		return ComponentHealth{Status: "degraded", Message: "cache store not configured"}
	}

	start := time.Now()

	// ErrDaemonNotFound is fine - the DB is readable, just not
	// initialized yet.
	_, err := s.store.GetInstance(ctx)
	latency := time.Since(start)

	if err != nil && !errors.Is(err, store.ErrDaemonNotFound) {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "cache store read failed",
		}
	}

	return ComponentHealth{Status: "healthy", Latency: latency.String()}
}

// checkAnalytics verifies the SQLite skip history database is reachable.
func (s *Server) checkAnalytics(ctx context.Context) ComponentHealth {
	if s.skipStore == nil {
		return ComponentHealth{Status: "degraded", Message: "analytics not configured"}
	}

	start := time.Now()
	err := s.skipStore.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{
			Status:  "unhealthy",
			Latency: latency.String(),
			Message: "analytics database unreachable",
		}
	}

	return ComponentHealth{Status: "healthy", Latency: latency.String()}
}

// checkClassifier reports which LLM providers have an API key. No key at
// all is degraded, not unhealthy: cached results still serve.
func (s *Server) checkClassifier(_ context.Context) ComponentHealth {
	if s.services == nil || s.services.Analysis == nil {
		return ComponentHealth{Status: "degraded", Message: "classifier not configured"}
	}

	providers := s.services.Analysis.Providers()
	if len(providers) == 0 {
		return ComponentHealth{Status: "degraded", Message: "no classifier provider configured"}
	}

	return ComponentHealth{
		Status:  "healthy",
		Message: strings.Join(providers, ", ") + " configured",
	}
}

// checkSSEManager verifies the SSE event system is running.
func (s *Server) checkSSEManager() ComponentHealth {
	if s.sseManager == nil {
		return ComponentHealth{Status: "degraded", Message: "SSE manager not configured"}
	}

	return ComponentHealth{
		Status:  "healthy",
		Message: formatSSEStatus(s.sseManager.ClientCount()),
	}
}

func formatSSEStatus(count int) string {
	switch count {
	case 0:
		return "no connected clients"
	case 1:
		return "1 connected client"
	default:
		return strconv.Itoa(count) + " connected clients"
	}
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/cache"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
)

func (s *Server) registerCacheRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "cacheStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/cache/stats",
		Summary:     "Segment cache statistics",
		Tags:        []string{"Cache"},
	}, s.handleCacheStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "cacheSweep",
		Method:      http.MethodPost,
		Path:        "/api/v1/cache/sweep",
		Summary:     "Sweep stale cache entries",
		Description: "Removes cached analyses older than the given age (defaults to the configured max age)",
		Tags:        []string{"Cache"},
	}, s.handleCacheSweep)
}

// === DTOs ===

// CacheStatsOutput wraps cache statistics for Huma.
type CacheStatsOutput struct {
	Body cache.Stats
}

// CacheSweepRequest optionally overrides the stale cutoff.
type CacheSweepRequest struct {
	MaxAgeDays int `json:"max_age_days,omitempty" minimum:"0" doc:"Override cutoff in days; 0 uses the configured setting"`
}

// CacheSweepInput wraps the sweep request for Huma.
type CacheSweepInput struct {
	Body CacheSweepRequest
}

// CacheSweepOutput reports how many entries were removed.
type CacheSweepOutput struct {
	Body struct {
		Removed int `json:"removed" doc:"Number of entries swept"`
	}
}

// === Handlers ===

func (s *Server) handleCacheStats(ctx context.Context, _ *struct{}) (*CacheStatsOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	maxAge, err := s.currentMaxAge(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.segCache.Stats(ctx, maxAge)
	if err != nil {
		return nil, err
	}

	return &CacheStatsOutput{Body: *stats}, nil
}

func (s *Server) handleCacheSweep(ctx context.Context, input *CacheSweepInput) (*CacheSweepOutput, error) {
	if _, err := GetClientID(ctx); err != nil {
		return nil, err
	}

	var maxAge time.Duration
	if input.Body.MaxAgeDays > 0 {
		maxAge = time.Duration(input.Body.MaxAgeDays) * 24 * time.Hour
	} else {
		var err error
		maxAge, err = s.currentMaxAge(ctx)
		if err != nil {
			return nil, err
		}
	}

	removed, err := s.segCache.SweepStale(ctx, maxAge)
	if err != nil {
		return nil, err
	}

	if s.sseManager != nil && removed > 0 {
		s.sseManager.Emit(sse.NewCacheSweptEvent(removed))
	}

	out := &CacheSweepOutput{}
	out.Body.Removed = removed
	return out, nil
}

// currentMaxAge reads the configured cache lifetime from settings.
func (s *Server) currentMaxAge(ctx context.Context) (time.Duration, error) {
	settings, err := s.services.Settings.Get(ctx)
	if err != nil {
		return 0, err
	}
	return settings.MaxAge(), nil
}

// handleExport streams a full backup of the segment cache. Chi-native:
// huma cannot model an unbounded binary stream.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if _, err := GetClientID(r.Context()); err != nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="skiptube-cache.backup"`)

	if _, err := s.store.Backup(w); err != nil {
		// Headers are gone; all we can do is log and drop the connection.
		s.logger.Error("cache export failed", "error", err)
	}
}

// handleImport restores a backup stream produced by export.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if _, err := GetClientID(r.Context()); err != nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	if err := s.store.Restore(r.Body); err != nil {
		s.logger.Error("cache import failed", "error", err)
		http.Error(w, "Restore failed", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleEvents requires auth then hands the connection to the SSE handler.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if _, err := GetClientID(r.Context()); err != nil {
		http.Error(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	s.sseHandler.ServeHTTP(w, r)
}

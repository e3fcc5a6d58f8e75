package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store/sqlite"
)

// SkipService exposes the skip history for the stats surface.
type SkipService struct {
	store  *sqlite.Store
	logger *slog.Logger
}

// NewSkipService creates a new skip history service.
func NewSkipService(store *sqlite.Store, logger *slog.Logger) *SkipService {
	return &SkipService{store: store, logger: logger}
}

// Summary aggregates the skip history over the given window. days <= 0
// means all time.
func (s *SkipService) Summary(ctx context.Context, days int) (*domain.SkipSummary, error) {
	var since time.Time
	if days > 0 {
		since = time.Now().AddDate(0, 0, -days)
	}
	return s.store.Summary(ctx, since)
}

// History returns the recorded encounters for one video, newest first.
func (s *SkipService) History(ctx context.Context, videoID string, limit int) ([]*domain.SkipEvent, error) {
	return s.store.ListSkips(ctx, videoID, limit)
}

// Purge drops history older than the retention window and returns the
// number of rows removed.
func (s *SkipService) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	return s.store.PurgeBefore(ctx, time.Now().Add(-retention))
}

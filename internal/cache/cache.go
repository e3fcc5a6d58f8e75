// Package cache implements the two-tier analysis cache: a concurrent
// in-memory map in front of the Badger store. Reads fall through to disk and
// populate memory; writes land in memory synchronously and persist in the
// background so a slow disk never blocks playback.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store"
)

// SegmentCache is the two-tier cache for analysis results, keyed by video ID.
// Entries hold the full unfiltered result; callers apply settings-dependent
// filtering on the way out so a settings change never requires re-analysis.
type SegmentCache struct {
	memory *SyncMap[string, *store.CachedAnalysis]
	store  *store.Store
	logger *slog.Logger

	// wg tracks in-flight background persists so Shutdown can drain them.
	wg sync.WaitGroup

	persistFailures atomic.Int64
}

// Stats summarizes the cache contents for the stats endpoint.
type Stats struct {
	OldestEntry     time.Time `json:"oldest_entry,omitzero"`
	NewestEntry     time.Time `json:"newest_entry,omitzero"`
	TotalEntries    int       `json:"total_entries"`
	TotalSegments   int       `json:"total_segments"`
	AverageSegments float64   `json:"average_segments"`
	StaleEntries    int       `json:"stale_entries"`
	MemoryEntries   int       `json:"memory_entries"`
	PersistFailures int64     `json:"persist_failures"`
}

// New creates a SegmentCache backed by the given store.
func New(s *store.Store, logger *slog.Logger) *SegmentCache {
	return &SegmentCache{
		memory: NewSyncMap[string, *store.CachedAnalysis](),
		store:  s,
		logger: logger,
	}
}

// Get looks up a cached analysis, memory tier first. A disk hit populates the
// memory tier for subsequent lookups. Returns (nil, nil) on a miss; a disk
// read failure is reported as a storage error rather than a silent miss so
// callers can distinguish "not cached" from "cache unavailable".
func (c *SegmentCache) Get(ctx context.Context, videoID string) (*store.CachedAnalysis, error) {
	if cached, ok := c.memory.Load(videoID); ok {
		c.logger.Debug("cache hit (memory)", "video_id", videoID)
		return cached, nil
	}

	cached, err := c.store.GetAnalysis(ctx, videoID)
	if err != nil {
		return nil, errors.Storagef("read cache entry for %s", videoID).WithCause(err)
	}
	if cached == nil {
		return nil, nil
	}

	c.memory.Store(videoID, cached)
	c.logger.Debug("cache hit (disk)", "video_id", videoID, "cached_at", cached.CachedAt)
	return cached, nil
}

// Set stores an analysis result in the memory tier and schedules the disk
// write in the background. A persistence failure leaves the memory entry in
// place and is surfaced through logs and the stats counter; the next daemon
// restart re-analyzes the video.
func (c *SegmentCache) Set(ctx context.Context, result *domain.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result == nil || result.VideoID == "" {
		return errors.Validation("cache entry requires a video ID")
	}

	cached := &store.CachedAnalysis{
		Result:        result,
		CachedAt:      time.Now(),
		SchemaVersion: store.AnalysisSchemaVersion,
	}
	c.memory.Store(result.VideoID, cached)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		// Detached from the request context: the caller should not wait on
		// disk, and a finished request must not cancel the write.
		if err := c.store.SetAnalysis(context.Background(), result); err != nil {
			c.persistFailures.Add(1)
			c.logger.Warn("failed to persist cache entry",
				"video_id", result.VideoID,
				"error", err)
		}
	}()

	return nil
}

// Invalidate removes an entry from both tiers. Invalidating an unknown video
// is not an error.
func (c *SegmentCache) Invalidate(ctx context.Context, videoID string) error {
	c.memory.Delete(videoID)
	if err := c.store.DeleteAnalysis(ctx, videoID); err != nil {
		return errors.Storagef("invalidate cache entry for %s", videoID).WithCause(err)
	}
	c.logger.Info("cache entry invalidated", "video_id", videoID)
	return nil
}

// ForEach walks every persisted analysis. Memory-only entries that have
// not been persisted yet are skipped; the background persist catches
// them up shortly.
func (c *SegmentCache) ForEach(ctx context.Context, fn func(result *domain.AnalysisResult) error) error {
	err := c.store.ForEachAnalysis(ctx, func(_ string, cached *store.CachedAnalysis) error {
		return fn(cached.Result)
	})
	if err != nil {
		return errors.Storage("walk cached analyses").WithCause(err)
	}
	return nil
}

// SweepStale removes entries older than maxAge from both tiers and returns
// how many were removed. The memory tier is swept independently so entries
// that never reached disk still age out.
func (c *SegmentCache) SweepStale(ctx context.Context, maxAge time.Duration) (int, error) {
	removed, err := c.store.SweepStaleAnalyses(ctx, maxAge)
	if err != nil {
		return 0, errors.Storage("sweep stale cache entries").WithCause(err)
	}
	for _, videoID := range removed {
		c.memory.Delete(videoID)
	}

	var memStale []string
	c.memory.Range(func(videoID string, cached *store.CachedAnalysis) bool {
		if cached.Result == nil || cached.Result.IsStale(maxAge) {
			memStale = append(memStale, videoID)
		}
		return true
	})
	swept := len(removed)
	for _, videoID := range memStale {
		c.memory.Delete(videoID)
		swept++
	}

	if swept > 0 {
		c.logger.Info("cache sweep complete", "removed", swept, "max_age", maxAge)
	}
	return swept, nil
}

// Stats walks the persisted entries and summarizes them. maxAge determines
// which entries count as stale.
func (c *SegmentCache) Stats(ctx context.Context, maxAge time.Duration) (*Stats, error) {
	stats := &Stats{
		MemoryEntries:   c.memory.Len(),
		PersistFailures: c.persistFailures.Load(),
	}

	err := c.store.ForEachAnalysis(ctx, func(videoID string, cached *store.CachedAnalysis) error {
		stats.TotalEntries++
		if cached.Result != nil {
			stats.TotalSegments += len(cached.Result.Segments)
			if cached.Result.IsStale(maxAge) {
				stats.StaleEntries++
			}
		}
		if stats.OldestEntry.IsZero() || cached.CachedAt.Before(stats.OldestEntry) {
			stats.OldestEntry = cached.CachedAt
		}
		if cached.CachedAt.After(stats.NewestEntry) {
			stats.NewestEntry = cached.CachedAt
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage("collect cache stats").WithCause(err)
	}

	if stats.TotalEntries > 0 {
		stats.AverageSegments = float64(stats.TotalSegments) / float64(stats.TotalEntries)
	}
	return stats, nil
}

// Shutdown waits for in-flight background persists to finish, bounded by the
// context deadline.
func (c *SegmentCache) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		c.logger.Warn("cache shutdown timed out with persists in flight")
		return ctx.Err()
	}
}

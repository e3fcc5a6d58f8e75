package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/cache"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/search"
)

// SearchService bridges the search index with the segment cache. It
// implements the store's SearchIndexer hook, so every cached analysis is
// indexed as it lands and de-indexed when it is invalidated or swept.
type SearchService struct {
	index  *search.SearchIndex
	cache  *cache.SegmentCache
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, segCache *cache.SegmentCache, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		cache:  segCache,
		logger: logger,
	}
}

// Search executes a segment search.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// IndexAnalysis replaces the indexed segments for a video with the
// result's. Old ordinals are cleared first so shrinking results never
// leave stale documents behind.
func (s *SearchService) IndexAnalysis(_ context.Context, result *domain.AnalysisResult) error {
	if err := s.index.DeleteVideo(result.VideoID); err != nil {
		return fmt.Errorf("clear video documents: %w", err)
	}

	docs := search.AnalysisToDocuments(result)
	if err := s.index.IndexDocuments(docs); err != nil {
		return fmt.Errorf("index segments: %w", err)
	}

	s.logger.Debug("indexed analysis", "video_id", result.VideoID, "segments", len(docs))
	return nil
}

// DeleteAnalysis removes a video's segments from the index.
func (s *SearchService) DeleteAnalysis(_ context.Context, videoID string) error {
	return s.index.DeleteVideo(videoID)
}

// Reindex rebuilds the search index from the entire segment cache.
// Used after a mapping change or index corruption.
func (s *SearchService) Reindex(ctx context.Context) (int, error) {
	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	indexed := 0
	err := s.cache.ForEach(ctx, func(result *domain.AnalysisResult) error {
		if err := s.index.IndexDocuments(search.AnalysisToDocuments(result)); err != nil {
			return fmt.Errorf("index %s: %w", result.VideoID, err)
		}
		indexed++
		return nil
	})
	if err != nil {
		return indexed, err
	}

	s.logger.Info("search reindex complete", "videos", indexed)
	return indexed, nil
}

package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
)

const analysisPrefix = "analysis:"

// AnalysisSchemaVersion is bumped whenever the persisted envelope layout
// changes incompatibly. Entries with an older version are treated as misses
// and re-analyzed rather than migrated.
const AnalysisSchemaVersion = 1

// CachedAnalysis wraps a persisted analysis result with cache bookkeeping.
type CachedAnalysis struct {
	Result        *domain.AnalysisResult `json:"result"`
	CachedAt      time.Time              `json:"cached_at"`
	SchemaVersion int                    `json:"schema_version"`
}

func analysisKey(videoID string) []byte {
	return []byte(analysisPrefix + videoID)
}

// GetAnalysis retrieves a cached analysis by video ID.
// Returns (nil, nil) on a cache miss so callers can distinguish "not cached"
// from a storage failure. Entries written under an older schema version are
// reported as misses.
func (s *Store) GetAnalysis(ctx context.Context, videoID string) (*CachedAnalysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var cached CachedAnalysis
	err := s.get(analysisKey(videoID), &cached)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, NewStorageError("get analysis", err)
	}

	if cached.SchemaVersion != AnalysisSchemaVersion || cached.Result == nil {
		return nil, nil
	}

	return &cached, nil
}

// SetAnalysis stores an analysis result, replacing any existing entry for
// the video. The entry is indexed for search asynchronously.
func (s *Store) SetAnalysis(ctx context.Context, result *domain.AnalysisResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result == nil || result.VideoID == "" {
		return ErrInvalidInput.WithMessage("analysis result requires a video ID")
	}

	cached := CachedAnalysis{
		Result:        result,
		CachedAt:      time.Now(),
		SchemaVersion: AnalysisSchemaVersion,
	}

	if err := s.set(analysisKey(result.VideoID), cached); err != nil {
		return NewStorageError("set analysis", err)
	}

	s.eventEmitter.Emit(sse.NewCacheStoredEvent(result.VideoID, len(result.Segments)))

	// Index for search asynchronously
	if s.searchIndexer != nil {
		go func() {
			if err := s.searchIndexer.IndexAnalysis(context.Background(), result); err != nil {
				if s.logger != nil {
					s.logger.Warn("failed to index analysis for search", "video_id", result.VideoID, "error", err)
				}
			}
		}()
	}

	return nil
}

// DeleteAnalysis removes a cached analysis. Deleting a missing entry is not
// an error.
func (s *Store) DeleteAnalysis(ctx context.Context, videoID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.delete(analysisKey(videoID)); err != nil {
		return NewStorageError("delete analysis", err)
	}

	s.eventEmitter.Emit(sse.NewCacheInvalidatedEvent(videoID))

	if s.searchIndexer != nil {
		go func() {
			if err := s.searchIndexer.DeleteAnalysis(context.Background(), videoID); err != nil {
				if s.logger != nil {
					s.logger.Warn("failed to remove analysis from search index", "video_id", videoID, "error", err)
				}
			}
		}()
	}

	return nil
}

// HasAnalysis reports whether an entry exists for the video, without
// deserializing it.
func (s *Store) HasAnalysis(ctx context.Context, videoID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	exists, err := s.exists(analysisKey(videoID))
	if err != nil {
		return false, NewStorageError("check analysis", err)
	}
	return exists, nil
}

// ForEachAnalysis iterates over every cached analysis. The callback receives
// the video ID and the decoded envelope; returning an error stops the
// iteration and propagates the error.
func (s *Store) ForEachAnalysis(ctx context.Context, fn func(videoID string, cached *CachedAnalysis) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(analysisPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			videoID := string(item.Key()[len(analysisPrefix):])

			var cached CachedAnalysis
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &cached)
			}); err != nil {
				if s.logger != nil {
					s.logger.Warn("skipping undecodable cache entry", "video_id", videoID, "error", err)
				}
				continue
			}

			if err := fn(videoID, &cached); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return NewStorageError("iterate analyses", err)
	}
	return nil
}

// CountAnalyses returns the number of cached analyses without decoding them.
func (s *Store) CountAnalyses(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(analysisPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, NewStorageError("count analyses", err)
	}
	return count, nil
}

// SweepStaleAnalyses deletes every entry whose analysis is older than maxAge
// and returns the IDs of the removed videos. A single swept event is emitted
// instead of one invalidation per entry.
func (s *Store) SweepStaleAnalyses(ctx context.Context, maxAge time.Duration) ([]string, error) {
	var stale []string
	err := s.ForEachAnalysis(ctx, func(videoID string, cached *CachedAnalysis) error {
		// Entries missing a result (older schema) are swept along with
		// genuinely stale ones.
		if cached.Result == nil || cached.Result.IsStale(maxAge) {
			stale = append(stale, videoID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, videoID := range stale {
		if err := s.delete(analysisKey(videoID)); err != nil {
			return nil, NewStorageError(fmt.Sprintf("sweep analysis %s", videoID), err)
		}
		if s.searchIndexer != nil {
			go func(id string) {
				if err := s.searchIndexer.DeleteAnalysis(context.Background(), id); err != nil {
					if s.logger != nil {
						s.logger.Warn("failed to remove swept analysis from search index", "video_id", id, "error", err)
					}
				}
			}(videoID)
		}
	}

	if len(stale) > 0 {
		s.eventEmitter.Emit(sse.NewCacheSweptEvent(len(stale)))
		if s.logger != nil {
			s.logger.Info("swept stale analyses", "removed", len(stale), "max_age", maxAge)
		}
	}

	return stale, nil
}

package service

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/cache"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/watcher"
)

// spoolFile is the on-disk format companion tools drop into the spool
// directory.
type spoolFile struct {
	VideoID    string            `json:"video_id"`
	Transcript domain.Transcript `json:"transcript"`
}

// transcriptAnalyzer is the slice of AnalysisService the ingester needs.
type transcriptAnalyzer interface {
	Analyze(ctx context.Context, videoID string, transcript domain.Transcript, force bool) (*domain.AnalysisResult, bool, error)
}

// IngestService drains the transcript spool: every settled file is
// parsed, analyzed and removed. Files that fail are renamed with a
// .failed suffix so they stay visible without being retried forever.
type IngestService struct {
	watcher  *watcher.Watcher
	analyzer transcriptAnalyzer
	logger   *slog.Logger

	// inProgress guards against the same file being handled twice when
	// watcher events race a slow analysis.
	inProgress *cache.SyncMap[string, *sync.Mutex]
}

// NewIngestService creates the spool ingester.
func NewIngestService(w *watcher.Watcher, analyzer transcriptAnalyzer, logger *slog.Logger) *IngestService {
	return &IngestService{
		watcher:    w,
		analyzer:   analyzer,
		logger:     logger,
		inProgress: cache.NewSyncMap[string, *sync.Mutex](),
	}
}

// Run consumes spool events until ctx is cancelled. The watcher's Run
// loop must be started separately.
func (s *IngestService) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-s.watcher.Events():
			if !ok {
				return nil
			}
			s.handle(ctx, event.Path)
		}
	}
}

// handle processes one spool file end to end.
func (s *IngestService) handle(ctx context.Context, path string) {
	lock, _ := s.inProgress.LoadOrStore(path, &sync.Mutex{})
	if !lock.TryLock() {
		s.logger.Debug("spool file already being ingested", "path", path)
		return
	}
	defer func() {
		lock.Unlock()
		s.inProgress.Delete(path)
	}()

	if err := s.ingestFile(ctx, path); err != nil {
		s.logger.Warn("spool ingest failed", "path", path, "error", err)
		s.markFailed(path)
		return
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove ingested spool file", "path", path, "error", err)
	}
}

// IngestFile parses and analyzes a single spool file. Exposed so a
// one-shot import can reuse the spool format.
func (s *IngestService) IngestFile(ctx context.Context, path string) error {
	return s.ingestFile(ctx, path)
}

func (s *IngestService) ingestFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read spool file: %w", err)
	}

	var file spoolFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse spool file: %w", err)
	}
	if file.VideoID == "" {
		return fmt.Errorf("spool file has no video_id")
	}

	result, cached, err := s.analyzer.Analyze(ctx, file.VideoID, file.Transcript, false)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", file.VideoID, err)
	}

	s.logger.Info("ingested spool transcript",
		"videoID", file.VideoID,
		"segments", len(result.Segments),
		"cached", cached)
	return nil
}

// markFailed renames a bad spool file so it is not picked up again.
func (s *IngestService) markFailed(path string) {
	if err := os.Rename(path, path+".failed"); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to quarantine spool file", "path", path, "error", err)
	}
}

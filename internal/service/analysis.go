package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/cache"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/classifier"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
)

// Stage names exposed over SSE while an analysis runs.
const (
	StageCacheCheck  = "cache_check"
	StageClassifying = "classifying"
	StageParsing     = "parsing"
	StageFiltering   = "filtering"
	StageMerging     = "merging"
	StageCaching     = "caching"
)

// EventEmitter pushes events to connected SSE clients.
type EventEmitter interface {
	Emit(event any)
}

// inflightAnalysis is one classification in progress. Later callers for
// the same video attach to it instead of issuing a second provider call.
type inflightAnalysis struct {
	done   chan struct{}
	result *domain.AnalysisResult
	err    error
}

// AnalysisService orchestrates the full pipeline for one video:
// cache check, classification, parsing, filtering, merging, caching.
// Concurrent requests for the same video share a single provider call.
type AnalysisService struct {
	cache    *cache.SegmentCache
	factory  *classifier.Factory
	settings *SettingsService
	emitter  EventEmitter
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[string]*inflightAnalysis
	stages   map[string]string
}

// NewAnalysisService creates the orchestrator.
func NewAnalysisService(segCache *cache.SegmentCache, factory *classifier.Factory, settings *SettingsService, emitter EventEmitter, logger *slog.Logger) *AnalysisService {
	return &AnalysisService{
		cache:    segCache,
		factory:  factory,
		settings: settings,
		emitter:  emitter,
		logger:   logger,
		inflight: make(map[string]*inflightAnalysis),
		stages:   make(map[string]string),
	}
}

// Stage reports the pipeline stage of a running analysis, or "" when
// nothing is in flight for the video.
func (s *AnalysisService) Stage(videoID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stages[videoID]
}

// Providers reports which classifier providers have an API key.
func (s *AnalysisService) Providers() []string {
	return s.factory.ConfiguredProviders()
}

// Analyze returns the segments for a video, from cache when possible.
// force bypasses the cache and always re-classifies. Results reflect the
// user's current threshold and category settings either way: fresh runs
// only ask the classifier for enabled categories, and cache hits are
// filtered on the way out.
func (s *AnalysisService) Analyze(ctx context.Context, videoID string, transcript domain.Transcript, force bool) (*domain.AnalysisResult, bool, error) {
	if videoID == "" {
		return nil, false, errors.Validation("video ID is required")
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, false, err
	}

	if !force {
		if cached := s.lookupCache(ctx, videoID, settings.MaxAge()); cached != nil {
			// Cached entries carry the raw classification; the user's
			// current threshold and category toggles apply at read time.
			filtered := s.ApplySettings(cached, settings)
			s.emitter.Emit(sse.NewAnalysisCompletedEvent(videoID, len(filtered.Segments), true))
			return filtered, true, nil
		}
	}

	result, err := s.classifyShared(ctx, videoID, transcript, settings)
	if err != nil {
		return nil, false, err
	}
	return result, false, nil
}

// CachedResult returns the cached analysis for a video without ever
// triggering a classification. A miss is (nil, nil).
func (s *AnalysisService) CachedResult(ctx context.Context, videoID string) (*domain.AnalysisResult, error) {
	cached, err := s.cache.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if cached == nil {
		return nil, nil
	}
	return cached.Result, nil
}

// Invalidate drops a video's cached analysis from both tiers.
func (s *AnalysisService) Invalidate(ctx context.Context, videoID string) error {
	return s.cache.Invalidate(ctx, videoID)
}

// ApplySettings filters a raw analysis down to what the user wants
// skipped right now. Cached results carry the segments as classified;
// threshold and category preferences are applied at read time so a
// settings change takes effect without re-analysis.
func (s *AnalysisService) ApplySettings(result *domain.AnalysisResult, settings *domain.UserSettings) *domain.AnalysisResult {
	return result.
		FilterByConfidence(settings.ConfidenceThreshold).
		FilterByCategories(settings.EnabledCategories())
}

// lookupCache is the read path of the pipeline. Storage failures degrade
// to a miss: a broken cache must never block analysis.
func (s *AnalysisService) lookupCache(ctx context.Context, videoID string, maxAge time.Duration) *domain.AnalysisResult {
	s.setStage(videoID, StageCacheCheck)
	defer s.clearStage(videoID)

	cached, err := s.cache.Get(ctx, videoID)
	if err != nil {
		s.logger.Warn("cache lookup failed, treating as miss",
			"video_id", videoID, "error", err)
		return nil
	}
	if cached == nil {
		return nil
	}
	if cached.Result.IsStale(maxAge) {
		s.logger.Debug("cached analysis is stale",
			"video_id", videoID, "analyzed_at", cached.Result.Metadata.AnalyzedAt)
		return nil
	}
	return cached.Result
}

// classifyShared runs the provider pipeline, deduplicating concurrent
// requests per video. The work itself is detached from the initiating
// request's cancellation so that attached callers are not failed by the
// first caller closing its tab; the classifier's own timeout still
// bounds the call.
func (s *AnalysisService) classifyShared(ctx context.Context, videoID string, transcript domain.Transcript, settings *domain.UserSettings) (*domain.AnalysisResult, error) {
	s.mu.Lock()
	if call, ok := s.inflight[videoID]; ok {
		s.mu.Unlock()
		s.logger.Debug("attaching to in-flight analysis", "video_id", videoID)
		select {
		case <-call.done:
			return call.result, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &inflightAnalysis{done: make(chan struct{})}
	s.inflight[videoID] = call
	s.mu.Unlock()

	go func() {
		defer close(call.done)
		defer func() {
			s.mu.Lock()
			delete(s.inflight, videoID)
			s.mu.Unlock()
		}()
		call.result, call.err = s.runPipeline(context.WithoutCancel(ctx), videoID, transcript, settings)
	}()

	select {
	case <-call.done:
		return call.result, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runPipeline is the single-flight body: classify, parse, filter, merge,
// cache.
func (s *AnalysisService) runPipeline(ctx context.Context, videoID string, transcript domain.Transcript, settings *domain.UserSettings) (result *domain.AnalysisResult, err error) {
	started := time.Now()
	s.emitter.Emit(sse.NewAnalysisStartedEvent(videoID, settings.Provider))
	defer func() {
		s.clearStage(videoID)
		if err != nil {
			code := string(errors.CodeInternal)
			var derr *errors.Error
			if stderrors.As(err, &derr) {
				code = string(derr.Code)
			}
			s.emitter.Emit(sse.NewAnalysisFailedEvent(videoID, code, err.Error()))
		}
	}()

	if err := transcript.Validate(); err != nil {
		return nil, err
	}

	client, err := s.factory.ClientFor(settings.Provider, settings.Model)
	if err != nil {
		return nil, err
	}

	s.setStage(videoID, StageClassifying)
	s.emitter.Emit(sse.NewAnalysisStageEvent(videoID, StageClassifying))
	prompt := classifier.BuildPrompt(transcript, settings.EnabledList())
	raw, err := client.Send(ctx, prompt)
	if err != nil {
		return nil, err
	}

	s.setStage(videoID, StageParsing)
	s.emitter.Emit(sse.NewAnalysisStageEvent(videoID, StageParsing))
	segments, err := classifier.ParseResponse(raw)
	if err != nil {
		return nil, err
	}

	s.setStage(videoID, StageFiltering)
	segments = classifier.FilterByConfidence(segments, settings.ConfidenceThreshold)

	s.setStage(videoID, StageMerging)
	segments = domain.MergeSegments(segments)

	result = domain.NewAnalysisResult(videoID, segments, client.Model(), time.Since(started), transcript.Len())

	// Cache failures are logged and swallowed: the user still gets their
	// segments, the next request just pays for a re-classification.
	s.setStage(videoID, StageCaching)
	s.emitter.Emit(sse.NewAnalysisStageEvent(videoID, StageCaching))
	if err := s.cache.Set(ctx, result); err != nil {
		s.logger.Warn("failed to cache analysis",
			"video_id", videoID, "error", err)
	}

	s.emitter.Emit(sse.NewAnalysisCompletedEvent(videoID, len(result.Segments), false))
	s.logger.Info("analysis complete",
		"video_id", videoID,
		"provider", client.ProviderName(),
		"model", client.Model(),
		"segments", len(result.Segments),
		"duration", time.Since(started))
	return result, nil
}

func (s *AnalysisService) setStage(videoID, stage string) {
	s.mu.Lock()
	s.stages[videoID] = stage
	s.mu.Unlock()
}

func (s *AnalysisService) clearStage(videoID string) {
	s.mu.Lock()
	delete(s.stages, videoID)
	s.mu.Unlock()
}

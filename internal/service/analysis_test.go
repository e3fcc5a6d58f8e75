package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/cache"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/classifier"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/logger"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/validation"
)

// sseRecorder captures emitted events for assertions.
type sseRecorder struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *sseRecorder) Emit(event any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := event.(sse.Event); ok {
		r.events = append(r.events, ev)
	}
}

func (r *sseRecorder) types() []sse.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sse.EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type analysisFixture struct {
	service  *AnalysisService
	settings *SettingsService
	factory  *classifier.Factory
	store    *store.Store
	emitter  *sseRecorder
}

func newAnalysisFixture(t *testing.T) *analysisFixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.New(filepath.Join(t.TempDir(), "db"), log, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	segCache := cache.New(s, logger.Noop().Logger)
	factory := classifier.NewFactory(map[string]string{}, log)
	t.Cleanup(factory.Close)
	settingsService := NewSettingsService(s, validation.New(), log)
	emitter := &sseRecorder{}

	// Route classification through the mock provider.
	ctx := context.Background()
	settings, err := settingsService.Get(ctx)
	require.NoError(t, err)
	settings.Provider = "mock"
	require.NoError(t, s.UpsertSettings(ctx, settings))

	return &analysisFixture{
		service:  NewAnalysisService(segCache, factory, settingsService, emitter, log),
		settings: settingsService,
		factory:  factory,
		store:    s,
		emitter:  emitter,
	}
}

func testTranscript() domain.Transcript {
	return domain.Transcript{
		{Time: 0, Text: "welcome back to the channel"},
		{Time: 15, Text: "this video is sponsored by our friends"},
		{Time: 60, Text: "let's get into the actual topic"},
	}
}

func TestAnalyze_ClassifiesAndCaches(t *testing.T) {
	f := newAnalysisFixture(t)
	f.factory.Mock().SetResponse(`{"segments":[
		{"start":10,"end":45,"category":"sponsor","confidence":0.95,"description":"sponsored read"}
	]}`)

	ctx := context.Background()
	result, cached, err := f.service.Analyze(ctx, "vid-1", testTranscript(), false)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, "sponsor", result.Segments[0].Category)
	assert.Equal(t, 1, f.factory.Mock().Calls())

	// Second call is a cache hit; the provider is not called again.
	result2, cached2, err := f.service.Analyze(ctx, "vid-1", testTranscript(), false)
	require.NoError(t, err)
	assert.True(t, cached2)
	assert.Equal(t, result.Segments, result2.Segments)
	assert.Equal(t, 1, f.factory.Mock().Calls())
}

func TestAnalyze_CacheHitHonorsCurrentSettings(t *testing.T) {
	f := newAnalysisFixture(t)
	f.factory.Mock().SetResponse(`{"segments":[
		{"start":10,"end":45,"category":"sponsor","confidence":0.95,"description":"sponsored read"}
	]}`)

	ctx := context.Background()
	_, _, err := f.service.Analyze(ctx, "vid-1", testTranscript(), false)
	require.NoError(t, err)

	// Disabling sponsors after the fact must hide the cached segment
	// without a re-classification.
	_, err = f.settings.Update(ctx, &SettingsUpdate{
		Enabled: map[domain.Category]bool{domain.CategorySponsor: false},
	})
	require.NoError(t, err)

	result, cached, err := f.service.Analyze(ctx, "vid-1", testTranscript(), false)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Empty(t, result.Segments)
	assert.Equal(t, 1, f.factory.Mock().Calls())

	// The stored entry stays raw: re-enabling brings the segment back.
	_, err = f.settings.Update(ctx, &SettingsUpdate{
		Enabled: map[domain.Category]bool{domain.CategorySponsor: true},
	})
	require.NoError(t, err)

	result, cached, err = f.service.Analyze(ctx, "vid-1", testTranscript(), false)
	require.NoError(t, err)
	assert.True(t, cached)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, "sponsor", result.Segments[0].Category)
	assert.Equal(t, 1, f.factory.Mock().Calls())
}

func TestAnalyze_ForceBypassesCache(t *testing.T) {
	f := newAnalysisFixture(t)

	ctx := context.Background()
	_, _, err := f.service.Analyze(ctx, "vid-1", testTranscript(), false)
	require.NoError(t, err)

	_, cached, err := f.service.Analyze(ctx, "vid-1", testTranscript(), true)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, f.factory.Mock().Calls())
}

func TestAnalyze_MergesOverlappingSegments(t *testing.T) {
	f := newAnalysisFixture(t)
	f.factory.Mock().SetResponse(`{"segments":[
		{"start":30,"end":95,"category":"sponsor","confidence":0.95,"description":"sponsor"},
		{"start":90,"end":110,"category":"self_promo","confidence":0.9,"description":"merch"}
	]}`)

	result, _, err := f.service.Analyze(context.Background(), "vid-1", testTranscript(), false)
	require.NoError(t, err)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, 30.0, result.Segments[0].Start)
	assert.Equal(t, 110.0, result.Segments[0].End)
}

func TestAnalyze_DropsLowConfidenceCandidates(t *testing.T) {
	f := newAnalysisFixture(t)
	f.factory.Mock().SetResponse(`{"segments":[
		{"start":10,"end":45,"category":"sponsor","confidence":0.95,"description":"sure"},
		{"start":200,"end":230,"category":"outro","confidence":0.3,"description":"maybe"}
	]}`)

	result, _, err := f.service.Analyze(context.Background(), "vid-1", testTranscript(), false)
	require.NoError(t, err)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, "sponsor", result.Segments[0].Category)
}

func TestAnalyze_MalformedResponseFailsClosed(t *testing.T) {
	f := newAnalysisFixture(t)
	f.factory.Mock().SetResponse(`here are your segments: sponsor from 10 to 45`)

	ctx := context.Background()
	_, _, err := f.service.Analyze(ctx, "vid-1", testTranscript(), false)
	require.Error(t, err)

	// Nothing half-parsed lands in the cache.
	cached, err := f.service.CachedResult(ctx, "vid-1")
	require.NoError(t, err)
	assert.Nil(t, cached)

	types := f.emitter.types()
	assert.Contains(t, types, sse.EventAnalysisFailed)
	assert.NotContains(t, types, sse.EventAnalysisCompleted)
}

func TestAnalyze_RequiresVideoID(t *testing.T) {
	f := newAnalysisFixture(t)
	_, _, err := f.service.Analyze(context.Background(), "", testTranscript(), false)
	assert.Error(t, err)
}

func TestAnalyze_RejectsEmptyTranscript(t *testing.T) {
	f := newAnalysisFixture(t)
	_, _, err := f.service.Analyze(context.Background(), "vid-1", domain.Transcript{}, false)
	require.Error(t, err)
	assert.Equal(t, 0, f.factory.Mock().Calls())
}

func TestAnalyze_ConcurrentRequestsShareOneCall(t *testing.T) {
	f := newAnalysisFixture(t)
	f.factory.Mock().SetDelay(50 * time.Millisecond)

	ctx := context.Background()
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.service.Analyze(ctx, "vid-shared", testTranscript(), false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.factory.Mock().Calls())
}

func TestInvalidate_RemovesCachedResult(t *testing.T) {
	f := newAnalysisFixture(t)

	ctx := context.Background()
	_, _, err := f.service.Analyze(ctx, "vid-1", testTranscript(), false)
	require.NoError(t, err)

	require.NoError(t, f.service.Invalidate(ctx, "vid-1"))

	cached, err := f.service.CachedResult(ctx, "vid-1")
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestApplySettings_FiltersByCategoryAndConfidence(t *testing.T) {
	f := newAnalysisFixture(t)

	sponsor, err := domain.NewSegment(10, 45, "sponsor", "", 0.95)
	require.NoError(t, err)
	weakSponsor, err := domain.NewSegment(100, 120, "sponsor", "", 0.5)
	require.NoError(t, err)
	outro, err := domain.NewSegment(280, 300, "outro", "", 0.9)
	require.NoError(t, err)

	result := domain.NewAnalysisResult("vid-1",
		[]domain.Segment{sponsor, weakSponsor, outro}, "mock", 0, 100)

	settings := domain.NewUserSettings()
	settings.Enabled = map[domain.Category]bool{domain.CategorySponsor: true}

	filtered := f.service.ApplySettings(result, settings)
	require.Len(t, filtered.Segments, 1)
	assert.Equal(t, 10.0, filtered.Segments[0].Start)
}

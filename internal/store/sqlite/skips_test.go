package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(filepath.Join(t.TempDir(), "skips.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newEvent(id, videoID, category string, action domain.SkipAction, at time.Time) *domain.SkipEvent {
	e := domain.NewSkipEvent(id, videoID, domain.Segment{
		Start:      100,
		End:        130,
		Category:   category,
		Confidence: 0.9,
	}, action)
	e.At = at
	return e
}

func TestRecordAndListSkips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.RecordSkip(ctx, newEvent("skip-1", "vid-a", "sponsor", domain.SkipActionSkipped, now.Add(-time.Hour))))
	require.NoError(t, s.RecordSkip(ctx, newEvent("skip-2", "vid-a", "outro", domain.SkipActionCancelled, now)))
	require.NoError(t, s.RecordSkip(ctx, newEvent("skip-3", "vid-b", "sponsor", domain.SkipActionManual, now)))

	events, err := s.ListSkips(ctx, "vid-a", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "skip-2", events[0].ID, "newest first")
	assert.Equal(t, "skip-1", events[1].ID)
	assert.Equal(t, domain.SkipActionSkipped, events[1].Action)
	assert.Equal(t, 30.0, events[1].SavedSeconds)
	assert.Equal(t, 0.0, events[0].SavedSeconds, "cancellations save nothing")
	assert.WithinDuration(t, now, events[0].At, time.Second)
}

func TestRecordSkipRejectsDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := newEvent("skip-1", "vid-a", "sponsor", domain.SkipActionSkipped, time.Now())
	require.NoError(t, s.RecordSkip(ctx, e))
	assert.Error(t, s.RecordSkip(ctx, e))
}

func TestRecordSkipValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.RecordSkip(ctx, nil))

	e := newEvent("skip-1", "vid-a", "sponsor", domain.SkipActionSkipped, time.Now())
	e.Action = "rewound"
	assert.Error(t, s.RecordSkip(ctx, e))
}

func TestListSkipsEmptyVideo(t *testing.T) {
	s := newTestStore(t)

	events, err := s.ListSkips(context.Background(), "vid-none", 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSummary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	day1 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 2, 9, 30, 0, 0, time.UTC)

	require.NoError(t, s.RecordSkip(ctx, newEvent("skip-1", "vid-a", "sponsor", domain.SkipActionSkipped, day1)))
	require.NoError(t, s.RecordSkip(ctx, newEvent("skip-2", "vid-a", "sponsor", domain.SkipActionCancelled, day1)))
	require.NoError(t, s.RecordSkip(ctx, newEvent("skip-3", "vid-b", "outro", domain.SkipActionManual, day2)))

	summary, err := s.Summary(ctx, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalSkips)
	assert.Equal(t, 1, summary.TotalCancelled)
	assert.Equal(t, 1, summary.TotalManual)
	assert.Equal(t, 60.0, summary.TotalSavedSeconds)
	assert.Equal(t, 2, summary.VideosTouched)
	assert.Equal(t, map[string]int{"sponsor": 1, "outro": 1}, summary.ByCategory)
	assert.Equal(t, 30.0, summary.ByDay["2026-08-01"])
	assert.Equal(t, 30.0, summary.ByDay["2026-08-02"])
}

func TestSummarySinceCutoff(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now()

	require.NoError(t, s.RecordSkip(ctx, newEvent("skip-1", "vid-a", "sponsor", domain.SkipActionSkipped, old)))
	require.NoError(t, s.RecordSkip(ctx, newEvent("skip-2", "vid-b", "sponsor", domain.SkipActionSkipped, recent)))

	summary, err := s.Summary(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalSkips)
	assert.Equal(t, 1, summary.VideosTouched)
}

func TestPurgeBefore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordSkip(ctx, newEvent("skip-1", "vid-a", "sponsor", domain.SkipActionSkipped, time.Now().Add(-72*time.Hour))))
	require.NoError(t, s.RecordSkip(ctx, newEvent("skip-2", "vid-a", "sponsor", domain.SkipActionSkipped, time.Now())))

	removed, err := s.PurgeBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	events, err := s.ListSkips(ctx, "vid-a", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "skip-2", events[0].ID)
}

package search

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
)

func newTestIndex(t *testing.T) *SearchIndex {
	t.Helper()
	idx, err := NewSearchIndex(Options{
		DataPath: t.TempDir(),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func testAnalysis(videoID string, segments ...domain.Segment) *domain.AnalysisResult {
	return domain.NewAnalysisResult(videoID, segments, "claude-test", time.Millisecond, 500)
}

func indexAnalysis(t *testing.T, idx *SearchIndex, result *domain.AnalysisResult) {
	t.Helper()
	require.NoError(t, idx.IndexDocuments(AnalysisToDocuments(result)))
}

func TestIndexAndSearchByDescription(t *testing.T) {
	idx := newTestIndex(t)

	indexAnalysis(t, idx, testAnalysis("vid-vpn",
		domain.Segment{Start: 10, End: 40, Category: "sponsor", Description: "promotion for a VPN service with discount code", Confidence: 0.95},
		domain.Segment{Start: 280, End: 300, Category: "outro", Description: "channel outro asking for subscriptions", Confidence: 0.9},
	))
	indexAnalysis(t, idx, testAnalysis("vid-mattress",
		domain.Segment{Start: 60, End: 90, Category: "sponsor", Description: "mattress brand sponsorship read", Confidence: 0.88},
	))

	params := DefaultSearchParams()
	params.Query = "vpn discount"

	result, err := idx.Search(context.Background(), params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, "vid-vpn", result.Hits[0].VideoID)
	assert.Equal(t, "sponsor", result.Hits[0].Category)
	assert.Equal(t, 10.0, result.Hits[0].Start)
	assert.Equal(t, 40.0, result.Hits[0].End)
}

func TestSearchCategoryFilter(t *testing.T) {
	idx := newTestIndex(t)

	indexAnalysis(t, idx, testAnalysis("vid-a",
		domain.Segment{Start: 10, End: 40, Category: "sponsor", Description: "sponsored message", Confidence: 0.95},
		domain.Segment{Start: 280, End: 300, Category: "outro", Description: "wrap up and goodbye", Confidence: 0.9},
	))

	params := DefaultSearchParams()
	params.Categories = []string{"outro"}

	result, err := idx.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "outro", result.Hits[0].Category)
}

func TestSearchVideoFilter(t *testing.T) {
	idx := newTestIndex(t)

	indexAnalysis(t, idx, testAnalysis("vid-a",
		domain.Segment{Start: 10, End: 40, Category: "sponsor", Description: "sponsored message", Confidence: 0.95}))
	indexAnalysis(t, idx, testAnalysis("vid-b",
		domain.Segment{Start: 20, End: 50, Category: "sponsor", Description: "sponsored message", Confidence: 0.9}))

	params := DefaultSearchParams()
	params.VideoID = "vid-b"

	result, err := idx.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "vid-b", result.Hits[0].VideoID)
}

func TestSearchConfidenceFloor(t *testing.T) {
	idx := newTestIndex(t)

	indexAnalysis(t, idx, testAnalysis("vid-a",
		domain.Segment{Start: 10, End: 40, Category: "sponsor", Description: "confident detection", Confidence: 0.95},
		domain.Segment{Start: 100, End: 130, Category: "sponsor", Description: "shaky detection", Confidence: 0.6},
	))

	params := DefaultSearchParams()
	params.MinConfidence = 0.8

	result, err := idx.Search(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, 0.95, result.Hits[0].Confidence)
}

func TestSearchCategoryFacets(t *testing.T) {
	idx := newTestIndex(t)

	indexAnalysis(t, idx, testAnalysis("vid-a",
		domain.Segment{Start: 10, End: 40, Category: "sponsor", Description: "first sponsor", Confidence: 0.95},
		domain.Segment{Start: 200, End: 230, Category: "sponsor", Description: "second sponsor", Confidence: 0.9},
		domain.Segment{Start: 280, End: 300, Category: "outro", Description: "outro", Confidence: 0.9},
	))

	result, err := idx.Search(context.Background(), DefaultSearchParams())
	require.NoError(t, err)
	require.NotEmpty(t, result.Facets.Categories)

	counts := make(map[string]int)
	for _, f := range result.Facets.Categories {
		counts[f.Value] = f.Count
	}
	assert.Equal(t, 2, counts["sponsor"])
	assert.Equal(t, 1, counts["outro"])
}

func TestSearchHighlighting(t *testing.T) {
	idx := newTestIndex(t)

	indexAnalysis(t, idx, testAnalysis("vid-a",
		domain.Segment{Start: 10, End: 40, Category: "sponsor", Description: "promotion for audiobook platform", Confidence: 0.95}))

	params := DefaultSearchParams()
	params.Query = "audiobook"

	result, err := idx.Search(context.Background(), params)
	require.NoError(t, err)
	require.NotEmpty(t, result.Hits)
	assert.Contains(t, result.Hits[0].Highlights["description"], "<mark>")
}

func TestDeleteVideo(t *testing.T) {
	idx := newTestIndex(t)

	indexAnalysis(t, idx, testAnalysis("vid-a",
		domain.Segment{Start: 10, End: 40, Category: "sponsor", Description: "sponsor one", Confidence: 0.95},
		domain.Segment{Start: 100, End: 130, Category: "sponsor", Description: "sponsor two", Confidence: 0.9},
	))
	indexAnalysis(t, idx, testAnalysis("vid-b",
		domain.Segment{Start: 20, End: 50, Category: "sponsor", Description: "sponsor elsewhere", Confidence: 0.9}))

	require.NoError(t, idx.DeleteVideo("vid-a"))

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestMappingVersionMismatchRebuilds(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	idx, err := NewSearchIndex(Options{DataPath: dir, Logger: logger})
	require.NoError(t, err)
	indexAnalysis(t, idx, testAnalysis("vid-a",
		domain.Segment{Start: 10, End: 40, Category: "sponsor", Description: "sponsor", Confidence: 0.95}))
	require.NoError(t, idx.Close())

	// Reopening with a matching version keeps the documents.
	idx, err = NewSearchIndex(Options{DataPath: dir, Logger: logger})
	require.NoError(t, err)
	defer idx.Close()

	count, err := idx.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSegmentDocumentID(t *testing.T) {
	assert.Equal(t, "vid-a#0", SegmentDocumentID("vid-a", 0))
	assert.Equal(t, "vid-a#3", SegmentDocumentID("vid-a", 3))
}

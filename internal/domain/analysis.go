package domain

import (
	"time"
)

// DefaultStaleAge is how old an analysis may grow before it is
// considered stale and eligible for cache eviction.
const DefaultStaleAge = 30 * 24 * time.Hour

// AnalysisMetadata describes how an AnalysisResult was produced.
// AnalyzedAt is set once at creation and never mutated.
type AnalysisMetadata struct {
	AnalyzedAt       time.Time `json:"analyzed_at"`
	Model            string    `json:"model"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	TranscriptLength int       `json:"transcript_length"`

	// Provenance for results produced by reconciling several runs.
	SourceCount int      `json:"source_count,omitempty"`
	Models      []string `json:"models,omitempty"`
}

// AnalysisResult aggregates the detected segments for one video.
// Operations on it have value semantics: filtering and merging return
// new instances, the receiver is never mutated.
type AnalysisResult struct {
	VideoID  string           `json:"video_id"`
	Segments []Segment        `json:"segments"`
	Metadata AnalysisMetadata `json:"metadata"`
}

// NewAnalysisResult creates a result for a completed classification.
func NewAnalysisResult(videoID string, segments []Segment, model string, processingTime time.Duration, transcriptLength int) *AnalysisResult {
	if segments == nil {
		segments = []Segment{}
	}
	return &AnalysisResult{
		VideoID:  videoID,
		Segments: segments,
		Metadata: AnalysisMetadata{
			AnalyzedAt:       time.Now(),
			Model:            model,
			ProcessingTimeMs: processingTime.Milliseconds(),
			TranscriptLength: transcriptLength,
			SourceCount:      1,
			Models:           []string{model},
		},
	}
}

// FilterByConfidence returns a new result containing only segments at
// or above the threshold.
func (r *AnalysisResult) FilterByConfidence(threshold float64) *AnalysisResult {
	kept := make([]Segment, 0, len(r.Segments))
	for _, s := range r.Segments {
		if s.Confidence >= threshold {
			kept = append(kept, s)
		}
	}
	return r.withSegments(kept)
}

// FilterByCategories returns a new result containing only segments
// whose category label matches at least one enabled category. Labels
// are matched loosely (substring, case-insensitive) so merged "a + b"
// labels and legacy cached labels still resolve.
func (r *AnalysisResult) FilterByCategories(enabled map[Category]bool) *AnalysisResult {
	kept := make([]Segment, 0, len(r.Segments))
	for _, s := range r.Segments {
		for c, on := range enabled {
			if on && c.MatchesLabel(s.Category) {
				kept = append(kept, s)
				break
			}
		}
	}
	return r.withSegments(kept)
}

// MergeOverlapping returns a new result with overlapping and adjacent
// segments collapsed.
func (r *AnalysisResult) MergeOverlapping() *AnalysisResult {
	return r.withSegments(MergeSegments(r.Segments))
}

// IsStale reports whether the analysis is older than maxAge.
// Staleness is derived, never stored.
func (r *AnalysisResult) IsStale(maxAge time.Duration) bool {
	return time.Since(r.Metadata.AnalyzedAt) > maxAge
}

// Clone returns a deep copy of the result.
func (r *AnalysisResult) Clone() *AnalysisResult {
	segments := make([]Segment, len(r.Segments))
	copy(segments, r.Segments)
	out := *r
	out.Segments = segments
	out.Metadata.Models = append([]string(nil), r.Metadata.Models...)
	return &out
}

// withSegments copies the result with a replaced segment list.
func (r *AnalysisResult) withSegments(segments []Segment) *AnalysisResult {
	out := r.Clone()
	out.Segments = segments
	return out
}

// MergeResults reconciles several classification runs for the same
// video: segment lists are concatenated and re-merged, and the
// metadata records provenance. AnalyzedAt takes the newest run (a
// merged result is as fresh as its freshest contributor), processing
// time accumulates, and Models lists every contributing model once.
func MergeResults(results ...*AnalysisResult) *AnalysisResult {
	if len(results) == 0 {
		return nil
	}
	if len(results) == 1 {
		return results[0].Clone()
	}

	out := &AnalysisResult{
		VideoID:  results[0].VideoID,
		Segments: []Segment{},
	}

	seen := map[string]bool{}
	var all []Segment
	for _, r := range results {
		all = append(all, r.Segments...)

		m := r.Metadata
		if m.AnalyzedAt.After(out.Metadata.AnalyzedAt) {
			out.Metadata.AnalyzedAt = m.AnalyzedAt
			out.Metadata.Model = m.Model
		}
		out.Metadata.ProcessingTimeMs += m.ProcessingTimeMs
		if m.TranscriptLength > out.Metadata.TranscriptLength {
			out.Metadata.TranscriptLength = m.TranscriptLength
		}

		sources := m.Models
		if len(sources) == 0 && m.Model != "" {
			sources = []string{m.Model}
		}
		for _, model := range sources {
			if !seen[model] {
				seen[model] = true
				out.Metadata.Models = append(out.Metadata.Models, model)
			}
		}
		count := m.SourceCount
		if count == 0 {
			count = 1
		}
		out.Metadata.SourceCount += count
	}

	out.Segments = MergeSegments(all)
	return out
}

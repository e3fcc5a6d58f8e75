package domain

import (
	"sort"
	"strings"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
)

// Segment is one skippable time range in a video.
// Immutable once built - merges and filters always produce new values.
type Segment struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// NewSegment builds a validated segment. It fails fast: no partially
// built segment ever escapes.
func NewSegment(start, end float64, category, description string, confidence float64) (Segment, error) {
	if start < 0 {
		return Segment{}, errors.Validationf("segment start must be >= 0, got %v", start)
	}
	if end <= start {
		return Segment{}, errors.Validationf("segment end must be > start, got [%v, %v]", start, end)
	}
	if strings.TrimSpace(category) == "" {
		return Segment{}, errors.Validation("segment category must not be empty")
	}
	if confidence < 0 || confidence > 1 {
		return Segment{}, errors.Validationf("segment confidence must be in [0, 1], got %v", confidence)
	}
	return Segment{
		Start:       start,
		End:         end,
		Category:    category,
		Description: description,
		Confidence:  confidence,
	}, nil
}

// Clone returns a copy of the segment.
func (s Segment) Clone() Segment {
	return s
}

// Duration returns the segment length in seconds.
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Contains reports whether t falls inside the segment.
// The start is inclusive, the end exclusive: once playback reaches
// End the segment counts as passed.
func (s Segment) Contains(t float64) bool {
	return t >= s.Start && t < s.End
}

// Overlaps reports whether two segments overlap or touch.
// Touching boundaries (s.End == other.Start) count as overlapping,
// so adjacent segments collapse into one skip instead of leaving a
// flickering micro-gap between two jumps.
func (s Segment) Overlaps(other Segment) bool {
	return s.Start <= other.End && other.Start <= s.End
}

// MergeSegments collapses an unordered segment list into a minimal set
// of non-overlapping segments sorted by start time.
//
// Merged metadata: start = min, end = max, category keeps the original
// when both sides agree and becomes "A + B" otherwise, descriptions are
// joined with " | ", and confidence takes the minimum - a merged region
// is only as trustworthy as its weakest contributor.
//
// Deterministic, O(n log n). Empty input yields an empty (non-nil) list.
func MergeSegments(segments []Segment) []Segment {
	if len(segments) == 0 {
		return []Segment{}
	}

	sorted := make([]Segment, len(segments))
	copy(sorted, segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	merged := make([]Segment, 0, len(sorted))
	acc := sorted[0].Clone()

	for _, cur := range sorted[1:] {
		if cur.Start <= acc.End {
			acc = mergePair(acc, cur)
			continue
		}
		merged = append(merged, acc)
		acc = cur.Clone()
	}

	return append(merged, acc)
}

// mergePair combines two overlapping segments into one.
func mergePair(a, b Segment) Segment {
	out := Segment{
		Start:      a.Start,
		End:        a.End,
		Category:   a.Category,
		Confidence: a.Confidence,
	}
	if b.Start < out.Start {
		out.Start = b.Start
	}
	if b.End > out.End {
		out.End = b.End
	}
	if b.Category != a.Category {
		out.Category = a.Category + " + " + b.Category
	}
	out.Description = joinDescriptions(a.Description, b.Description)
	if b.Confidence < out.Confidence {
		out.Confidence = b.Confidence
	}
	return out
}

// joinDescriptions concatenates the non-empty parts with " | ".
func joinDescriptions(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " | ")
}

// TotalDuration sums the durations of the given segments.
func TotalDuration(segments []Segment) float64 {
	var total float64
	for _, s := range segments {
		total += s.Duration()
	}
	return total
}

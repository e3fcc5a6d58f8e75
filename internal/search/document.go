// Package search provides full-text search over detected segments using
// Bleve. Every cached analysis contributes one document per segment, so
// the user can find "that video where they plugged the VPN" by the words
// the classifier used to describe the plug.
package search

import (
	"fmt"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
)

// SearchDocument is one indexed segment.
type SearchDocument struct {
	// ID is "<video_id>#<ordinal>"; the ordinal is the segment's position
	// in the analysis, which keeps IDs stable across reindexing of the
	// same result.
	ID      string `json:"id"`
	VideoID string `json:"video_id"`

	Category    string `json:"category"`
	Description string `json:"description,omitempty"`

	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`

	// AnalyzedAt is Unix millis, for recency sorting.
	AnalyzedAt int64  `json:"analyzed_at"`
	Model      string `json:"model,omitempty"`
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *SearchDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":          d.ID,
		"video_id":    d.VideoID,
		"category":    d.Category,
		"start":       d.Start,
		"end":         d.End,
		"confidence":  d.Confidence,
		"analyzed_at": d.AnalyzedAt,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Model != "" {
		m["model"] = d.Model
	}
	return m
}

// SegmentDocumentID builds the index ID for one segment of a video.
func SegmentDocumentID(videoID string, ordinal int) string {
	return fmt.Sprintf("%s#%d", videoID, ordinal)
}

// AnalysisToDocuments converts a full analysis into its per-segment
// documents.
func AnalysisToDocuments(result *domain.AnalysisResult) []*SearchDocument {
	docs := make([]*SearchDocument, 0, len(result.Segments))
	for i, seg := range result.Segments {
		docs = append(docs, &SearchDocument{
			ID:          SegmentDocumentID(result.VideoID, i),
			VideoID:     result.VideoID,
			Category:    seg.Category,
			Description: seg.Description,
			Start:       seg.Start,
			End:         seg.End,
			Confidence:  seg.Confidence,
			AnalyzedAt:  result.Metadata.AnalyzedAt.UnixMilli(),
			Model:       result.Metadata.Model,
		})
	}
	return docs
}

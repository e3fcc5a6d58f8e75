package domain

import "time"

// SkipAction records how a segment encounter ended.
type SkipAction string

const (
	// SkipActionSkipped - the automatic skip ran to completion.
	SkipActionSkipped SkipAction = "skipped"
	// SkipActionCancelled - the user cancelled during the preview.
	SkipActionCancelled SkipAction = "cancelled"
	// SkipActionManual - the user clicked a timeline marker.
	SkipActionManual SkipAction = "manual"
)

// Valid reports whether a is a known action.
func (a SkipAction) Valid() bool {
	switch a {
	case SkipActionSkipped, SkipActionCancelled, SkipActionManual:
		return true
	}
	return false
}

// SkipEvent is the append-only record of one segment encounter,
// written to the analytics store when a session skips, cancels, or
// manually jumps a segment.
type SkipEvent struct {
	ID       string     `json:"id"`
	VideoID  string     `json:"video_id"`
	Category string     `json:"category"`
	Start    float64    `json:"start"`
	End      float64    `json:"end"`
	Action   SkipAction `json:"action"`
	At       time.Time  `json:"at"`

	// SavedSeconds is the watch time avoided: the segment duration for
	// completed skips, zero for cancellations.
	SavedSeconds float64 `json:"saved_seconds"`
}

// NewSkipEvent builds an event for a segment encounter.
func NewSkipEvent(id, videoID string, segment Segment, action SkipAction) *SkipEvent {
	saved := segment.Duration()
	if action == SkipActionCancelled {
		saved = 0
	}
	return &SkipEvent{
		ID:           id,
		VideoID:      videoID,
		Category:     segment.Category,
		Start:        segment.Start,
		End:          segment.End,
		Action:       action,
		At:           time.Now(),
		SavedSeconds: saved,
	}
}

// SkipSummary aggregates skip history for the stats surface.
type SkipSummary struct {
	TotalSkips        int                `json:"total_skips"`
	TotalCancelled    int                `json:"total_cancelled"`
	TotalManual       int                `json:"total_manual"`
	TotalSavedSeconds float64            `json:"total_saved_seconds"`
	VideosTouched     int                `json:"videos_touched"`
	ByCategory        map[string]int     `json:"by_category"`
	ByDay             map[string]float64 `json:"by_day"` // day (2006-01-02) -> saved seconds
}

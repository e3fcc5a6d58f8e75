// Package sse implements Server-Sent Events for pushing analysis progress and
// playback activity to connected extension clients.
package sse

import (
	"time"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
)

// The extension talks to the daemon over plain request/response for everything
// it initiates; SSE covers the reverse direction only (analysis progress,
// cache changes, skip activity). Bidirectional playback control stays on the
// tick endpoint rather than a socket.

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventAnalysisStarted represents the start of a video analysis.
	EventAnalysisStarted EventType = "analysis.started"
	// EventAnalysisStage represents an analysis pipeline stage change.
	EventAnalysisStage EventType = "analysis.stage"
	// EventAnalysisCompleted represents a finished analysis.
	EventAnalysisCompleted EventType = "analysis.completed"
	// EventAnalysisFailed represents a failed analysis.
	EventAnalysisFailed EventType = "analysis.failed"

	// EventCacheStored represents a new or refreshed cache entry.
	EventCacheStored EventType = "cache.stored"
	// EventCacheInvalidated represents a removed cache entry.
	EventCacheInvalidated EventType = "cache.invalidated"
	// EventCacheSwept represents a completed stale-entry sweep.
	EventCacheSwept EventType = "cache.swept"

	// EventSettingsUpdated represents a settings change.
	EventSettingsUpdated EventType = "settings.updated"

	// EventClientPaired represents a newly paired extension install.
	EventClientPaired EventType = "client.paired"

	// EventSessionStarted represents a new playback session.
	EventSessionStarted EventType = "session.started"
	// EventPreviewStarted represents a preview countdown starting.
	EventPreviewStarted EventType = "preview.started"
	// EventSegmentSkipped represents an executed segment skip.
	EventSegmentSkipped EventType = "segment.skipped"
	// EventPreviewCancelled represents a cancelled preview.
	EventPreviewCancelled EventType = "preview.cancelled"
	// EventSessionEnded represents a detached playback session.
	EventSessionEnded EventType = "session.ended"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"` // Event-specific data as JSON object
	Type      EventType `json:"type"`

	// VideoID filters delivery for connections subscribed to a single video.
	// Empty string means "broadcast to all" (not sent to clients).
	VideoID string `json:"-"`
}

// AnalysisStartedEventData is the data payload for analysis.started events.
type AnalysisStartedEventData struct {
	StartedAt time.Time `json:"started_at"`
	VideoID   string    `json:"video_id"`
	Provider  string    `json:"provider"`
}

// AnalysisStageEventData is the data payload for analysis.stage events.
type AnalysisStageEventData struct {
	At      time.Time `json:"at"`
	VideoID string    `json:"video_id"`
	Stage   string    `json:"stage"`
}

// AnalysisCompletedEventData is the data payload for analysis.completed events.
type AnalysisCompletedEventData struct {
	CompletedAt  time.Time `json:"completed_at"`
	VideoID      string    `json:"video_id"`
	SegmentCount int       `json:"segment_count"`
	FromCache    bool      `json:"from_cache"`
}

// AnalysisFailedEventData is the data payload for analysis.failed events.
type AnalysisFailedEventData struct {
	FailedAt time.Time `json:"failed_at"`
	VideoID  string    `json:"video_id"`
	Code     string    `json:"code"`
	Error    string    `json:"error"`
}

// CacheStoredEventData is the data payload for cache.stored events.
type CacheStoredEventData struct {
	StoredAt     time.Time `json:"stored_at"`
	VideoID      string    `json:"video_id"`
	SegmentCount int       `json:"segment_count"`
}

// CacheInvalidatedEventData is the data payload for cache.invalidated events.
type CacheInvalidatedEventData struct {
	InvalidatedAt time.Time `json:"invalidated_at"`
	VideoID       string    `json:"video_id"`
}

// CacheSweptEventData is the data payload for cache.swept events.
type CacheSweptEventData struct {
	SweptAt time.Time `json:"swept_at"`
	Removed int       `json:"removed"`
}

// SettingsUpdatedEventData is the data payload for settings.updated events.
type SettingsUpdatedEventData struct {
	Settings *domain.UserSettings `json:"settings"`
}

// ClientPairedEventData is the data payload for client.paired events.
// The tokens never travel over SSE; only the identity does.
type ClientPairedEventData struct {
	PairedAt time.Time `json:"paired_at"`
	ClientID string    `json:"client_id"`
	Label    string    `json:"label"`
}

// SessionStartedEventData is the data payload for session.started events.
type SessionStartedEventData struct {
	StartedAt    time.Time `json:"started_at"`
	SessionID    string    `json:"session_id"`
	VideoID      string    `json:"video_id"`
	SegmentCount int       `json:"segment_count"`
}

// PreviewStartedEventData is the data payload for preview.started events.
type PreviewStartedEventData struct {
	SessionID string          `json:"session_id"`
	VideoID   string          `json:"video_id"`
	Segment   *domain.Segment `json:"segment"`
	Countdown float64         `json:"countdown_seconds"`
}

// SegmentSkippedEventData is the data payload for segment.skipped events.
type SegmentSkippedEventData struct {
	At        time.Time `json:"at"`
	SessionID string    `json:"session_id"`
	VideoID   string    `json:"video_id"`
	Category  string    `json:"category"`
	From      float64   `json:"from"`
	To        float64   `json:"to"`
	Auto      bool      `json:"auto"`
}

// PreviewCancelledEventData is the data payload for preview.cancelled events.
type PreviewCancelledEventData struct {
	At        time.Time       `json:"at"`
	SessionID string          `json:"session_id"`
	VideoID   string          `json:"video_id"`
	Segment   *domain.Segment `json:"segment"`
}

// SessionEndedEventData is the data payload for session.ended events.
type SessionEndedEventData struct {
	EndedAt      time.Time `json:"ended_at"`
	SessionID    string    `json:"session_id"`
	VideoID      string    `json:"video_id"`
	SavedSeconds float64   `json:"saved_seconds"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewAnalysisStartedEvent creates an analysis.started event.
func NewAnalysisStartedEvent(videoID, provider string) Event {
	return Event{
		Type: EventAnalysisStarted,
		Data: AnalysisStartedEventData{
			VideoID:   videoID,
			Provider:  provider,
			StartedAt: time.Now(),
		},
		Timestamp: time.Now(),
		VideoID:   videoID,
	}
}

// NewAnalysisStageEvent creates an analysis.stage event.
func NewAnalysisStageEvent(videoID, stage string) Event {
	return Event{
		Type: EventAnalysisStage,
		Data: AnalysisStageEventData{
			VideoID: videoID,
			Stage:   stage,
			At:      time.Now(),
		},
		Timestamp: time.Now(),
		VideoID:   videoID,
	}
}

// NewAnalysisCompletedEvent creates an analysis.completed event.
func NewAnalysisCompletedEvent(videoID string, segmentCount int, fromCache bool) Event {
	return Event{
		Type: EventAnalysisCompleted,
		Data: AnalysisCompletedEventData{
			VideoID:      videoID,
			SegmentCount: segmentCount,
			FromCache:    fromCache,
			CompletedAt:  time.Now(),
		},
		Timestamp: time.Now(),
		VideoID:   videoID,
	}
}

// NewAnalysisFailedEvent creates an analysis.failed event.
func NewAnalysisFailedEvent(videoID, code, errMsg string) Event {
	return Event{
		Type: EventAnalysisFailed,
		Data: AnalysisFailedEventData{
			VideoID:  videoID,
			Code:     code,
			Error:    errMsg,
			FailedAt: time.Now(),
		},
		Timestamp: time.Now(),
		VideoID:   videoID,
	}
}

// NewCacheStoredEvent creates a cache.stored event.
func NewCacheStoredEvent(videoID string, segmentCount int) Event {
	return Event{
		Type: EventCacheStored,
		Data: CacheStoredEventData{
			VideoID:      videoID,
			SegmentCount: segmentCount,
			StoredAt:     time.Now(),
		},
		Timestamp: time.Now(),
		VideoID:   videoID,
	}
}

// NewCacheInvalidatedEvent creates a cache.invalidated event.
func NewCacheInvalidatedEvent(videoID string) Event {
	return Event{
		Type: EventCacheInvalidated,
		Data: CacheInvalidatedEventData{
			VideoID:       videoID,
			InvalidatedAt: time.Now(),
		},
		Timestamp: time.Now(),
		VideoID:   videoID,
	}
}

// NewCacheSweptEvent creates a cache.swept event.
func NewCacheSweptEvent(removed int) Event {
	return Event{
		Type: EventCacheSwept,
		Data: CacheSweptEventData{
			Removed: removed,
			SweptAt: time.Now(),
		},
		Timestamp: time.Now(),
	}
}

// NewSettingsUpdatedEvent creates a settings.updated event.
func NewSettingsUpdatedEvent(settings *domain.UserSettings) Event {
	return Event{
		Type:      EventSettingsUpdated,
		Data:      SettingsUpdatedEventData{Settings: settings},
		Timestamp: time.Now(),
	}
}

// NewClientPairedEvent creates a client.paired event.
func NewClientPairedEvent(clientID, label string) Event {
	return Event{
		Type: EventClientPaired,
		Data: ClientPairedEventData{
			ClientID: clientID,
			Label:    label,
			PairedAt: time.Now(),
		},
		Timestamp: time.Now(),
	}
}

// NewSessionStartedEvent creates a session.started event.
func NewSessionStartedEvent(sessionID, videoID string, segmentCount int) Event {
	return Event{
		Type: EventSessionStarted,
		Data: SessionStartedEventData{
			SessionID:    sessionID,
			VideoID:      videoID,
			SegmentCount: segmentCount,
			StartedAt:    time.Now(),
		},
		Timestamp: time.Now(),
		VideoID:   videoID,
	}
}

// NewPreviewStartedEvent creates a preview.started event.
func NewPreviewStartedEvent(sessionID, videoID string, segment *domain.Segment, countdown float64) Event {
	return Event{
		Type: EventPreviewStarted,
		Data: PreviewStartedEventData{
			SessionID: sessionID,
			VideoID:   videoID,
			Segment:   segment,
			Countdown: countdown,
		},
		Timestamp: time.Now(),
		VideoID:   videoID,
	}
}

// NewSegmentSkippedEvent creates a segment.skipped event.
func NewSegmentSkippedEvent(sessionID, videoID, category string, from, to float64, auto bool) Event {
	return Event{
		Type: EventSegmentSkipped,
		Data: SegmentSkippedEventData{
			SessionID: sessionID,
			VideoID:   videoID,
			Category:  category,
			From:      from,
			To:        to,
			Auto:      auto,
			At:        time.Now(),
		},
		Timestamp: time.Now(),
		VideoID:   videoID,
	}
}

// NewPreviewCancelledEvent creates a preview.cancelled event.
func NewPreviewCancelledEvent(sessionID, videoID string, segment *domain.Segment) Event {
	return Event{
		Type: EventPreviewCancelled,
		Data: PreviewCancelledEventData{
			SessionID: sessionID,
			VideoID:   videoID,
			Segment:   segment,
			At:        time.Now(),
		},
		Timestamp: time.Now(),
		VideoID:   videoID,
	}
}

// NewSessionEndedEvent creates a session.ended event.
func NewSessionEndedEvent(sessionID, videoID string, savedSeconds float64) Event {
	return Event{
		Type: EventSessionEnded,
		Data: SessionEndedEventData{
			SessionID:    sessionID,
			VideoID:      videoID,
			SavedSeconds: savedSeconds,
			EndedAt:      time.Now(),
		},
		Timestamp: time.Now(),
		VideoID:   videoID,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type:      EventHeartbeat,
		Data:      HeartbeatEventData{ServerTime: time.Now()},
		Timestamp: time.Now(),
	}
}

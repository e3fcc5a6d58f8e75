// Package playback implements the server-side playback monitor: one session
// per active player, fed by the extension's timeupdate ticks, deciding when a
// pending segment should be previewed, skipped, or dropped.
package playback

import (
	"sort"
	"sync"
	"time"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
)

// State is the monitor state of a session.
type State string

const (
	// StateWatching - ticks are scanned against the pending set.
	StateWatching State = "watching"
	// StatePreviewing - a countdown is running for the next skip.
	StatePreviewing State = "previewing"
	// StateDetached - the session has been torn down.
	StateDetached State = "detached"
)

// Action tells the extension what to do after a tick.
type Action string

const (
	// ActionNone - keep playing.
	ActionNone Action = "none"
	// ActionPreview - show the cancellable countdown overlay.
	ActionPreview Action = "preview"
	// ActionSeek - jump the player clock to SeekTo.
	ActionSeek Action = "seek"
)

// Directive is the session's answer to one tick.
type Directive struct {
	Action Action `json:"action"`
	// SeekTo is set for ActionSeek.
	SeekTo float64 `json:"seek_to,omitempty"`
	// Countdown is the remaining preview seconds for ActionPreview.
	Countdown float64 `json:"countdown,omitempty"`
	// Segment is the segment being previewed or skipped.
	Segment *domain.Segment `json:"segment,omitempty"`
}

// Session monitors one video in one player tab. The pending set is a
// mutable working copy built from an immutable analysis result at attach
// time: segments are filtered by the current settings, merged again (cached
// raw segments are not guaranteed pre-merged), and then consumed as playback
// passes them. A consumed segment never re-triggers, even after a backward
// seek.
type Session struct {
	ID       string
	VideoID  string
	ClientID string

	mu      sync.Mutex
	state   State
	pending []domain.Segment // sorted by start, shrinks as playback passes segments

	preview        *domain.Segment
	previewStarted time.Time

	skipBuffer     float64
	previewEnabled bool
	autoSkip       bool

	lastTime     float64
	savedSeconds float64
	lastActivity time.Time
	attachedAt   time.Time
}

// newSession builds the working set for a session. The result's segments
// are filtered by settings, merged, and sorted before monitoring begins.
func newSession(id, videoID, clientID string, result *domain.AnalysisResult, settings *domain.UserSettings) *Session {
	working := result.
		FilterByConfidence(settings.ConfidenceThreshold).
		FilterByCategories(settings.EnabledCategories()).
		MergeOverlapping()

	pending := make([]domain.Segment, len(working.Segments))
	copy(pending, working.Segments)
	sort.Slice(pending, func(i, j int) bool { return pending[i].Start < pending[j].Start })

	now := time.Now()
	return &Session{
		ID:             id,
		VideoID:        videoID,
		ClientID:       clientID,
		state:          StateWatching,
		pending:        pending,
		skipBuffer:     settings.SkipBuffer,
		previewEnabled: settings.PreviewEnabled,
		autoSkip:       settings.AutoSkip,
		lastActivity:   now,
		attachedAt:     now,
	}
}

// State returns the current monitor state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PendingSegments returns a copy of the remaining working set.
func (s *Session) PendingSegments() []domain.Segment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Segment, len(s.pending))
	copy(out, s.pending)
	return out
}

// SavedSeconds returns the watch time skipped so far in this session.
func (s *Session) SavedSeconds() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savedSeconds
}

// tickOutcome carries the side effects a tick decided on, so the manager
// can emit events and record analytics outside the session lock.
type tickOutcome struct {
	directive Directive
	skipped   *domain.Segment
	previewed *domain.Segment
}

// tick advances the session for one playback-clock sample.
func (s *Session) tick(currentTime float64) (tickOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDetached {
		return tickOutcome{}, errors.Conflict("session is detached")
	}

	s.lastActivity = time.Now()

	// A time regression beyond one buffer is a backward seek. Consumed
	// segments stay consumed; only the scan position rewinds.
	s.lastTime = currentTime

	// Segments fully behind the clock are spent regardless of how the
	// clock got there (natural playback, manual seek, or our own skip).
	s.evictPassed(currentTime)

	if s.state == StatePreviewing {
		return s.tickPreviewing(currentTime), nil
	}

	seg := s.findActive(currentTime)
	if seg == nil || !s.autoSkip {
		return tickOutcome{directive: Directive{Action: ActionNone}}, nil
	}

	if s.previewEnabled {
		s.state = StatePreviewing
		s.preview = seg
		s.previewStarted = time.Now()
		return tickOutcome{
			directive: Directive{Action: ActionPreview, Countdown: s.skipBuffer, Segment: seg},
			previewed: seg,
		}, nil
	}

	return s.executeSkip(*seg), nil
}

// tickPreviewing handles a tick while a countdown is running.
func (s *Session) tickPreviewing(currentTime float64) tickOutcome {
	seg := s.preview

	// The previewed segment may already have been evicted (the user
	// seeked past it); drop back to watching.
	if seg == nil || !s.isPending(*seg) {
		s.state = StateWatching
		s.preview = nil
		return tickOutcome{directive: Directive{Action: ActionNone}}
	}

	// A backward seek out of the preview window abandons the countdown.
	// The segment stays pending so the approach triggers again when the
	// clock comes back; skipping now would jump over genuine content.
	if currentTime < seg.Start-s.skipBuffer {
		s.state = StateWatching
		s.preview = nil
		return tickOutcome{directive: Directive{Action: ActionNone}}
	}

	remaining := s.skipBuffer - time.Since(s.previewStarted).Seconds()
	if remaining > 0 {
		return tickOutcome{
			directive: Directive{Action: ActionPreview, Countdown: remaining, Segment: seg},
		}
	}

	// Countdown elapsed without a cancel.
	s.state = StateWatching
	s.preview = nil
	return s.executeSkip(*seg)
}

// cancelPreview permanently drops the previewed segment for this session.
// Cancelling is a normal transition, never an error path; calling it with
// no preview running is the only rejected case.
func (s *Session) cancelPreview() (domain.Segment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePreviewing || s.preview == nil {
		return domain.Segment{}, errors.Conflict("no preview in progress")
	}

	seg := *s.preview
	s.removeSegment(seg)
	s.state = StateWatching
	s.preview = nil
	s.lastActivity = time.Now()
	return seg, nil
}

// manualSkip jumps over the pending segment starting at start. The same
// eviction rule as an automatic skip applies, without the preview step.
func (s *Session) manualSkip(start float64) (tickOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDetached {
		return tickOutcome{}, errors.Conflict("session is detached")
	}

	const epsilon = 0.01
	for _, seg := range s.pending {
		if seg.Start >= start-epsilon && seg.Start <= start+epsilon {
			if s.preview != nil && *s.preview == seg {
				s.state = StateWatching
				s.preview = nil
			}
			s.lastActivity = time.Now()
			return s.executeSkip(seg), nil
		}
	}
	return tickOutcome{}, errors.NotFoundf("no pending segment starts at %v", start)
}

// detach tears the session down and discards the working set.
func (s *Session) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateDetached
	s.pending = nil
	s.preview = nil
}

// executeSkip jumps the clock past seg, evicting everything the jump
// passes - including smaller segments fully inside the skipped range.
// Callers hold the lock.
func (s *Session) executeSkip(seg domain.Segment) tickOutcome {
	// Credit only the part of the segment actually jumped over: when the
	// clock is already inside it, the stretch behind the clock was watched.
	from := seg.Start
	if s.lastTime > from {
		from = s.lastTime
	}

	newTime := seg.End
	s.evictPassed(newTime)
	s.lastTime = newTime
	s.savedSeconds += newTime - from

	skipped := seg
	return tickOutcome{
		directive: Directive{Action: ActionSeek, SeekTo: newTime, Segment: &skipped},
		skipped:   &skipped,
	}
}

// findActive returns the first pending segment the clock is inside of, or
// close enough ahead of (within the skip buffer) to warrant a preview.
// Callers hold the lock.
func (s *Session) findActive(currentTime float64) *domain.Segment {
	for i := range s.pending {
		seg := s.pending[i]
		if currentTime >= seg.Start-s.skipBuffer && currentTime < seg.End {
			return &seg
		}
	}
	return nil
}

// evictPassed removes every pending segment with end <= t. Callers hold
// the lock.
func (s *Session) evictPassed(t float64) {
	kept := s.pending[:0]
	for _, seg := range s.pending {
		if seg.End > t {
			kept = append(kept, seg)
		}
	}
	s.pending = kept
}

// isPending reports whether seg is still in the working set. Callers hold
// the lock.
func (s *Session) isPending(seg domain.Segment) bool {
	for _, p := range s.pending {
		if p == seg {
			return true
		}
	}
	return false
}

// removeSegment drops one exact segment from the working set. Callers hold
// the lock.
func (s *Session) removeSegment(seg domain.Segment) {
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p != seg {
			kept = append(kept, p)
		}
	}
	s.pending = kept
}

// idle reports whether the session has seen no ticks for at least ttl.
func (s *Session) idle(ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity) >= ttl
}

package playback

import (
	"context"
	"log/slog"
	"time"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/cache"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/id"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
)

// DefaultIdleTTL is how long a session may go without a tick before the
// janitor ends it. Extensions tick every few seconds while a tab plays, so
// an idle session means a closed tab that never said goodbye.
const DefaultIdleTTL = 5 * time.Minute

// SkipRecorder receives the append-only skip history. Implemented by the
// analytics store.
type SkipRecorder interface {
	RecordSkip(ctx context.Context, event *domain.SkipEvent) error
}

// EventEmitter pushes events to connected SSE clients.
type EventEmitter interface {
	Emit(event any)
}

// Manager owns all live playback sessions.
type Manager struct {
	sessions *cache.SyncMap[string, *Session]
	recorder SkipRecorder
	emitter  EventEmitter
	logger   *slog.Logger
	idleTTL  time.Duration
}

// NewManager creates a session manager. recorder and emitter may not be nil.
func NewManager(recorder SkipRecorder, emitter EventEmitter, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: cache.NewSyncMap[string, *Session](),
		recorder: recorder,
		emitter:  emitter,
		logger:   logger,
		idleTTL:  DefaultIdleTTL,
	}
}

// SetIdleTTL overrides the janitor timeout. Zero disables idle reaping.
func (m *Manager) SetIdleTTL(ttl time.Duration) {
	m.idleTTL = ttl
}

// Attach creates a session for a video. The analysis result is snapshotted
// through the caller's settings into the session's working set, so later
// settings changes never affect a running session.
func (m *Manager) Attach(videoID, clientID string, result *domain.AnalysisResult, settings *domain.UserSettings) (*Session, error) {
	if result == nil {
		return nil, errors.Validation("analysis result is required")
	}
	if settings == nil {
		return nil, errors.Validation("settings are required")
	}

	sessionID, err := id.Generate("session")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to generate session ID")
	}

	s := newSession(sessionID, videoID, clientID, result, settings)
	m.sessions.Store(sessionID, s)

	m.emitter.Emit(sse.NewSessionStartedEvent(sessionID, videoID, len(s.PendingSegments())))
	m.logger.Info("playback session started",
		"session_id", sessionID,
		"video_id", videoID,
		"client_id", clientID,
		"pending", len(s.PendingSegments()))
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(sessionID string) (*Session, error) {
	s, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, errors.NotFoundf("session %s not found", sessionID)
	}
	return s, nil
}

// Tick advances a session for one playback-clock sample and returns the
// directive the extension should act on.
func (m *Manager) Tick(ctx context.Context, sessionID string, currentTime float64) (Directive, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return Directive{}, err
	}

	outcome, err := s.tick(currentTime)
	if err != nil {
		return Directive{}, err
	}

	if outcome.previewed != nil {
		m.emitter.Emit(sse.NewPreviewStartedEvent(s.ID, s.VideoID, outcome.previewed, s.skipBuffer))
	}
	if outcome.skipped != nil {
		m.recordEncounter(ctx, s, *outcome.skipped, domain.SkipActionSkipped)
	}
	return outcome.directive, nil
}

// CancelPreview aborts a running countdown. The segment is dropped for the
// rest of the session and recorded as a cancelled encounter.
func (m *Manager) CancelPreview(ctx context.Context, sessionID string) error {
	s, err := m.Get(sessionID)
	if err != nil {
		return err
	}

	seg, err := s.cancelPreview()
	if err != nil {
		return err
	}

	m.emitter.Emit(sse.NewPreviewCancelledEvent(s.ID, s.VideoID, &seg))
	m.recordEncounter(ctx, s, seg, domain.SkipActionCancelled)
	return nil
}

// ManualSkip jumps over the pending segment starting at start, as when the
// user clicks a timeline marker.
func (m *Manager) ManualSkip(ctx context.Context, sessionID string, start float64) (Directive, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return Directive{}, err
	}

	outcome, err := s.manualSkip(start)
	if err != nil {
		return Directive{}, err
	}

	if outcome.skipped != nil {
		m.recordEncounter(ctx, s, *outcome.skipped, domain.SkipActionManual)
	}
	return outcome.directive, nil
}

// End tears a session down and reports the watch time it saved.
func (m *Manager) End(sessionID string) (float64, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return 0, err
	}

	saved := s.SavedSeconds()
	s.detach()
	m.sessions.Delete(sessionID)

	m.emitter.Emit(sse.NewSessionEndedEvent(s.ID, s.VideoID, saved))
	m.logger.Info("playback session ended",
		"session_id", s.ID,
		"video_id", s.VideoID,
		"saved_seconds", saved)
	return saved, nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	return m.sessions.Len()
}

// Run reaps idle sessions until ctx is cancelled. Intended as a background
// goroutine owned by the DI container.
func (m *Manager) Run(ctx context.Context) {
	if m.idleTTL <= 0 {
		return
	}

	ticker := time.NewTicker(m.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reapIdle()
		}
	}
}

func (m *Manager) reapIdle() {
	var stale []string
	m.sessions.Range(func(sessionID string, s *Session) bool {
		if s.idle(m.idleTTL) {
			stale = append(stale, sessionID)
		}
		return true
	})

	for _, sessionID := range stale {
		if _, err := m.End(sessionID); err == nil {
			m.logger.Info("reaped idle playback session", "session_id", sessionID)
		}
	}
}

// recordEncounter writes the skip event and emits the SSE notification.
// Analytics failures are logged and swallowed: a lost history row must
// never break a skip.
func (m *Manager) recordEncounter(ctx context.Context, s *Session, seg domain.Segment, action domain.SkipAction) {
	m.emitter.Emit(sse.NewSegmentSkippedEvent(
		s.ID, s.VideoID, seg.Category, seg.Start, seg.End, action == domain.SkipActionSkipped))

	eventID, err := id.Generate("skip")
	if err != nil {
		m.logger.Warn("failed to generate skip event ID", "error", err)
		return
	}

	event := domain.NewSkipEvent(eventID, s.VideoID, seg, action)
	if err := m.recorder.RecordSkip(ctx, event); err != nil {
		m.logger.Warn("failed to record skip event",
			"session_id", s.ID,
			"video_id", s.VideoID,
			"error", err)
	}
}

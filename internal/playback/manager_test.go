package playback

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
)

type recorderStub struct {
	mu     sync.Mutex
	events []*domain.SkipEvent
	err    error
}

func (r *recorderStub) RecordSkip(_ context.Context, event *domain.SkipEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recorderStub) recorded() []*domain.SkipEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.SkipEvent, len(r.events))
	copy(out, r.events)
	return out
}

type emitterStub struct {
	mu     sync.Mutex
	events []sse.Event
}

func (e *emitterStub) Emit(event any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev, ok := event.(sse.Event); ok {
		e.events = append(e.events, ev)
	}
}

func (e *emitterStub) types() []sse.EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]sse.EventType, len(e.events))
	for i, ev := range e.events {
		out[i] = ev.Type
	}
	return out
}

func newTestManager(t *testing.T) (*Manager, *recorderStub, *emitterStub) {
	t.Helper()
	recorder := &recorderStub{}
	emitter := &emitterStub{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(recorder, emitter, logger), recorder, emitter
}

func TestManagerAttachAndGet(t *testing.T) {
	m, _, emitter := newTestManager(t)

	s, err := m.Attach("vid-test", "client-1",
		testResult(t, seg(10, 30, "sponsor")), testSettings())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Contains(t, s.ID, "session-")
	assert.Equal(t, 1, m.Count())

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	assert.Equal(t, []sse.EventType{sse.EventSessionStarted}, emitter.types())
}

func TestManagerGetUnknownSession(t *testing.T) {
	m, _, _ := newTestManager(t)
	_, err := m.Get("session-missing")
	assert.Error(t, err)
}

func TestManagerAttachRequiresResultAndSettings(t *testing.T) {
	m, _, _ := newTestManager(t)

	_, err := m.Attach("vid-test", "client-1", nil, testSettings())
	assert.Error(t, err)

	_, err = m.Attach("vid-test", "client-1", testResult(t), nil)
	assert.Error(t, err)
}

func TestManagerTickRecordsAutomaticSkip(t *testing.T) {
	m, recorder, emitter := newTestManager(t)

	settings := testSettings()
	settings.PreviewEnabled = false

	s, err := m.Attach("vid-test", "client-1",
		testResult(t, seg(100, 120, "sponsor")), settings)
	require.NoError(t, err)

	d, err := m.Tick(context.Background(), s.ID, 100.5)
	require.NoError(t, err)
	assert.Equal(t, ActionSeek, d.Action)
	assert.Equal(t, 120.0, d.SeekTo)

	events := recorder.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, domain.SkipActionSkipped, events[0].Action)
	assert.Equal(t, "vid-test", events[0].VideoID)
	assert.Equal(t, 19.5, events[0].SavedSeconds, "only the stretch ahead of the clock counts")
	assert.Contains(t, events[0].ID, "skip-")

	assert.Contains(t, emitter.types(), sse.EventSegmentSkipped)
}

func TestManagerPreviewThenCancel(t *testing.T) {
	m, recorder, emitter := newTestManager(t)

	s, err := m.Attach("vid-test", "client-1",
		testResult(t, seg(100, 120, "sponsor")), testSettings())
	require.NoError(t, err)

	d, err := m.Tick(context.Background(), s.ID, 99)
	require.NoError(t, err)
	assert.Equal(t, ActionPreview, d.Action)
	assert.Contains(t, emitter.types(), sse.EventPreviewStarted)

	err = m.CancelPreview(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Contains(t, emitter.types(), sse.EventPreviewCancelled)

	events := recorder.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, domain.SkipActionCancelled, events[0].Action)
	assert.Equal(t, 0.0, events[0].SavedSeconds)
}

func TestManagerManualSkip(t *testing.T) {
	m, recorder, _ := newTestManager(t)

	s, err := m.Attach("vid-test", "client-1",
		testResult(t, seg(100, 120, "sponsor")), testSettings())
	require.NoError(t, err)

	d, err := m.ManualSkip(context.Background(), s.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, ActionSeek, d.Action)

	events := recorder.recorded()
	require.Len(t, events, 1)
	assert.Equal(t, domain.SkipActionManual, events[0].Action)
}

func TestManagerRecorderFailureDoesNotBreakSkip(t *testing.T) {
	m, recorder, _ := newTestManager(t)
	recorder.err = context.DeadlineExceeded

	settings := testSettings()
	settings.PreviewEnabled = false

	s, err := m.Attach("vid-test", "client-1",
		testResult(t, seg(100, 120, "sponsor")), settings)
	require.NoError(t, err)

	d, err := m.Tick(context.Background(), s.ID, 100.5)
	require.NoError(t, err, "analytics failures never surface to the player")
	assert.Equal(t, ActionSeek, d.Action)
}

func TestManagerEnd(t *testing.T) {
	m, _, emitter := newTestManager(t)

	settings := testSettings()
	settings.PreviewEnabled = false

	s, err := m.Attach("vid-test", "client-1",
		testResult(t, seg(100, 120, "sponsor")), settings)
	require.NoError(t, err)

	_, err = m.Tick(context.Background(), s.ID, 100.5)
	require.NoError(t, err)

	saved, err := m.End(s.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, saved)
	assert.Equal(t, 0, m.Count())
	assert.Contains(t, emitter.types(), sse.EventSessionEnded)

	_, err = m.Get(s.ID)
	assert.Error(t, err)
}

func TestManagerReapsIdleSessions(t *testing.T) {
	m, _, emitter := newTestManager(t)
	m.SetIdleTTL(10 * time.Millisecond)

	_, err := m.Attach("vid-test", "client-1",
		testResult(t, seg(10, 30, "sponsor")), testSettings())
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	m.reapIdle()

	assert.Equal(t, 0, m.Count())
	assert.Contains(t, emitter.types(), sse.EventSessionEnded)
}

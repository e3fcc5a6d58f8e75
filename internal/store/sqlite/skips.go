package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
)

// skipEventColumns is the ordered list of columns selected in skip event
// queries. Must match the scan order in scanSkipEvent.
const skipEventColumns = `id, video_id, category, start_seconds, end_seconds, action, saved_seconds, at`

// scanSkipEvent scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.SkipEvent.
func scanSkipEvent(scanner interface{ Scan(dest ...any) error }) (*domain.SkipEvent, error) {
	var (
		e      domain.SkipEvent
		action string
		at     string
	)

	err := scanner.Scan(
		&e.ID,
		&e.VideoID,
		&e.Category,
		&e.Start,
		&e.End,
		&action,
		&e.SavedSeconds,
		&at,
	)
	if err != nil {
		return nil, err
	}

	e.Action = domain.SkipAction(action)
	e.At, err = parseTime(at)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// RecordSkip appends one skip event. Duplicate IDs are rejected, which
// makes retries after a transport error safe.
func (s *Store) RecordSkip(ctx context.Context, event *domain.SkipEvent) error {
	if event == nil {
		return errors.Validation("skip event is required")
	}
	if !event.Action.Valid() {
		return errors.Validationf("unknown skip action %q", event.Action)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO skip_events (`+skipEventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.VideoID,
		event.Category,
		event.Start,
		event.End,
		string(event.Action),
		event.SavedSeconds,
		formatTime(event.At),
	)
	if err != nil {
		return fmt.Errorf("insert skip event: %w", err)
	}

	s.logger.Debug("skip event recorded",
		"id", event.ID,
		"video_id", event.VideoID,
		"action", event.Action,
	)
	return nil
}

// ListSkips returns the skip history for one video, newest first.
func (s *Store) ListSkips(ctx context.Context, videoID string, limit int) ([]*domain.SkipEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+skipEventColumns+`
		FROM skip_events
		WHERE video_id = ?
		ORDER BY at DESC
		LIMIT ?`,
		videoID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query skip events: %w", err)
	}
	defer rows.Close()

	var events []*domain.SkipEvent
	for rows.Next() {
		e, err := scanSkipEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan skip event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Summary aggregates skip history since the given time. A zero since
// covers everything.
func (s *Store) Summary(ctx context.Context, since time.Time) (*domain.SkipSummary, error) {
	cutoff := formatTime(since)

	summary := &domain.SkipSummary{
		ByCategory: make(map[string]int),
		ByDay:      make(map[string]float64),
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN action IN ('skipped', 'manual') THEN 1 END),
			COUNT(CASE WHEN action = 'cancelled' THEN 1 END),
			COUNT(CASE WHEN action = 'manual' THEN 1 END),
			COALESCE(SUM(saved_seconds), 0),
			COUNT(DISTINCT video_id)
		FROM skip_events
		WHERE at >= ?`,
		cutoff,
	).Scan(
		&summary.TotalSkips,
		&summary.TotalCancelled,
		&summary.TotalManual,
		&summary.TotalSavedSeconds,
		&summary.VideosTouched,
	)
	if err != nil {
		return nil, fmt.Errorf("query skip totals: %w", err)
	}

	if err := s.summaryByCategory(ctx, cutoff, summary); err != nil {
		return nil, err
	}
	if err := s.summaryByDay(ctx, cutoff, summary); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Store) summaryByCategory(ctx context.Context, cutoff string, summary *domain.SkipSummary) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*)
		FROM skip_events
		WHERE at >= ? AND action IN ('skipped', 'manual')
		GROUP BY category`,
		cutoff,
	)
	if err != nil {
		return fmt.Errorf("query skips by category: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return fmt.Errorf("scan category row: %w", err)
		}
		summary.ByCategory[category] = count
	}
	return rows.Err()
}

func (s *Store) summaryByDay(ctx context.Context, cutoff string, summary *domain.SkipSummary) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(at, 1, 10), COALESCE(SUM(saved_seconds), 0)
		FROM skip_events
		WHERE at >= ?
		GROUP BY substr(at, 1, 10)`,
		cutoff,
	)
	if err != nil {
		return fmt.Errorf("query skips by day: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			day   string
			saved float64
		)
		if err := rows.Scan(&day, &saved); err != nil {
			return fmt.Errorf("scan day row: %w", err)
		}
		summary.ByDay[day] = saved
	}
	return rows.Err()
}

// PurgeBefore deletes skip events older than the cutoff and returns how
// many rows were removed.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM skip_events WHERE at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purge skip events: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("purged skip history", "removed", removed, "cutoff", cutoff)
	}
	return removed, nil
}

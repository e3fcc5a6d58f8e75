package store

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
)

// settingsKey is the singleton key for the daemon's user settings record.
// The daemon serves one user; paired extension clients all share it.
var settingsKey = []byte("settings:current")

// ErrSettingsNotFound is returned when no settings record exists yet.
var ErrSettingsNotFound = ErrNotFound.WithMessage("settings not found")

// GetSettings retrieves the current user settings.
// Returns ErrSettingsNotFound if none have been saved yet.
func (s *Store) GetSettings(ctx context.Context) (*domain.UserSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var settings domain.UserSettings
	err := s.get(settingsKey, &settings)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, NewStorageError("get settings", err)
	}
	return &settings, nil
}

// UpsertSettings saves the settings record and broadcasts the change.
func (s *Store) UpsertSettings(ctx context.Context, settings *domain.UserSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if settings == nil {
		return ErrInvalidInput.WithMessage("settings must not be nil")
	}

	settings.UpdatedAt = time.Now()
	if err := s.set(settingsKey, settings); err != nil {
		return NewStorageError("upsert settings", err)
	}

	s.eventEmitter.Emit(sse.NewSettingsUpdatedEvent(settings))
	return nil
}

// GetOrCreateSettings retrieves the settings or persists defaults if none exist.
func (s *Store) GetOrCreateSettings(ctx context.Context) (*domain.UserSettings, error) {
	settings, err := s.GetSettings(ctx)
	if err == nil {
		return settings, nil
	}

	if !errors.Is(err, ErrSettingsNotFound) {
		return nil, err
	}

	// Create defaults
	settings = domain.NewUserSettings()
	if err := s.UpsertSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

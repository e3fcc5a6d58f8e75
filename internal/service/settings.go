package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/validation"
)

// SettingsService manages the daemon's single user-settings record.
type SettingsService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewSettingsService creates a new settings service.
func NewSettingsService(store *store.Store, validator *validation.Validator, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// Get retrieves the current settings, creating defaults on first use.
func (s *SettingsService) Get(ctx context.Context) (*domain.UserSettings, error) {
	return s.store.GetOrCreateSettings(ctx)
}

// SettingsUpdate contains the fields a client may change. Nil means
// "leave as is".
type SettingsUpdate struct {
	Enabled             map[domain.Category]bool
	ConfidenceThreshold *float64
	SkipBuffer          *float64
	PreviewEnabled      *bool
	AutoSkip            *bool
	Provider            *string
	Model               *string
	MaxAgeDays          *int
}

// Update applies a partial update to the settings record. Unknown
// category keys are rejected rather than silently stored.
func (s *SettingsService) Update(ctx context.Context, update *SettingsUpdate) (*domain.UserSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, err := s.store.GetOrCreateSettings(ctx)
	if err != nil {
		return nil, err
	}

	if update.Enabled != nil {
		for c := range update.Enabled {
			if !c.Valid() {
				return nil, errors.Validationf("unknown category %q", c)
			}
		}
		current.Enabled = update.Enabled
	}
	if update.ConfidenceThreshold != nil {
		current.ConfidenceThreshold = *update.ConfidenceThreshold
	}
	if update.SkipBuffer != nil {
		current.SkipBuffer = *update.SkipBuffer
	}
	if update.PreviewEnabled != nil {
		current.PreviewEnabled = *update.PreviewEnabled
	}
	if update.AutoSkip != nil {
		current.AutoSkip = *update.AutoSkip
	}
	if update.Provider != nil {
		current.Provider = *update.Provider
	}
	if update.Model != nil {
		current.Model = *update.Model
	}
	if update.MaxAgeDays != nil {
		current.MaxAgeDays = *update.MaxAgeDays
	}
	current.UpdatedAt = time.Now()

	if err := s.validator.Validate(current); err != nil {
		return nil, err
	}

	if err := s.store.UpsertSettings(ctx, current); err != nil {
		return nil, err
	}

	s.logger.Info("settings updated",
		"provider", current.Provider,
		"threshold", current.ConfidenceThreshold,
		"auto_skip", current.AutoSkip,
	)
	return current, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/config"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	domainerrors "github.com/ChromuSx/SkipTubeAI-sub000/internal/errors"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store"
)

// Version is the daemon version stamped into the instance record and
// advertised over mDNS. Overridden at build time via -ldflags.
var Version = "dev"

// InstanceService handles the singleton daemon identity record.
type InstanceService struct {
	store  *store.Store
	logger *slog.Logger
	config *config.Config
}

// NewInstanceService creates a new instance service.
func NewInstanceService(store *store.Store, logger *slog.Logger, config *config.Config) *InstanceService {
	return &InstanceService{
		store:  store,
		logger: logger,
		config: config,
	}
}

// GetInstance retrieves the daemon instance record.
func (s *InstanceService) GetInstance(ctx context.Context) (*domain.Instance, error) {
	instance, err := s.store.GetInstance(ctx)
	if err != nil {
		if errors.Is(err, store.ErrDaemonNotFound) {
			return nil, domainerrors.NotFound("daemon instance record not found").WithCause(err)
		}
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	return instance, nil
}

// InitializeInstance ensures a daemon instance record exists. This is
// the main entry point for identity setup on first run.
func (s *InstanceService) InitializeInstance(ctx context.Context) (*domain.Instance, error) {
	instance, err := s.store.InitializeInstance(ctx, s.config.Server.Name, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize instance: %w", err)
	}

	// A renamed daemon keeps its identity; only the label changes.
	if s.config.Server.Name != "" && instance.Name != s.config.Server.Name {
		instance.Name = s.config.Server.Name
		if err := s.store.UpdateInstance(ctx, instance); err != nil {
			return nil, fmt.Errorf("failed to update instance with config: %w", err)
		}
	}

	return instance, nil
}

// InstanceUpdate contains optional fields for updating instance settings.
type InstanceUpdate struct {
	Name      *string
	RemoteURL *string
}

// UpdateInstanceSettings updates mutable instance fields.
// Only non-nil fields are applied. Returns the updated instance.
func (s *InstanceService) UpdateInstanceSettings(ctx context.Context, update *InstanceUpdate) (*domain.Instance, error) {
	instance, err := s.GetInstance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	if update.Name != nil {
		instance.Name = *update.Name
	}
	if update.RemoteURL != nil {
		instance.RemoteUrl = *update.RemoteURL
	}
	instance.UpdatedAt = time.Now()

	if err := s.store.UpdateInstance(ctx, instance); err != nil {
		return nil, fmt.Errorf("failed to update instance: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Instance settings updated",
			"instance_id", instance.ID,
			"name", instance.Name,
			"remote_url", instance.RemoteUrl,
		)
	}

	return instance, nil
}

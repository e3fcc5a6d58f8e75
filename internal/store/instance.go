package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
)

// daemonKey is the singleton key for the daemon instance record.
var daemonKey = []byte("daemon:config")

// ErrDaemonNotFound is returned when no daemon config exists.
var ErrDaemonNotFound = errors.New("daemon instance not found")

// GetInstance retrieves the singleton daemon instance record.
// Returns ErrDaemonNotFound if no instance exists.
func (s *Store) GetInstance(_ context.Context) (*domain.Instance, error) {
	var instance domain.Instance

	err := s.get(daemonKey, &instance)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrDaemonNotFound
		}
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	return &instance, nil
}

// UpdateInstance persists the daemon instance record.
func (s *Store) UpdateInstance(_ context.Context, instance *domain.Instance) error {
	instance.UpdatedAt = time.Now()

	if err := s.set(daemonKey, instance); err != nil {
		return fmt.Errorf("failed to update instance: %w", err)
	}

	return nil
}

// InitializeInstance ensures a daemon instance record exists, creating one
// with the given name and version on first boot. The version is refreshed on
// every boot so upgrades are visible in the record.
func (s *Store) InitializeInstance(ctx context.Context, name, version string) (*domain.Instance, error) {
	instance, err := s.GetInstance(ctx)
	if err == nil {
		if instance.Version != version {
			instance.Version = version
			if err := s.UpdateInstance(ctx, instance); err != nil {
				return nil, err
			}
		}
		if s.logger != nil {
			s.logger.Info("daemon instance record found",
				"id", instance.ID,
				"name", instance.Name,
				"version", instance.Version,
			)
		}
		return instance, nil
	}

	if !errors.Is(err, ErrDaemonNotFound) {
		return nil, fmt.Errorf("failed to initialize instance: %w", err)
	}

	now := time.Now()
	instance = &domain.Instance{
		ID:        "daemon-001", // Single daemon ID
		Name:      name,
		Version:   version,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.set(daemonKey, instance); err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("daemon instance record created", "id", instance.ID, "name", name, "version", version)
	}

	return instance, nil
}

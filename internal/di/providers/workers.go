package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/config"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/logger"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/playback"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/service"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/watcher"
)

// skipRetention is how long skip history rows are kept before the
// maintenance job purges them.
const skipRetention = 90 * 24 * time.Hour

// maintenanceInterval is how often stale cache entries and old skip
// history are swept.
const maintenanceInterval = time.Hour

// PlaybackManagerHandle wraps the playback manager with its reaper lifecycle.
type PlaybackManagerHandle struct {
	*playback.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *PlaybackManagerHandle) Shutdown() error {
	h.cancel()
	return nil
}

// ProvidePlaybackManager provides the skip session manager.
func ProvidePlaybackManager(i do.Injector) (*PlaybackManagerHandle, error) {
	skipHandle := do.MustInvoke[*SkipStoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	manager := playback.NewManager(skipHandle.Store, sseHandle.Manager, log.Logger)

	// Reap idle sessions in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Run(ctx)

	log.Info("Playback session manager started")

	return &PlaybackManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// SpoolIngestHandle wraps the transcript spool watcher and ingest loop.
type SpoolIngestHandle struct {
	*service.IngestService
	started bool
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SpoolIngestHandle) Shutdown() error {
	if h.started {
		h.cancel()
	}
	return nil
}

// ProvideSpoolIngest provides the transcript spool ingest pipeline.
// When ingest is disabled the handle is inert and the spool directory
// is left untouched.
func ProvideSpoolIngest(i do.Injector) (*SpoolIngestHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Ingest.Enabled {
		log.Info("Transcript spool ingest disabled by configuration")
		return &SpoolIngestHandle{started: false}, nil
	}

	analysisService := do.MustInvoke[*service.AnalysisService](i)

	w, err := watcher.New(cfg.Ingest.SpoolPath, log.Logger)
	if err != nil {
		return nil, err
	}

	svc := service.NewIngestService(w, analysisService, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Spool watcher error", "error", err)
		}
	}()

	go func() {
		if err := svc.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Spool ingest error", "error", err)
		}
	}()

	log.Info("Transcript spool ingest started", "path", cfg.Ingest.SpoolPath)

	return &SpoolIngestHandle{
		IngestService: svc,
		started:       true,
		cancel:        cancel,
	}, nil
}

// MaintenanceJob runs periodic cache sweeps and skip history purges.
type MaintenanceJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *MaintenanceJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideMaintenanceJob provides the periodic maintenance job.
func ProvideMaintenanceJob(i do.Injector) (*MaintenanceJob, error) {
	cacheHandle := do.MustInvoke[*SegmentCacheHandle](i)
	settingsService := do.MustInvoke[*service.SettingsService](i)
	skipService := do.MustInvoke[*service.SkipService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	sweep := func() {
		settings, err := settingsService.Get(ctx)
		if err != nil {
			log.Warn("Maintenance sweep skipped, settings unavailable", "error", err)
			return
		}

		if removed, err := cacheHandle.SweepStale(ctx, settings.MaxAge()); err != nil {
			log.Warn("Cache sweep failed", "error", err)
		} else if removed > 0 {
			log.Info("Cache sweep completed", "removed", removed)
		}

		if purged, err := skipService.Purge(ctx, skipRetention); err != nil {
			log.Warn("Skip history purge failed", "error", err)
		} else if purged > 0 {
			log.Info("Skip history purge completed", "purged", purged)
		}
	}

	go func() {
		ticker := time.NewTicker(maintenanceInterval)
		defer ticker.Stop()

		// Initial sweep on startup
		sweep()

		for {
			select {
			case <-ticker.C:
				sweep()
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Maintenance job started", "interval", maintenanceInterval)

	return &MaintenanceJob{cancel: cancel}, nil
}

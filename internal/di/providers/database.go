package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/cache"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/config"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/logger"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the badger store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the badger-backed segment store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	dbPath := cfg.CachePath()
	db, err := store.New(dbPath, log.Logger, sseHandle.Manager)
	if err != nil {
		return nil, err
	}

	log.Info("Segment store initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// SkipStoreHandle wraps the SQLite skip history store with shutdown capability.
type SkipStoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *SkipStoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideSkipStore provides the SQLite skip analytics store.
func ProvideSkipStore(i do.Injector) (*SkipStoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.SkipDBPath()
	db, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Skip history store initialized", "path", dbPath)

	return &SkipStoreHandle{Store: db}, nil
}

// SegmentCacheHandle wraps the segment cache with shutdown capability.
type SegmentCacheHandle struct {
	*cache.SegmentCache
}

// Shutdown implements do.Shutdownable.
func (h *SegmentCacheHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.SegmentCache.Shutdown(ctx)
}

// ProvideSegmentCache provides the two-tier segment cache.
func ProvideSegmentCache(i do.Injector) (*SegmentCacheHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	segCache := cache.New(storeHandle.Store, log.Logger)

	return &SegmentCacheHandle{SegmentCache: segCache}, nil
}

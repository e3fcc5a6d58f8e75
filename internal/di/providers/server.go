package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/api"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/config"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/logger"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/mdns"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/service"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	skipHandle := do.MustInvoke[*SkipStoreHandle](i)
	cacheHandle := do.MustInvoke[*SegmentCacheHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	playbackHandle := do.MustInvoke[*PlaybackManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	instanceService := do.MustInvoke[*service.InstanceService](i)
	authService := do.MustInvoke[*service.AuthService](i)
	analysisService := do.MustInvoke[*service.AnalysisService](i)
	settingsService := do.MustInvoke[*service.SettingsService](i)
	skipService := do.MustInvoke[*service.SkipService](i)
	searchService := do.MustInvoke[*service.SearchService](i)

	sseHandler := sse.NewHandler(sseHandle.Manager, log.Logger)

	services := &api.Services{
		Instance: instanceService,
		Auth:     authService,
		Analysis: analysisService,
		Settings: settingsService,
		Skips:    skipService,
		Search:   searchService,
	}

	handler := api.NewServer(api.Options{
		Store:      storeHandle.Store,
		SkipStore:  skipHandle.Store,
		Cache:      cacheHandle.SegmentCache,
		Services:   services,
		Playback:   playbackHandle.Manager,
		SSEManager: sseHandle.Manager,
		SSEHandler: sseHandler,
		Logger:     log.Logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Daemon running", "addr", srv.Addr)

	return &HTTPServerHandle{Server: srv}, nil
}

// MDNSServiceHandle wraps mdns.Service with Shutdownable.
type MDNSServiceHandle struct {
	*mdns.Service
	started bool
}

// Shutdown implements do.Shutdownable.
func (h *MDNSServiceHandle) Shutdown() error {
	if h.started && h.Service != nil {
		h.Stop()
	}
	return nil
}

// ProvideMDNSService provides the mDNS advertisement service.
func ProvideMDNSService(i do.Injector) (*MDNSServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	instanceService := do.MustInvoke[*service.InstanceService](i)

	// Always initialize the instance record regardless of mDNS config.
	ctx := context.Background()
	instance, err := instanceService.InitializeInstance(ctx)
	if err != nil {
		return nil, err
	}

	log.Info("Daemon instance ready",
		"instance_id", instance.ID,
		"name", instance.Name,
		"version", instance.Version,
	)

	if !cfg.Server.AdvertiseMDNS {
		log.Info("mDNS advertisement disabled by configuration")
		return &MDNSServiceHandle{Service: nil, started: false}, nil
	}

	svc := mdns.NewService(log.Logger)

	// Parse port
	port := 8845
	if _, err := fmt.Sscanf(cfg.Server.Port, "%d", &port); err != nil {
		log.Warn("Failed to parse server port for mDNS, using default", "port", cfg.Server.Port)
	}

	if err := svc.Start(instance, port); err != nil {
		log.Warn("mDNS advertisement unavailable", "error", err)
		// Non-fatal: the daemon works without discovery (e.g. containers)
		return &MDNSServiceHandle{Service: svc, started: false}, nil
	}

	return &MDNSServiceHandle{Service: svc, started: true}, nil
}

// Package main provides the entry point for the SkipTube daemon.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/di"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/di/providers"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/logger"
)

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap daemon: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down daemon gracefully...")

	// Shutdown all services in reverse order
	// The DI container handles shutdown order automatically
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	// Storage handles use wrapper types, close them explicitly in case
	// the container missed them
	if cacheHandle, err := do.Invoke[*providers.SegmentCacheHandle](injector); err == nil {
		if err := cacheHandle.Shutdown(); err != nil {
			log.Error("Failed to flush segment cache", "error", err)
		}
	}

	if storeHandle, err := do.Invoke[*providers.StoreHandle](injector); err == nil {
		log.Info("Closing segment store...")
		if err := storeHandle.Shutdown(); err != nil {
			log.Error("Failed to close segment store", "error", err)
		}
	}

	if skipHandle, err := do.Invoke[*providers.SkipStoreHandle](injector); err == nil {
		log.Info("Closing skip history store...")
		if err := skipHandle.Shutdown(); err != nil {
			log.Error("Failed to close skip history store", "error", err)
		}
	}

	if searchHandle, err := do.Invoke[*providers.SearchIndexHandle](injector); err == nil {
		log.Info("Closing search index...")
		if err := searchHandle.Shutdown(); err != nil {
			log.Error("Failed to close search index", "error", err)
		}
	}

	log.Info("Daemon stopped")
}

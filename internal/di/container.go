// Package di provides dependency injection configuration for the SkipTube daemon.
package di

import (
	"github.com/samber/do/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/auth"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/config"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/di/providers"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/logger"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/service"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSkipStore)
	do.Provide(injector, providers.ProvideSegmentCache)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Classifier layer
	do.Provide(injector, providers.ProvideClassifierFactory)

	// Business services
	do.Provide(injector, providers.ProvideInstanceService)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideSettingsService)
	do.Provide(injector, providers.ProvideAnalysisService)
	do.Provide(injector, providers.ProvideSkipService)

	// Workers
	do.Provide(injector, providers.ProvidePlaybackManager)
	do.Provide(injector, providers.ProvideSpoolIngest)
	do.Provide(injector, providers.ProvideMaintenanceJob)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services and returns once the daemon is running.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*validation.Validator](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SkipStoreHandle](injector)
	_ = do.MustInvoke[*providers.SegmentCacheHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*providers.ClassifierFactoryHandle](injector)

	// Business services
	_ = do.MustInvoke[*service.InstanceService](injector)
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.SettingsService](injector)
	_ = do.MustInvoke[*service.AnalysisService](injector)
	_ = do.MustInvoke[*service.SkipService](injector)

	// Workers
	_ = do.MustInvoke[*providers.PlaybackManagerHandle](injector)
	_ = do.MustInvoke[*providers.SpoolIngestHandle](injector)
	_ = do.MustInvoke[*providers.MaintenanceJob](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	_ = do.MustInvoke[*providers.MDNSServiceHandle](injector)

	// Rebuild the search index if it is empty but the cache is not
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}

package providers

import (
	"github.com/samber/do/v2"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/auth"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/classifier"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/config"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/logger"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/service"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/validation"
)

// ProvideValidator provides the request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ClassifierFactoryHandle wraps the classifier factory with shutdown capability.
type ClassifierFactoryHandle struct {
	*classifier.Factory
}

// Shutdown implements do.Shutdownable.
func (h *ClassifierFactoryHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideClassifierFactory provides the LLM provider factory.
func ProvideClassifierFactory(i do.Injector) (*ClassifierFactoryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	factory := classifier.NewFactory(cfg.ProviderKeys(), log.Logger)
	factory.SetRate(cfg.Classifier.RequestsPerSecond, cfg.Classifier.Burst)

	configured := factory.ConfiguredProviders()
	if len(configured) == 0 {
		log.Warn("No classifier API keys configured - analysis requests will fail until a key is set")
	} else {
		log.Info("Classifier providers configured", "providers", configured)
	}

	return &ClassifierFactoryHandle{Factory: factory}, nil
}

// ProvideInstanceService provides the daemon identity service.
func ProvideInstanceService(i do.Injector) (*service.InstanceService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewInstanceService(storeHandle.Store, log.Logger, cfg), nil
}

// ProvideAuthService provides the client pairing and token service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(storeHandle.Store, tokenService, cfg.Auth.PairingCode, sseHandle.Manager, log.Logger), nil
}

// ProvideSettingsService provides the user settings service.
func ProvideSettingsService(i do.Injector) (*service.SettingsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSettingsService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideAnalysisService provides the transcript analysis pipeline.
func ProvideAnalysisService(i do.Injector) (*service.AnalysisService, error) {
	cacheHandle := do.MustInvoke[*SegmentCacheHandle](i)
	factoryHandle := do.MustInvoke[*ClassifierFactoryHandle](i)
	settingsService := do.MustInvoke[*service.SettingsService](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAnalysisService(cacheHandle.SegmentCache, factoryHandle.Factory, settingsService, sseHandle.Manager, log.Logger), nil
}

// ProvideSkipService provides the skip analytics service.
func ProvideSkipService(i do.Injector) (*service.SkipService, error) {
	skipHandle := do.MustInvoke[*SkipStoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSkipService(skipHandle.Store, log.Logger), nil
}

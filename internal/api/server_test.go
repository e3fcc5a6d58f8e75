package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/auth"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/cache"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/classifier"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/domain"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/playback"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/service"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store/sqlite"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/validation"
)

// testPairingCode is the daemon pairing code used in tests.
const testPairingCode = "test-pairing-code"

// testEnvelope mirrors the response wrapper for decoding in tests.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// testServer wraps the API server with test plumbing.
type testServer struct {
	*Server
	api     humatest.TestAPI
	factory *classifier.Factory
}

// setupTestServer creates a server with every dependency backed by a
// temp directory. The classifier factory always has the mock provider.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sseManager := sse.NewManager(logger)
	sseHandler := sse.NewHandler(sseManager, logger)

	st, err := store.New(filepath.Join(tmpDir, "cache"), logger, sseManager)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	skipStore, err := sqlite.Open(filepath.Join(tmpDir, "skips.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = skipStore.Close() })

	segCache := cache.New(st, logger)

	authKey, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)
	tokenService, err := auth.NewTokenService(hex.EncodeToString(authKey), 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	factory := classifier.NewFactory(map[string]string{}, logger)
	t.Cleanup(factory.Close)

	settingsService := service.NewSettingsService(st, validation.New(), logger)
	analysisService := service.NewAnalysisService(segCache, factory, settingsService, sseManager, logger)
	authService := service.NewAuthService(st, tokenService, testPairingCode, sseManager, logger)
	skipService := service.NewSkipService(skipStore, logger)

	playbackManager := playback.NewManager(skipStore, sseManager, logger)

	services := &Services{
		Auth:     authService,
		Analysis: analysisService,
		Settings: settingsService,
		Skips:    skipService,
	}

	server := NewServer(Options{
		Store:      st,
		SkipStore:  skipStore,
		Cache:      segCache,
		Services:   services,
		Playback:   playbackManager,
		SSEManager: sseManager,
		SSEHandler: sseHandler,
		Logger:     logger,
	})

	return &testServer{
		Server:  server,
		api:     humatest.Wrap(t, server.api),
		factory: factory,
	}
}

// pairTestClient pairs a client and returns its access token.
func (ts *testServer) pairTestClient(t *testing.T) string {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/pair", map[string]any{
		"pairing_code": testPairingCode,
		"label":        "test extension",
	})
	require.Equal(t, http.StatusOK, resp.Code, "pairing failed: %s", resp.Body.String())

	var envelope testEnvelope[service.PairResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.AccessToken)

	return envelope.Data.AccessToken
}

// useMockProvider switches settings to the mock classifier and scripts
// its next response.
func (ts *testServer) useMockProvider(t *testing.T, response string) {
	t.Helper()

	ctx := context.Background()
	settings, err := ts.services.Settings.Get(ctx)
	require.NoError(t, err)
	settings.Provider = "mock"
	require.NoError(t, ts.store.UpsertSettings(ctx, settings))

	ts.factory.Mock().SetResponse(response)
}

// seedAnalysis puts a canned analysis in the cache.
func (ts *testServer) seedAnalysis(t *testing.T, videoID string, segments []domain.Segment) {
	t.Helper()

	result := domain.NewAnalysisResult(videoID, segments, "mock-model", 5*time.Millisecond, 100)
	require.NoError(t, ts.segCache.Set(context.Background(), result))
}

func authHeader(token string) string {
	return "Bearer " + token
}

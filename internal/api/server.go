// Package api provides the HTTP API server for the skiptubed daemon.
// Operations are registered through huma on top of a chi router; the
// browser extension is the primary consumer.
package api

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ChromuSx/SkipTubeAI-sub000/internal/cache"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/playback"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/sse"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store"
	"github.com/ChromuSx/SkipTubeAI-sub000/internal/store/sqlite"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      *store.Store
	skipStore  *sqlite.Store
	segCache   *cache.SegmentCache
	services   *Services
	playback   *playback.Manager
	sseManager *sse.Manager
	sseHandler *sse.Handler
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger

	// pairRateLimiter throttles pairing attempts by IP so the pairing
	// code cannot be brute-forced.
	pairRateLimiter *RateLimiter
	// analyzeRateLimiter throttles analysis requests per client; each
	// analysis is a paid LLM call.
	analyzeRateLimiter *RateLimiter
}

// Options bundles the server's dependencies.
type Options struct {
	Store      *store.Store
	SkipStore  *sqlite.Store
	Cache      *cache.SegmentCache
	Services   *Services
	Playback   *playback.Manager
	SSEManager *sse.Manager
	SSEHandler *sse.Handler
	Logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(opts Options) *Server {
	router := chi.NewRouter()

	s := &Server{
		store:              opts.Store,
		skipStore:          opts.SkipStore,
		segCache:           opts.Cache,
		services:           opts.Services,
		playback:           opts.Playback,
		sseManager:         opts.SSEManager,
		sseHandler:         opts.SSEHandler,
		router:             router,
		logger:             opts.Logger,
		pairRateLimiter:    NewRateLimiter(10, time.Minute, 5),
		analyzeRateLimiter: NewRateLimiter(30, time.Minute, 10),
	}

	s.setupMiddleware()

	humaConfig := huma.DefaultConfig("SkipTube Daemon API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)

	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerAnalysisRoutes()
	s.registerSettingsRoutes()
	s.registerSessionRoutes()
	s.registerCacheRoutes()
	s.registerSkipRoutes()
	s.registerSearchRoutes()
	s.setupStreamRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// The extension calls from content scripts, so browser extension
	// origins must be allowed explicitly.
	s.router.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(_ *http.Request, origin string) bool {
			return strings.HasPrefix(origin, "chrome-extension://") ||
				strings.HasPrefix(origin, "moz-extension://") ||
				strings.HasPrefix(origin, "http://localhost")
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if s.services != nil && s.services.Auth != nil {
		s.router.Use(authMiddleware(s.services.Auth))
	}
}

// setupStreamRoutes registers the chi-native routes that huma cannot
// model: the SSE stream and the cache backup/restore streams.
func (s *Server) setupStreamRoutes() {
	if s.sseHandler != nil {
		s.router.Get("/api/v1/events", s.handleEvents)
	}
	s.router.Get("/api/v1/export", s.handleExport)
	s.router.Post("/api/v1/import", s.handleImport)
}

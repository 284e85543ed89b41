// Package api provides the HTTP API server and handlers for SnipStash.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/snipstash/snipstash-server/internal/metrics"
	"github.com/snipstash/snipstash-server/internal/ratelimit"
	"github.com/snipstash/snipstash-server/internal/sse"
	"github.com/snipstash/snipstash-server/internal/store"
)

// ServerConfig holds the HTTP-facing settings of the API server.
type ServerConfig struct {
	Version     string
	CORSOrigins []string
	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit      float64
	RateLimitBurst int
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	store      store.Store
	services   *Services
	sseManager *sse.Manager
	sseHandler *sse.Handler
	limiter    *ratelimit.KeyedRateLimiter
	router     *chi.Mux
	api        huma.API
	config     ServerConfig
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(st store.Store, services *Services, sseManager *sse.Manager, cfg ServerConfig, logger *slog.Logger) *Server {
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	s := &Server{
		store:      st,
		services:   services,
		sseManager: sseManager,
		router:     chi.NewRouter(),
		config:     cfg,
		logger:     logger,
	}
	if sseManager != nil {
		s.sseHandler = sse.NewHandler(sseManager, logger)
	}
	if cfg.RateLimit > 0 {
		s.limiter = ratelimit.New(cfg.RateLimit, cfg.RateLimitBurst)
	}

	// Middleware must be in place before huma registers its first route.
	s.setupMiddleware()

	s.api = humachi.New(s.router, newHumaConfig(cfg.Version))
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// newHumaConfig returns the OpenAPI configuration shared by the server and tests.
func newHumaConfig(version string) huma.Config {
	humaConfig := huma.DefaultConfig("SnipStash API", version)
	humaConfig.Info.Description = "Store, search and share code snippets."
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
		"apiKey": {
			Type: "apiKey",
			In:   "header",
			Name: headerAPIKey,
		},
	}
	// Responses keep the plain wire shape without a $schema link.
	humaConfig.CreateHooks = nil
	return humaConfig
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases background resources held by the server.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Middleware)

	if len(s.config.CORSOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", headerAPIKey, headerClientID},
			MaxAge:         300,
		}))
	}

	s.router.Use(authMiddleware(s.services.Auth))
	s.router.Use(clientOrigin)

	if s.limiter != nil {
		s.router.Use(RateLimitMiddleware(s.limiter, s.logger))
	}
}

// registerRoutes registers every huma operation and the raw chi routes.
func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerSnippetRoutes()
	s.registerPublicRoutes()
	s.registerAdminRoutes()

	s.router.Get("/events", s.handleEvents)
	s.router.Handle("/metrics", metrics.Handler())
}

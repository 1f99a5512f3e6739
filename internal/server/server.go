package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	v1 "github.com/gosuda/gofer/internal/api/v1"
	"github.com/gosuda/gofer/internal/api/ws"
	"github.com/gosuda/gofer/internal/config"
	"github.com/gosuda/gofer/internal/server/middleware"
)

// Auth is what the server needs from the identity provider: the auth
// endpoints plus token verification for the identity middleware.
type Auth interface {
	v1.AuthService
	middleware.TokenVerifier
}

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Engine    v1.TaskLifecycle
	Submitter v1.TaskSubmitter
	Auth      Auth
	// Events feeds the WebSocket streams; nil disables /ws.
	Events ws.Subscriber
	// Ready reports storage health for /healthz; nil means always ready.
	Ready func(ctx context.Context) error
}

// Server is the HTTP server that wires all application routes and middleware.
type Server struct {
	router     chi.Router
	httpServer *http.Server
}

// New creates a Server with all routes wired. ctx bounds background work
// such as rate limiter sweeps.
func New(ctx context.Context, cfg *config.Config, deps Deps) *Server {
	router := chi.NewRouter()

	// Global middleware stack.
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger)
	router.Use(chimw.Recoverer)
	router.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	s := &Server{
		router: router,
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}

	router.Route("/api/v1", func(r chi.Router) {
		// Lock waits inside the task store honor this deadline.
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst))
			registerAuthRoutes(humachi.New(r, apiConfig("Gofer Auth API")), deps.Auth)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Auth))
			r.Use(middleware.RateLimit(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst))
			registerTaskRoutes(humachi.New(r, apiConfig("Gofer API")), deps)
		})
	})

	if deps.Events != nil {
		hub := ws.NewHub(deps.Events, deps.Engine, cfg.Server.CORSOrigins)
		router.Route("/ws", func(r chi.Router) {
			r.Use(middleware.Auth(deps.Auth))
			registerWSRoutes(r, hub)
		})
	} else {
		log.Info().Msg("server: no event broker configured, websocket streams disabled")
	}

	router.Get("/healthz", healthz(deps.Ready))

	return s
}

func apiConfig(title string) huma.Config {
	c := huma.DefaultConfig(title, "1.0.0")
	c.Servers = []*huma.Server{{URL: "/api/v1"}}
	return c
}

func healthz(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ready != nil {
			if err := ready(r.Context()); err != nil {
				log.Warn().Err(err).Msg("healthz: storage not ready")
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests.
func (s *Server) Start(_ context.Context) error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.Start: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

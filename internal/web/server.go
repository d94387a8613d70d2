// Package web provides the HTTP server and handlers for user import and export.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/JonMunkholm/userimport/internal/config"
	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/metrics"
	"github.com/JonMunkholm/userimport/internal/web/middleware"
)

// Deps are the services the handlers call into.
type Deps struct {
	Importer *core.Importer
	Exporter *core.Exporter
	Users    *core.UserService
	Limiter  *core.UploadLimiter
	Metrics  *metrics.Metrics
}

// Server is the HTTP server for the user import application.
type Server struct {
	cfg      *config.Config
	importer *core.Importer
	exporter *core.Exporter
	users    *core.UserService
	limiter  *core.UploadLimiter
	metrics  *metrics.Metrics
	router   *chi.Mux
	server   *http.Server
	now      func() time.Time
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) *Server {
	limiter := deps.Limiter
	if limiter == nil {
		limiter = core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	}

	s := &Server{
		cfg:      cfg,
		importer: deps.Importer,
		exporter: deps.Exporter,
		users:    deps.Users,
		limiter:  limiter,
		metrics:  deps.Metrics,
		router:   chi.NewRouter(),
		now:      time.Now,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(s.metrics.Middleware)
	s.router.Use(chimw.Compress(5))

	// Security hardening
	s.router.Use(s.securityHeaders().Handler)

	if s.cfg.Rate.Enabled {
		s.router.Use(httprate.Limit(
			s.cfg.Rate.RequestsPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(s.handleRateLimited),
		))
	}
}

func (s *Server) securityHeaders() *secure.Secure {
	opts := secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		STSSeconds:         s.cfg.Security.HSTSSeconds,
	}
	if s.cfg.Security.EnableCSP {
		// The landing page loads htmx from unpkg.
		opts.ContentSecurityPolicy = "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'"
	}
	return secure.New(opts)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		// Import runs under its own, longer deadline.
		r.Route("/import-users", func(r chi.Router) {
			r.Get("/template", s.handleImportTemplate)
			r.Get("/instructions", s.handleImportInstructions)

			r.Group(func(r chi.Router) {
				if s.cfg.Rate.Enabled {
					r.Use(httprate.Limit(
						s.cfg.Rate.UploadLimit,
						time.Minute,
						httprate.WithKeyFuncs(httprate.KeyByIP),
						httprate.WithLimitHandler(s.handleRateLimited),
					))
				}
				r.Use(s.uploadWriteDeadline)
				r.Use(chimw.Timeout(s.cfg.UploadDeadline()))
				r.Post("/csv", s.handleImportCSV)
				r.Post("/validate", s.handleValidateCSV)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

			r.Route("/export-users", func(r chi.Router) {
				r.Get("/csv", s.handleExportCSV)
				r.Get("/preview", s.handleExportPreview)
				r.Get("/stats", s.handleExportStats)
			})

			r.Route("/users", func(r chi.Router) {
				r.Post("/", s.handleCreateUser)
				r.Get("/", s.handleListUsers)
				r.Get("/email/{email}", s.handleGetUserByEmail)
				r.Get("/{id}", s.handleGetUser)
				r.Patch("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown waits for in-flight imports, then gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if active := s.limiter.ActiveCount(); active > 0 {
		slog.Info("waiting for imports to complete", "active", active)
		if err := s.limiter.WaitForDrain(ctx); err != nil {
			slog.Warn("imports did not complete in time", "error", err)
		}
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	msg := core.MapError(errRateLimited)
	respondErrorJSON(w, msg, "", http.StatusTooManyRequests)
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

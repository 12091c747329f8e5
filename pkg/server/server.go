// Package server exposes the report pipeline over HTTP: scope report
// generation, report row status and download, the cover page the PDF
// converter fetches back, and the operational endpoints. Every route
// under /api/v1 must be attributable to a user; the cover page, health
// check and metrics are open because machines call them.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/duration"
	"github.com/vulndesk/vulndesk/pkg/filestore"
	"github.com/vulndesk/vulndesk/pkg/metrics"
	"github.com/vulndesk/vulndesk/pkg/report"
	"github.com/vulndesk/vulndesk/pkg/store"
	"github.com/vulndesk/vulndesk/templates"
)

// Config carries the listener settings.
type Config struct {
	// Addr is the listen address. Defaults to defaults.ListenAddr.
	Addr string
}

// Deps bundles the collaborators the API serves. Store, Engine and
// Templates are required; Files is needed only for downloads, Metrics
// only for /metrics, and Users defaults to the X-User-ID header
// resolver.
type Deps struct {
	Store     store.Store
	Engine    *report.Engine
	Files     *filestore.Store
	Templates *templates.Engine
	Metrics   *metrics.Metrics
	Users     UserResolver
	Log       *slog.Logger
}

// Server is the vulndesk API server. Build one with New, run it with
// Start.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    *slog.Logger
}

// New validates the dependency set, wires the router and returns a
// server ready to start.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("server: requires a store")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("server: requires a report engine")
	}
	if deps.Templates == nil {
		return nil, fmt.Errorf("server: requires templates")
	}
	if cfg.Addr == "" {
		cfg.Addr = defaults.ListenAddr
	}
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	users := deps.Users
	if users == nil {
		users = UserFromHeader(deps.Store)
	}

	h := &handler{
		store:     deps.Store,
		engine:    deps.Engine,
		files:     deps.Files,
		templates: deps.Templates,
		log:       log,
	}

	router := chi.NewRouter()
	router.Use(requestLogger(log))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(requireUser(users, log))
		r.Route("/reports", func(r chi.Router) {
			r.Get("/", h.listReports)
			r.Post("/custom", h.createCustomReport)
			r.Post("/finding", h.createFindingReport)
			r.Post("/{scope}/{id}", h.createReport)
			r.Get("/{id}", h.getReport)
			r.Get("/{id}/download", h.downloadReport)
		})
	})

	// wkhtmltopdf fetches the cover page without credentials.
	router.Get("/reports/cover", h.coverPage)
	router.Get("/healthz", h.health)
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return &Server{
		router: router,
		log:    log,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  duration.ServerRead,
			WriteTimeout: duration.ServerWrite,
			IdleTimeout:  duration.ServerIdle,
		},
	}, nil
}

// Handler returns the wired router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until the listener fails or ctx is canceled, then shuts
// down gracefully. Outstanding requests get duration.Shutdown to finish
// before the listener is torn down.
func (s *Server) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)
	go func() {
		s.log.Info("api server listening", "addr", s.server.Addr)
		serverErrors <- s.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server: listen: %w", err)
	case <-ctx.Done():
		s.log.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), duration.Shutdown)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.log.Error("graceful shutdown failed", "error", err)
			if cerr := s.server.Close(); cerr != nil {
				return fmt.Errorf("server: close: %w", cerr)
			}
		}
	}
	return nil
}

// Package web provides the HTTP server and handlers for the data admin grid.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/dataadmin/internal/config"
	"github.com/JonMunkholm/dataadmin/internal/core"
	"github.com/JonMunkholm/dataadmin/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server of the data admin UI.
type Server struct {
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	sessions *sessionStore

	stopSweep context.CancelFunc
	sweepDone chan struct{}
}

// NewServer creates a Server. newController is called once per browser
// session to build that session's grid.
func NewServer(cfg *config.Config, newController func() *core.Controller) *Server {
	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		sessions: newSessionStore(cfg.Session, newController),
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
	s.router.Use(s.securityHeaders)

	if s.cfg.Rate.Enabled {
		s.router.Use(newIPLimiter(s.cfg.Rate.RequestsPerMinute).middleware)
	}
	s.router.Use(middleware.APIKeyAuth(&s.cfg.Security, "/healthz"))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	s.router.Get("/healthz", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

			r.Get("/", s.handleIndex)

			r.Route("/grid", func(r chi.Router) {
				r.Post("/table", s.handleSelectTable)
				r.Post("/reload", s.handleReload)
				r.Post("/page", s.handlePage)
				r.Post("/per-page", s.handlePerPage)

				r.Post("/editor", s.handleSubmitEdit)
				r.Post("/editor/close", s.handleCloseEditor)
				r.Get("/editor/image", s.handleEditorImage)
				r.Post("/lightbox/close", s.handleCloseLightbox)

				r.Get("/rows/{id}/edit", s.handleOpenEditor)
				r.Get("/rows/{id}/delete", s.handleConfirmDelete)
				r.Post("/rows/{id}/delete", s.handleDeleteRow)
				r.Get("/rows/{id}/files/{column}", s.handleOpenLightbox)

				r.Get("/export.csv", s.handleExport(exportCSV))
				r.Get("/export.xlsx", s.handleExport(exportXLSX))
			})
		})

		// Uploads stream request bodies to the data API and get their own,
		// longer deadline plus a stricter per-IP limit.
		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Upload.Timeout))
			if s.cfg.Rate.Enabled {
				r.Use(newIPLimiter(s.cfg.Rate.UploadLimit).middleware)
			}
			r.Post("/grid/rows/{id}/files/{column}", s.handleUploadFile)
			r.Post("/grid/import", s.handleImport)
		})
	})
}

// Start begins listening for HTTP requests and sweeping idle sessions.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopSweep = cancel
	s.sweepDone = make(chan struct{})
	go func() {
		defer close(s.sweepDone)
		s.sessions.run(ctx, s.cfg.Session.SweepInterval)
	}()

	slog.Info("starting server", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and the session sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.stopSweep != nil {
		s.stopSweep()
		<-s.sweepDone
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

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Row images and PDFs are served by the data API, usually from
		// another origin.
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy",
				"default-src 'self'; style-src 'self'; img-src 'self' data: http: https:; frame-src 'self' http: https:; form-action 'self'")
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.len(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

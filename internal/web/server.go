// Package web provides the HTTP server that starts and tracks billing batches.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/billdocs/internal/batch"
	"github.com/JonMunkholm/billdocs/internal/config"
	mw "github.com/JonMunkholm/billdocs/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP front end of the batch service.
type Server struct {
	batches *batch.Service
	cfg     config.ServerConfig
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a new Server instance.
func NewServer(batches *batch.Service, cfg config.ServerConfig) *Server {
	s := &Server{
		batches: batches,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.cfg.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
	s.router.Use(securityHeaders)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/batches", func(r chi.Router) {
			r.Post("/", s.handleStartBatch)
			r.Get("/", s.handleListBatches)

			r.Route("/{batchID}", func(r chi.Router) {
				r.Get("/", s.handleGetBatch)
				r.Get("/report", s.handleBatchReport)
				r.Post("/cancel", s.handleCancelBatch)
			})
		})
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	slog.Info("server listening", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, then cancels running batches and waits
// for them to write their reports.
func (s *Server) Shutdown(ctx context.Context) error {
	var httpErr error
	if s.server != nil {
		httpErr = s.server.Shutdown(ctx)
	}
	return errors.Join(httpErr, s.batches.Shutdown(ctx))
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
}

// Package server wires storage, access rules and handlers into the HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/plansync/internal/server/access"
	"github.com/iudanet/plansync/internal/server/handlers"
	"github.com/iudanet/plansync/internal/server/hub"
	"github.com/iudanet/plansync/internal/server/jwt"
	"github.com/iudanet/plansync/internal/server/middleware"
	"github.com/iudanet/plansync/internal/server/schema"
	"github.com/iudanet/plansync/internal/server/storage"
)

const shutdownTimeout = 10 * time.Second

// Store is the persistence the server needs.
type Store interface {
	storage.UserStorage
	storage.DocumentStorage
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Store         Store
	Tokens        *jwt.Service
	Schemas       *schema.Registry
	Logger        *slog.Logger
	WorkspaceRoot string
	RateWindow    time.Duration
	RateLimit     int
}

// Server is the plansync HTTP API.
type Server struct {
	handler http.Handler
	hub     *hub.Hub
	limiter *middleware.RateLimiter
	logger  *slog.Logger
}

// New builds the routes. Close releases the rate limiter.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	policy := access.NewPolicy(opts.Store, opts.WorkspaceRoot)
	h := hub.New(logger)
	limiter := middleware.NewRateLimiter(opts.RateLimit, opts.RateWindow, logger)

	authHandler := handlers.NewAuthHandler(logger, opts.Store, opts.Tokens)
	healthHandler := handlers.NewHealthHandler(logger, opts.Store)
	docHandler := handlers.NewDocumentHandler(logger, opts.Store, policy, opts.Schemas, h)
	wsHandler := handlers.NewWorkspaceHandler(logger, opts.Store, policy, h)
	subHandler := handlers.NewSubscribeHandler(logger, opts.Store, policy, h)

	rateLimited := middleware.RateLimitMiddleware(limiter)
	authenticated := middleware.AuthMiddleware(logger, opts.Tokens)
	protect := func(fn http.HandlerFunc) http.Handler { return authenticated(fn) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	mux.Handle("POST /api/v1/auth/register", rateLimited(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /api/v1/auth/login", rateLimited(http.HandlerFunc(authHandler.Login)))

	mux.Handle("GET /api/v1/documents/{path...}", protect(docHandler.GetDocument))
	mux.Handle("PUT /api/v1/documents/{path...}", protect(docHandler.PutDocument))
	mux.Handle("PATCH /api/v1/documents/{path...}", protect(docHandler.PatchDocument))
	mux.Handle("DELETE /api/v1/documents/{path...}", protect(docHandler.DeleteDocument))
	mux.Handle("GET /api/v1/collections/{path...}", protect(docHandler.ListCollection))
	mux.Handle("POST /api/v1/collections/{path...}", protect(docHandler.AddDocument))
	mux.Handle("POST /api/v1/batch", protect(docHandler.Batch))
	mux.Handle("GET /api/v1/subscribe", protect(subHandler.Subscribe))
	mux.Handle("POST /api/v1/workspaces/{id}/permissions/autofix", protect(wsHandler.Autofix))

	var handler http.Handler = mux
	handler = middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	return &Server{handler: handler, hub: h, limiter: limiter, logger: logger}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Subscriptions returns the number of open websocket subscriptions.
func (s *Server) Subscriptions() int {
	return s.hub.Len()
}

// Close stops background work.
func (s *Server) Close() {
	s.limiter.Stop()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	// WriteTimeout не задан: websocket подписки живут долго
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

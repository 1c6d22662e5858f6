package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marius4lui/toolbox-links/internal/auth"
	"github.com/marius4lui/toolbox-links/internal/config"
	"github.com/marius4lui/toolbox-links/internal/httpx"
	"github.com/marius4lui/toolbox-links/internal/links"
)

// Server represents the HTTP server with all dependencies.
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	handler  *links.Handler
	verifier auth.Verifier
	server   *http.Server

	guestLimiter  *httpx.RateLimiter
	authedLimiter *httpx.RateLimiter
}

// New creates a new Server instance.
func New(cfg *config.Config, logger *slog.Logger, handler *links.Handler, verifier auth.Verifier) *Server {
	return &Server{
		config:        cfg,
		logger:        logger,
		handler:       handler,
		verifier:      verifier,
		guestLimiter:  httpx.NewRateLimiter(cfg.Quota.GuestRatePerMin, time.Minute, logger),
		authedLimiter: httpx.NewRateLimiter(cfg.Quota.AuthedRatePerMin, time.Minute, logger),
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	handler := s.applyMiddleware(s.Routes())
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:      handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	// Listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		s.logger.Info("starting http server",
			"addr", s.server.Addr,
			"env", s.config.App.Environment,
		)
		serverErrors <- s.server.ListenAndServe()
	}()

	// Listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.logger.Info("received shutdown signal", "signal", sig.String())

		// Create context with timeout for shutdown
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		// Attempt graceful shutdown
		if err := s.server.Shutdown(ctx); err != nil {
			// Force close if graceful shutdown fails
			if closeErr := s.server.Close(); closeErr != nil {
				return fmt.Errorf("failed to close server: %w", closeErr)
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		s.logger.Info("server stopped gracefully")
		return nil
	}
}

// Routes configures all HTTP routes. The creation endpoint takes optional
// auth behind the guest request limiter; management endpoints require auth
// behind the more lenient authenticated limiter; redirects take neither.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	optionalAuth := httpx.Chain(s.guestLimiter.Limit(), auth.Optional(s.verifier))
	requireAuth := httpx.Chain(s.authedLimiter.Limit(), auth.Require(s.verifier))

	// Health check endpoint
	mux.HandleFunc("GET /x/health", s.healthCheckHandler)

	mux.Handle("POST /api/create", optionalAuth(http.HandlerFunc(s.handler.CreateLink)))

	mux.Handle("GET /api/links", requireAuth(http.HandlerFunc(s.handler.ListLinks)))
	mux.Handle("PUT /api/links/{hash}", requireAuth(http.HandlerFunc(s.handler.UpdateLink)))
	mux.Handle("DELETE /api/links/{hash}", requireAuth(http.HandlerFunc(s.handler.DeleteLink)))
	mux.Handle("POST /api/links/{hash}/restore", requireAuth(http.HandlerFunc(s.handler.RestoreLink)))

	mux.HandleFunc("GET /{hash}", s.handler.Redirect)

	return mux
}

// applyMiddleware wraps the handler with middleware in the correct order.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	return httpx.Chain(
		httpx.Recovery(s.logger), // Outermost: catch panics
		httpx.RequestID,          // Add request ID
		httpx.Logger(s.logger),   // Log requests
		httpx.CORS(nil),          // CORS headers (allow all in dev)
	)(handler)
}

// healthCheckHandler handles health check requests.
func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": s.config.App.ServiceName,
		"version": s.config.App.ServiceVersion,
	})
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("shutdown timeout exceeded, forcing close")
			return s.server.Close()
		}
		return err
	}

	return nil
}

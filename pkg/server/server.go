// Package server provides the HTTP gateway server for command moderation
// traffic.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/security/auth"
	"mercator-hq/saturn/pkg/server/handlers"
	"mercator-hq/saturn/pkg/server/middleware"
	"mercator-hq/saturn/pkg/telemetry/metrics"
)

// Server is the HTTP gateway server.
type Server struct {
	config       *config.ServerConfig
	metricsCfg   *config.MetricsConfig
	service      handlers.Service
	resolver     *auth.Resolver
	collector    *metrics.Collector
	httpServer   *http.Server
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a new gateway server. collector may be nil when metrics
// are disabled.
func NewServer(cfg *config.ServerConfig, metricsCfg *config.MetricsConfig, service handlers.Service, resolver *auth.Resolver, collector *metrics.Collector) *Server {
	return &Server{
		config:       cfg,
		metricsCfg:   metricsCfg,
		service:      service,
		resolver:     resolver,
		collector:    collector,
		shutdownChan: make(chan struct{}),
		isRunning:    false,
	}
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	handler := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddress,
		Handler:        handler,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("starting gateway server",
			"address", s.config.ListenAddress,
		)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	case <-s.shutdownChan:
		slog.Info("shutdown requested")
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("gateway server stopped")
	})

	return shutdownErr
}

// knownPaths lists every mounted route, used to bound metric cardinality.
var knownPaths = []string{
	"/me",
	"/commands",
	"/logs",
	"/rules",
	"/users/generate",
	"/users/search",
	"/users/update",
	"/users/delete",
	"/health",
	"/metrics",
}

// setupRoutes configures HTTP routes and the middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Authenticated API routes
	authMiddleware := auth.NewMiddleware(s.resolver, auth.DefaultKeySources())

	meHandler := handlers.NewMeHandler()
	commandsHandler := handlers.NewCommandsHandler(s.service)
	logsHandler := handlers.NewLogsHandler(s.service)
	rulesHandler := handlers.NewRulesHandler(s.service)
	usersHandler := handlers.NewUsersHandler(s.service)

	mux.Handle("/me", authMiddleware.Handle(meHandler))
	mux.Handle("/commands", authMiddleware.Handle(commandsHandler))
	mux.Handle("/logs", authMiddleware.Handle(logsHandler))
	mux.Handle("/rules", authMiddleware.Handle(rulesHandler))
	mux.Handle("/users/generate", authMiddleware.Handle(http.HandlerFunc(usersHandler.Generate)))
	mux.Handle("/users/search", authMiddleware.Handle(http.HandlerFunc(usersHandler.Search)))
	mux.Handle("/users/update", authMiddleware.Handle(http.HandlerFunc(usersHandler.Update)))
	mux.Handle("/users/delete", authMiddleware.Handle(http.HandlerFunc(usersHandler.Delete)))

	// Unauthenticated operational routes
	mux.Handle("/health", handlers.NewHealthHandler())
	if s.collector != nil && s.metricsCfg != nil && s.metricsCfg.Enabled {
		mux.Handle(s.metricsCfg.Path, s.collector.Handler())
	}

	// Apply middleware chain
	var handler http.Handler = mux

	handler = middleware.TimeoutMiddleware(s.config.WriteTimeout)(handler)

	corsConfig := s.convertCORSConfig()
	handler = middleware.CORSMiddleware(corsConfig)(handler)

	if s.collector != nil {
		handler = middleware.MetricsMiddleware(s.collector, knownPaths)(handler)
	}

	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.LoggingMiddleware(handler)

	// Recovery middleware (outermost)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// convertCORSConfig converts config.CORSConfig to middleware.CORSConfig.
func (s *Server) convertCORSConfig() *middleware.CORSConfig {
	return &middleware.CORSConfig{
		Enabled:          s.config.CORS.Enabled,
		AllowedOrigins:   s.config.CORS.AllowedOrigins,
		AllowedMethods:   s.config.CORS.AllowedMethods,
		AllowedHeaders:   s.config.CORS.AllowedHeaders,
		ExposedHeaders:   s.config.CORS.ExposedHeaders,
		MaxAge:           s.config.CORS.MaxAge,
		AllowCredentials: s.config.CORS.AllowCredentials,
	}
}

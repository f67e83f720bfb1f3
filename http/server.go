// Package http serves the prediction form, the JSON API and the live
// preview websocket.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"obesitycheck/predictor"
)

// Server serves the HTTP routes and the preview websocket.
type Server struct {
	server *http.Server
	config ServerConfig
	logger *zap.Logger
}

// ServerConfig holds the listener and middleware settings.
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// DefaultServerConfig listens on :8080 with a 30 second timeout.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		MaxBodyBytes:   64 << 10,
	}
}

// NewServer wires the routes for svc behind the middleware chain.
func NewServer(config ServerConfig, svc *predictor.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	handler, hub := newRouter(config, svc, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      handler,
		ReadTimeout:  config.Timeout,
		WriteTimeout: config.Timeout,
		IdleTimeout:  120 * time.Second,
	}
	// Shutdown does not close hijacked connections.
	server.RegisterOnShutdown(hub.CloseAll)

	return &Server{
		server: server,
		config: config,
		logger: logger,
	}
}

// NewHandler returns the routed handler wrapped in the middleware chain.
func NewHandler(config ServerConfig, svc *predictor.Service, logger *zap.Logger) http.Handler {
	handler, _ := newRouter(config, svc, logger)
	return handler
}

func newRouter(config ServerConfig, svc *predictor.Service, logger *zap.Logger) (http.Handler, *PreviewHub) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	hub := RegisterHandlers(mux, svc, logger)

	chain := Chain(
		RecoveryMiddleware(logger), // outermost, catches panics
		LoggerMiddleware(logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(config.AllowedOrigins),
		RequestSizeMiddleware(config.MaxBodyBytes),
		TimeoutMiddleware(config.Timeout),
	)
	return chain(mux), hub
}

// Start blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting http server",
		zap.String("addr", s.server.Addr),
		zap.String("preview", fmt.Sprintf("ws://localhost%s/api/ws/predict", s.server.Addr)))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and closes preview connections.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("shutting down http server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

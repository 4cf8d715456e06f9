package http

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/pkg/circuitbreaker"
	"RagDesk/backend/go/pkg/httpmiddleware"
	"RagDesk/backend/go/pkg/logger"
	"RagDesk/backend/go/pkg/ratelimiter"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

const defaultShutdownTimeout = 10 * time.Second

// Server wraps an http.Server around a gin engine and carries the shared middleware chain.
type Server struct {
	httpServer      *http.Server
	engine          *gin.Engine
	log             *logger.Logger
	hub             *sentry.Hub
	shutdownTimeout time.Duration
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// WithLogger sets the logger used by the request log and recovery middleware.
func WithLogger(l *logger.Logger) ServerOption {
	return func(s *Server) { s.log = l }
}

// WithSentry reports recovered panics to hub.
func WithSentry(hub *sentry.Hub) ServerOption {
	return func(s *Server) { s.hub = hub }
}

// WithShutdownTimeout bounds how long Run waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.shutdownTimeout = d }
}

// NewServer creates a Server with recovery and request logging, plus rate limiting and
// circuit breaking when the middleware config enables them.
func NewServer(cfg *config.AppConfig, opts ...ServerOption) (*Server, error) {
	srv := &Server{
		httpServer:      &http.Server{ReadHeaderTimeout: 10 * time.Second},
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.log == nil {
		srv.log = logger.Discard()
	}
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":8080"
	}

	engine := gin.New()
	engine.Use(httpmiddleware.Recovery(srv.log, srv.hub), httpmiddleware.RequestLogger(srv.log))

	if cfg.Middleware.RateLimiter.Enabled {
		factory, err := ratelimiter.Factory(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		keyed, err := ratelimiter.NewKeyedLimiter(factory, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		srv.log.Info(fmt.Sprintf("Enabling Rate Limiter middleware with algorithm: %s", cfg.Middleware.RateLimiter.Algorithm))
		engine.Use(httpmiddleware.RateLimit(keyed))
	}

	if cfg.Middleware.CircuitBreaker.Enabled {
		log := srv.log
		breaker, err := circuitbreaker.FromConfig(cfg.Middleware.CircuitBreaker, circuitbreaker.WithStateChange(func(from, to circuitbreaker.State) {
			log.Warn(fmt.Sprintf("Circuit breaker %s -> %s", from, to))
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		srv.log.Info("Enabling Circuit Breaker middleware.")
		engine.Use(httpmiddleware.CircuitBreak(breaker))
	}

	srv.engine = engine
	srv.httpServer.Handler = engine
	return srv, nil
}

// Engine returns the router handlers are registered on.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run serves on the configured address until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(fmt.Sprintf("Starting server on %s", ln.Addr()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.log.Info(fmt.Sprintf("Shutting down server on %s", ln.Addr()))
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

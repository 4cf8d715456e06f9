package grpc

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/pkg/circuitbreaker"
	"RagDesk/backend/go/pkg/grpcinterceptor"
	"RagDesk/backend/go/pkg/logger"
	"RagDesk/backend/go/pkg/ratelimiter"
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server 是一个自定义的 gRPC 服务器，封装了标准的 grpc.Server，
// 内置拦截器链和标准健康检查服务。
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	address    string
	log        *logger.Logger
}

// ServerOption 定义了用于配置 Server 的函数。
type ServerOption func(*Server)

// WithAddress 设置服务器监听的地址。
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.address = addr
	}
}

// WithLogger 设置拦截器使用的日志记录器。
func WithLogger(l *logger.Logger) ServerOption {
	return func(s *Server) {
		s.log = l
	}
}

// NewServer 根据提供的 AppConfig 和选项创建并配置一个新的 Server 实例。
// 它会自动应用配置中启用的限流和熔断拦截器，并注册 grpc.health.v1 服务。
func NewServer(cfg *config.AppConfig, opts ...ServerOption) (*Server, error) {
	srv := &Server{}
	for _, opt := range opts {
		opt(srv)
	}
	if srv.log == nil {
		srv.log = logger.Discard()
	}
	// 如果没有提供地址，则设置一个默认地址。
	if srv.address == "" {
		srv.address = ":9090"
	}

	interceptors := []grpc.UnaryServerInterceptor{
		grpcinterceptor.RecoveryUnaryInterceptor(srv.log),
		grpcinterceptor.LoggingUnaryInterceptor(srv.log),
	}

	// 如果启用了限流器，则添加限流拦截器。
	if cfg.Middleware.RateLimiter.Enabled {
		factory, err := ratelimiter.Factory(cfg.Middleware.RateLimiter)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		keyed, err := ratelimiter.NewKeyedLimiter(factory, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		srv.log.Info(fmt.Sprintf("Enabling gRPC Rate Limiter middleware with algorithm: %s", cfg.Middleware.RateLimiter.Algorithm))
		interceptors = append(interceptors, grpcinterceptor.RateLimitUnaryInterceptor(keyed))
	}

	// 如果启用了熔断器，则添加熔断拦截器。
	if cfg.Middleware.CircuitBreaker.Enabled {
		breaker, err := circuitbreaker.FromConfig(cfg.Middleware.CircuitBreaker)
		if err != nil {
			return nil, fmt.Errorf("failed to create circuit breaker: %w", err)
		}
		srv.log.Info("Enabling gRPC Circuit Breaker middleware.")
		interceptors = append(interceptors, grpcinterceptor.CircuitBreakUnaryInterceptor(breaker))
	}

	srv.grpcServer = grpc.NewServer(grpc.ChainUnaryInterceptor(interceptors...))
	srv.health = health.NewServer()
	healthpb.RegisterHealthServer(srv.grpcServer, srv.health)
	return srv, nil
}

// SetServing 更新某个服务的健康状态，service 为空表示整个服务器。
func (s *Server) SetServing(service string, serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, st)
}

// RegisterService 暴露底层的 gRPC RegisterService 方法，用于注册服务实现。
func (s *Server) RegisterService(desc *grpc.ServiceDesc, impl interface{}) {
	s.grpcServer.RegisterService(desc, impl)
}

// Address 返回监听地址。
func (s *Server) Address() string {
	return s.address
}

// Run 监听配置的地址并提供服务，ctx 结束后优雅停止。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(ctx, lis)
}

// Serve 在给定的 listener 上提供服务，ctx 结束后把所有服务标记为 NOT_SERVING 并优雅停止。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info(fmt.Sprintf("Starting gRPC server on %s", lis.Addr()))
		errCh <- s.grpcServer.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	<-errCh
	s.log.Info("gRPC server stopped")
	return nil
}

// GracefulStop 优雅地停止 gRPC 服务器。
func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}

// GetGRPCServer 返回底层的 *grpc.Server 实例。
func (s *Server) GetGRPCServer() *grpc.Server {
	return s.grpcServer
}

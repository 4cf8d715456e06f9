package grpcinterceptor

import (
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/pkg/circuitbreaker"
	"RagDesk/backend/go/pkg/logger"
	"RagDesk/backend/go/pkg/ratelimiter"
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RateLimitUnaryInterceptor 返回一个 gRPC 一元拦截器，按调用方地址分别限流。
func RateLimitUnaryInterceptor(limiter *ratelimiter.KeyedLimiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if !limiter.Allow(peerKey(ctx)) {
			// 当请求被限流时，返回 gRPC 标准的 ResourceExhausted 错误码。
			return nil, status.Errorf(codes.ResourceExhausted, "request rejected due to rate limiting")
		}
		return handler(ctx, req)
	}
}

// CircuitBreakUnaryInterceptor 返回一个 gRPC 一元拦截器，用于熔断。
func CircuitBreakUnaryInterceptor(breaker circuitbreaker.CircuitBreaker) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := breaker.Execute(func() (interface{}, error) {
			return handler(ctx, req)
		})

		if err != nil {
			// 熔断器打开或半开状态繁忙时，返回 Unavailable。
			if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
				return nil, status.Errorf(codes.Unavailable, "service unavailable: circuit breaker is open")
			}
			return nil, err
		}

		return resp, nil
	}
}

// LoggingUnaryInterceptor 记录每次调用的方法、状态码和耗时。
func LoggingUnaryInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		entry := log.WithRequest(models.RequestInfo{
			Method:     "gRPC",
			Path:       info.FullMethod,
			RemoteAddr: peerKey(ctx),
			LatencyMS:  time.Since(start).Milliseconds(),
		}).WithField("grpc_code", code.String())
		if err != nil {
			entry.Warn(fmt.Sprintf("%s failed: %v", info.FullMethod, err))
		} else {
			entry.Debug(info.FullMethod)
		}
		return resp, err
	}
}

// RecoveryUnaryInterceptor 把 handler 中的 panic 转换为 Internal 错误。
func RecoveryUnaryInterceptor(log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithError(models.ErrorInfo{
					Message: fmt.Sprintf("%v", rec),
					Stack:   string(debug.Stack()),
					Type:    "panic",
				}).Error(fmt.Sprintf("gRPC handler %s panicked", info.FullMethod))
				err = status.Errorf(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

// peerKey 返回调用方的主机地址，取不到时返回 "unknown"。
func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}

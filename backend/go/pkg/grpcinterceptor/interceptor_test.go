package grpcinterceptor

import (
	"RagDesk/backend/go/pkg/circuitbreaker"
	"RagDesk/backend/go/pkg/logger"
	"RagDesk/backend/go/pkg/ratelimiter"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

var info = &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

func peerCtx(ip string) context.Context {
	return peer.NewContext(context.Background(), &peer.Peer{Addr: &net.TCPAddr{IP: net.ParseIP(ip), Port: 5000}})
}

func okHandler(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

func TestRateLimitPerPeer(t *testing.T) {
	keyed, err := ratelimiter.NewKeyedLimiter(func() ratelimiter.RateLimiter {
		return ratelimiter.NewFixedWindowCounter(1, time.Hour)
	}, 8)
	require.NoError(t, err)
	ic := RateLimitUnaryInterceptor(keyed)

	_, err = ic(peerCtx("10.0.0.1"), nil, info, okHandler)
	require.NoError(t, err)

	_, err = ic(peerCtx("10.0.0.1"), nil, info, okHandler)
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	_, err = ic(peerCtx("10.0.0.2"), nil, info, okHandler)
	assert.NoError(t, err)
}

func TestCircuitBreakMapsOpenToUnavailable(t *testing.T) {
	ic := CircuitBreakUnaryInterceptor(circuitbreaker.New(1, 1, time.Hour))
	boom := errors.New("boom")

	_, err := ic(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = ic(context.Background(), nil, info, okHandler)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestRecoveryAndLogging(t *testing.T) {
	log := logger.Discard()
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return LoggingUnaryInterceptor(log)(ctx, req, info, func(ctx context.Context, req interface{}) (interface{}, error) {
			panic("kaboom")
		})
	}

	_, err := RecoveryUnaryInterceptor(log)(peerCtx("10.0.0.1"), nil, info, handler)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestPeerKeyWithoutPeer(t *testing.T) {
	assert.Equal(t, "unknown", peerKey(context.Background()))
	assert.Equal(t, "10.0.0.9", peerKey(peerCtx("10.0.0.9")))
}

package httpmiddleware

import (
	"RagDesk/backend/go/internal/models"
	"RagDesk/backend/go/pkg/circuitbreaker"
	"RagDesk/backend/go/pkg/logger"
	"RagDesk/backend/go/pkg/ratelimiter"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// RateLimit rejects a client with 429 once its own limiter runs dry.
// Clients are told apart by c.ClientIP().
func RateLimit(limiter *ratelimiter.KeyedLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Too Many Requests"})
			return
		}
		c.Next()
	}
}

// CircuitBreak applies the circuit breaker pattern to the rest of the chain.
// Responses with status >= 500 count as failures.
func CircuitBreak(breaker circuitbreaker.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, err := breaker.Execute(func() (interface{}, error) {
			c.Next()

			if status := c.Writer.Status(); status >= http.StatusInternalServerError {
				return nil, fmt.Errorf("server error: status code %d", status)
			}
			return nil, nil
		})

		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			// The handler never ran, so nothing has been written yet.
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"detail": "Service Unavailable: Circuit Breaker is open"})
		}
	}
}

// RequestLogger logs one line per request with method, path, status and latency.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithRequest(models.RequestInfo{
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			RemoteAddr: c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			Status:     c.Writer.Status(),
			LatencyMS:  time.Since(start).Milliseconds(),
		})
		msg := fmt.Sprintf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error(msg)
		case status >= http.StatusBadRequest:
			entry.Warn(msg)
		default:
			entry.Info(msg)
		}
	}
}

// Recovery turns a handler panic into a 500 JSON response and reports it.
func Recovery(log *logger.Logger, hub *sentry.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				err := fmt.Errorf("panic: %v", rec)
				log.WithError(models.ErrorInfo{
					Message:    err.Error(),
					Stack:      string(debug.Stack()),
					Type:       "panic",
					StatusCode: http.StatusInternalServerError,
				}).Error(fmt.Sprintf("Recovered from panic in %s %s", c.Request.Method, c.Request.URL.Path))
				log.Capture(hub, err, "handler panic", map[string]interface{}{"path": c.Request.URL.Path})
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "Internal Server Error"})
			}
		}()
		c.Next()
	}
}

package ratelimiter

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/pkg/util"
	"fmt"
	"time"
)

// RateLimiter is the interface for rate limiting.
// It defines a single method, Allow, which returns true if a request is allowed,
// and false otherwise.
type RateLimiter interface {
	// Allow returns true if the request is allowed, otherwise returns false.
	Allow() bool
}

// FromConfig builds a limiter for the configured algorithm. An empty algorithm selects the token bucket.
func FromConfig(cfg config.RateLimiterConfig) (RateLimiter, error) {
	factory, err := Factory(cfg)
	if err != nil {
		return nil, err
	}
	return factory(), nil
}

// Factory returns a constructor of fresh limiters for the configured algorithm.
func Factory(cfg config.RateLimiterConfig) (func() RateLimiter, error) {
	switch cfg.Algorithm {
	case "", "tokenBucket":
		conf := cfg.TokenBucket
		if conf.Rate <= 0 || conf.Capacity <= 0 {
			return nil, fmt.Errorf("tokenBucket needs a positive rate and capacity")
		}
		return func() RateLimiter { return NewTokenBucket(conf.Rate, conf.Capacity) }, nil
	case "fixedWindow":
		conf := cfg.FixedWindow
		window, err := time.ParseDuration(conf.Window)
		if err != nil {
			return nil, fmt.Errorf("invalid fixedWindow duration: %w", err)
		}
		return func() RateLimiter { return NewFixedWindowCounter(conf.Limit, window) }, nil
	default:
		return nil, fmt.Errorf("unknown rate limiter algorithm: %s", cfg.Algorithm)
	}
}

// KeyedLimiter keeps one limiter per key, such as a client IP.
// Idle keys are evicted least recently used first.
type KeyedLimiter struct {
	newLimiter func() RateLimiter
	limiters   *util.LRUCache[string, RateLimiter]
}

// NewKeyedLimiter creates a KeyedLimiter holding at most maxKeys limiters.
func NewKeyedLimiter(newLimiter func() RateLimiter, maxKeys int) (*KeyedLimiter, error) {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	cache, err := util.NewWithConfig(util.CacheConfig[string, RateLimiter]{Capacity: maxKeys})
	if err != nil {
		return nil, err
	}
	return &KeyedLimiter{newLimiter: newLimiter, limiters: cache}, nil
}

// Allow reports whether a request for key is allowed.
func (k *KeyedLimiter) Allow(key string) bool {
	l, ok := k.limiters.Get(key)
	if !ok {
		l = k.newLimiter()
		k.limiters.Put(key, l, 1)
	}
	return l.Allow()
}

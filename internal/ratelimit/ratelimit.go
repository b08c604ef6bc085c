// Package ratelimit provides the client rate-limit stores used by the HTTP
// rate-limiter middleware.
package ratelimit

import (
	"fmt"

	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/growlogin/growlogin/internal/config"
)

// Store is an echo rate-limiter store that owns resources to release.
type Store interface {
	middleware.RateLimiterStore
	Close() error
}

// New returns the store selected by cfg.Backend.
func New(cfg config.RateLimitConfig, log zerolog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(cfg), nil
	case "redis":
		return NewRedisStore(cfg.RedisURL, cfg.Requests, cfg.Window, log)
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}

type memoryStore struct {
	*middleware.RateLimiterMemoryStore
}

// NewMemoryStore keeps per-client token buckets in process. A bucket holds
// cfg.Requests tokens and refills at Requests per Window.
func NewMemoryStore(cfg config.RateLimitConfig) Store {
	return memoryStore{
		RateLimiterMemoryStore: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
			Burst:     cfg.Requests,
			ExpiresIn: cfg.Window,
		}),
	}
}

func (memoryStore) Close() error { return nil }

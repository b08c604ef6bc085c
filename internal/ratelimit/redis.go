package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "growlogin:ratelimit:"

// slidingWindow trims entries older than the window, then admits the
// request only if fewer than limit entries remain.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, ARGV[2])

local current = redis.call('ZCARD', key)
if current < limit then
	redis.call('ZADD', key, ARGV[1], ARGV[4])
	redis.call('EXPIRE', key, tonumber(ARGV[5]))
	return 1
end
return 0
`)

// RedisStore is a sliding-window limiter shared by every instance pointed
// at the same Redis. Redis failures let the request through.
type RedisStore struct {
	client  *redis.Client
	limit   int64
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewRedisStore connects to redisURL and checks the connection.
func NewRedisStore(redisURL string, limit int, window time.Duration, log zerolog.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisStoreWithClient(client, limit, window, log), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, limit int, window time.Duration, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		client:  client,
		limit:   int64(limit),
		window:  window,
		timeout: time.Second,
		now:     time.Now,
		log:     log,
	}
}

// Allow implements middleware.RateLimiterStore.
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	allowed, err := s.AllowContext(ctx, identifier)
	if err != nil {
		s.log.Warn().Err(err).Str("client", identifier).Msg("rate limit check failed, allowing request")
		return true, nil
	}
	return allowed, nil
}

// AllowContext runs the sliding-window check and reports Redis errors.
func (s *RedisStore) AllowContext(ctx context.Context, identifier string) (bool, error) {
	now := s.now().UnixMilli()
	windowStart := now - s.window.Milliseconds()
	ttl := int64(math.Ceil(s.window.Seconds()))

	result, err := slidingWindow.Run(ctx, s.client,
		[]string{keyPrefix + identifier},
		now, windowStart, s.limit, uuid.NewString(), ttl,
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	return result == 1, nil
}

func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

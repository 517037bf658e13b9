package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     time.Time
}

// Limiter decides whether the client identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RedisLimiter is a fixed-window counter shared by every instance through Redis.
type RedisLimiter struct {
	redis  redis.Cmdable
	config RateLimitConfig
}

// NewRedisLimiter creates a new rate limiter instance
func NewRedisLimiter(client redis.Cmdable, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{redis: client, config: config}
}

// Allow increments the counter for key in the current window.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	windowStart := time.Now().Truncate(rl.config.Window)
	redisKey := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, key, windowStart.Unix())

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := int(incrCmd.Val())
	return Decision{
		Allowed:   count <= rl.config.Limit,
		Remaining: max(0, rl.config.Limit-count),
		Reset:     windowStart.Add(rl.config.Window),
	}, nil
}

// MemoryLimiter is a per-process token bucket per key, used when Redis is off.
// A bucket idle for a whole window has refilled completely, so it is dropped
// and recreated on the key's next request.
type MemoryLimiter struct {
	config    RateLimitConfig
	now       func() time.Time
	mu        sync.Mutex
	buckets   map[string]*memoryBucket
	lastSweep time.Time
}

type memoryBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter(config RateLimitConfig) *MemoryLimiter {
	return &MemoryLimiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*memoryBucket),
	}
}

func (ml *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := ml.now()

	ml.mu.Lock()
	if now.Sub(ml.lastSweep) >= ml.config.Window {
		ml.evictIdle(now)
		ml.lastSweep = now
	}
	b, ok := ml.buckets[key]
	if !ok {
		every := rate.Every(ml.config.Window / time.Duration(ml.config.Limit))
		b = &memoryBucket{limiter: rate.NewLimiter(every, ml.config.Limit)}
		ml.buckets[key] = b
	}
	b.lastSeen = now
	ml.mu.Unlock()

	allowed := b.limiter.AllowN(now, 1)
	remaining := int(b.limiter.TokensAt(now))
	return Decision{
		Allowed:   allowed,
		Remaining: max(0, remaining),
		Reset:     now.Add(ml.config.Window),
	}, nil
}

// evictIdle drops buckets unused for at least one window. Callers hold mu.
func (ml *MemoryLimiter) evictIdle(now time.Time) {
	for key, b := range ml.buckets {
		if now.Sub(b.lastSeen) >= ml.config.Window {
			delete(ml.buckets, key)
		}
	}
}

// RateLimit enforces limiter per client IP. Limiter failures let the request
// through.
func RateLimit(limiter Limiter, limit int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))

		if !d.Allowed {
			retryAfter := int(time.Until(d.Reset).Seconds())
			c.Header("Retry-After", strconv.Itoa(max(1, retryAfter)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: fmt.Sprintf("rate limit of %d requests exceeded", limit),
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

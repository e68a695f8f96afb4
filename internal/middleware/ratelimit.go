package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"moneypro/pkg/logger"
)

// RateLimiter applies a fixed-window rate limit backed by Redis.
type RateLimiter struct {
	cache  *redis.Client
	prefix string
	limit  int
	window time.Duration
	logger logger.Logger
}

// NewRateLimiter constructs a RateLimiter. prefix separates independent limiters.
func NewRateLimiter(cache *redis.Client, prefix string, limit int, window time.Duration, log logger.Logger) *RateLimiter {
	return &RateLimiter{
		cache:  cache,
		prefix: prefix,
		limit:  limit,
		window: window,
		logger: log,
	}
}

// Limit enforces the rate limit, keyed by client IP and, when available, user ID.
// Redis failures let the request through.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("ratelimit:%s:%s", rl.prefix, clientIP(r))
		if userID, ok := UserIDFromContext(r.Context()); ok && userID != uuid.Nil {
			key += ":" + userID.String()
		}

		var incr *redis.IntCmd
		_, err := rl.cache.TxPipelined(r.Context(), func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(r.Context(), key)
			pipe.ExpireNX(r.Context(), key, rl.window)
			return nil
		})
		if err != nil {
			rl.logger.Warn("Rate limiter unavailable", map[string]interface{}{
				"error": err.Error(),
				"key":   key,
			})
			next.ServeHTTP(w, r)
			return
		}

		count := incr.Val()
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		if count > int64(rl.limit) {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			jsonError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(int64(rl.limit)-count, 10))

		next.ServeHTTP(w, r)
	})
}

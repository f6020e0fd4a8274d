package middlewares

import (
	"time"

	"github.com/geocoder89/bloghub/internal/redisclient"
	"github.com/gin-gonic/gin"
)

// RedisRateLimiter is the fixed-window limiter shared across instances:
// INCR on a per-key counter whose TTL is the window.
type RedisRateLimiter struct {
	client *redisclient.Client
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(client *redisclient.Client, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

func (rl *RedisRateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			key = clientIP(c)
		}

		key = "ratelimit:" + key

		ctx := c.Request.Context()
		rdb := rl.client.Raw()

		count, err := rdb.Incr(ctx, key).Result()

		if err != nil {
			// fail open: a broken limiter must not take the API down
			c.Next()
			return
		}

		if count == 1 {
			_ = rdb.Expire(ctx, key, rl.window).Err()
		}

		if count > int64(rl.limit) {
			retryAfter := int(rl.window.Seconds())

			if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds())
			}

			abortRateLimited(c, retryAfter)
			return
		}

		c.Next()
	}
}

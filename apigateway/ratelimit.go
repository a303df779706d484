package gateway

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v7"
	"github.com/sirupsen/logrus"

	"github.com/plateful/plateful/apperr"
)

// RateLimit is one named token-bucket budget. Budgets are injected per route
// group rather than kept as global middleware state.
type RateLimit struct {
	Name      string
	PerMinute int
	Burst     int
}

// RateLimiter checks request budgets against redis. A nil limiter or a nil
// redis client disables limiting entirely.
type RateLimiter struct {
	Redis  *redis.Client
	Logger *logrus.Logger
}

// tokenBucketScript refills and consumes atomically on the redis side.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- bucket capacity
	local now = tonumber(ARGV[3])       -- current time in seconds
	local ttl = tonumber(ARGV[4])       -- key ttl in seconds

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = now - last_update
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after = 0
	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after}
`)

// Allow consumes one token from the bucket identified by (limit.Name, id).
// Redis outages fail open: serving a few extra requests beats serving none.
func (rl *RateLimiter) Allow(limit RateLimit, id string) (bool, time.Duration) {
	if rl == nil || rl.Redis == nil || limit.PerMinute <= 0 {
		return true, 0
	}
	key := fmt.Sprintf("ratelimit:%s:%s", limit.Name, id)
	rate := float64(limit.PerMinute) / 60.0
	ttl := 2 * int(float64(limit.Burst)/rate+1)

	res, err := tokenBucketScript.Run(rl.Redis, []string{key}, rate, limit.Burst, time.Now().Unix(), ttl).Result()
	if err != nil {
		rl.Logger.WithFields(logrus.Fields{
			"error": err.Error(),
			"key":   key,
		}).Warn("rate limit check failed, allowing request")
		return true, 0
	}
	values, ok := res.([]interface{})
	if !ok || len(values) < 2 {
		return true, 0
	}
	allowed, _ := values[0].(int64)
	retryAfter, _ := values[1].(int64)
	return allowed == 1, time.Duration(retryAfter) * time.Second
}

// Middleware enforces limit keyed by client identity: the authenticated user
// id when AuthMiddleware already ran, the client IP otherwise.
func (rl *RateLimiter) Middleware(limit RateLimit) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := rl.Allow(limit, clientIdentity(c))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			AbortError(c, apperr.ErrRateLimited)
			return
		}
		c.Next()
	}
}

func clientIdentity(c *gin.Context) string {
	if id := UserID(c); id != 0 {
		return fmt.Sprintf("user:%d", id)
	}
	return "ip:" + c.ClientIP()
}

package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dihanio/NesaVent-sub001/internal/config"
)

// tokenBucketScript refills and takes one token atomically. It returns
// {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])
	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local intervals = math.floor(math.max(0, now_ms - last_refill) / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)
	return { allowed, tokens, retry_after_ms }
`)

// NewTokenBucket limits requests with a Redis token bucket. Signed-in
// callers get a bucket per user id, anonymous callers one per client IP
// with the smaller anonymous capacity. Redis errors fail open.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			b := bucketFor(cfg, c)
			args := []interface{}{
				time.Now().UnixMilli(),
				b.capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL / time.Second),
			}
			vals, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{b.key}, args...).Result()
			if err != nil {
				logger.Warn("ratelimit redis error", zap.String("key", b.key), zap.Error(err))
				return next(c)
			}
			arr, ok := vals.([]interface{})
			if !ok || len(arr) != 3 {
				logger.Warn("ratelimit unexpected script result", zap.String("key", b.key), zap.Any("result", vals))
				return next(c)
			}
			allowed := fmt.Sprint(arr[0]) == "1"
			remaining := asInt64(arr[1])
			retryMs := asInt64(arr[2])

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(b.capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", b.key)
			}
			if !allowed {
				secs := int(math.Ceil(float64(retryMs) / 1000.0))
				h.Set("Retry-After", strconv.Itoa(secs))
				if b.anonymous {
					logger.Info("anonymous caller throttled", zap.String("key", b.key))
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"message":     "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	}
	return 0
}

type bucket struct {
	key       string
	capacity  int
	anonymous bool
}

// bucketFor picks the bucket a request draws from. The subject is the
// signed-in user or, failing that, the client IP. KeyStrategy narrows the
// bucket: "area" (default) per API area such as orders or auth, "route"
// per method and route pattern, "global" one bucket per subject.
func bucketFor(cfg config.RateLimitConfig, c echo.Context) bucket {
	b := bucket{capacity: cfg.Capacity}
	var subject string
	if id, ok := UserID(c); ok {
		subject = "user:" + strconv.FormatUint(id, 10)
	} else {
		ip := c.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		subject = "ip:" + ip
		b.anonymous = true
		if cfg.AnonCapacity > 0 {
			b.capacity = cfg.AnonCapacity
		}
	}

	parts := []string{cfg.Prefix, subject}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "global":
	case "route":
		parts = append(parts, c.Request().Method+" "+c.Path())
	default:
		parts = append(parts, apiArea(c.Path()))
	}
	b.key = strings.Join(parts, ":")
	return b
}

// apiArea returns the first path segment below /api, so /api/orders/:id/pay
// and /api/orders/my share the "orders" area.
func apiArea(path string) string {
	p := strings.TrimPrefix(strings.TrimPrefix(path, "/"), "api/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "root"
	}
	return p
}

package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"book_market/internal/common"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local rate = tonumber(ARGV[2])
	local now = tonumber(ARGV[3])
	local requested = tonumber(ARGV[4])

	local info = redis.call("HMGET", key, "tokens", "last_refill")
	local tokens = tonumber(info[1])
	local last_refill = tonumber(info[2])

	if tokens == nil then
		tokens = capacity
		last_refill = now
	end

	local delta = math.max(0, now - last_refill)
	local filled_tokens = math.min(capacity, tokens + (delta / 1000 * rate))

	local allowed = 0
	if filled_tokens >= requested then
		filled_tokens = filled_tokens - requested
		allowed = 1
		redis.call("HMSET", key, "tokens", filled_tokens, "last_refill", now)
		redis.call("EXPIRE", key, math.ceil(capacity / rate) * 2)
	end

	return allowed
`)

// RateLimiter is a per client IP token bucket kept in Redis, so every API
// instance shares the same budget.
type RateLimiter struct {
	rdb      *redis.Client
	log      logrus.FieldLogger
	name     string
	capacity int
	rate     float64
	now      func() time.Time
}

func NewRateLimiter(rdb *redis.Client, log logrus.FieldLogger, name string, capacity int, rate float64) *RateLimiter {
	return &RateLimiter{rdb: rdb, log: log, name: name, capacity: capacity, rate: rate, now: time.Now}
}

func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	keys := []string{fmt.Sprintf("rate_limit:%s:%s", l.name, key)}
	args := []interface{}{l.capacity, l.rate, l.now().UnixMilli(), 1}

	result, err := tokenBucketScript.Run(ctx, l.rdb, keys, args...).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}

// Middleware answers 429 once the caller's bucket is empty. Redis failures
// let the request through.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 200*time.Millisecond)
		defer cancel()

		allowed, err := l.Allow(ctx, "ip:"+clientIP(r))
		if err != nil {
			l.log.Warnf("%s limiter redis error: %v", l.name, err)
		} else if !allowed {
			common.RespondWithError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP reads RemoteAddr, which chi's RealIP has already rewritten when
// the request came through a proxy.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const redisOTPAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

// OTPRateLimiter caps how many codes can be requested per key in a window.
type OTPRateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisOTPRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
	logger *logrus.Logger
}

// NewRedisOTPRateLimiter returns nil when client is nil; AuthService treats a
// nil limiter as unlimited.
func NewRedisOTPRateLimiter(client *redis.Client, window time.Duration, max int, logger *logrus.Logger) OTPRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisOTPRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "otp:rl:",
		logger: logger,
	}
}

// Allow fails open when Redis is unreachable.
func (l *redisOTPRateLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisOTPAllowScript, []string{l.prefix + normalizedKey}, seconds).Int()
	if err != nil {
		if l.logger != nil {
			l.logger.WithError(err).Warn("OTP rate limiter unavailable, allowing request")
		}
		return true
	}
	return count <= l.max
}

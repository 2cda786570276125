package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/nurture/internal/config"
)

const keySignup = "nurture:ratelimit:%s:%s"

// Limiter throttles a scope (route group) per caller key.
type Limiter interface {
	Enabled() bool
	Allow(ctx context.Context, scope, key string) (*Decision, error)
}

// SignupLimiter throttles the signup and login routes per client.
type SignupLimiter struct {
	enabled bool
	bucket  *TokenBucket
	rate    float64
	burst   int
}

// NewSignupLimiter returns a disabled limiter when no redis address is configured.
func NewSignupLimiter(cfg config.Config, client *redis.Client) (*SignupLimiter, error) {
	if client == nil {
		return &SignupLimiter{}, nil
	}
	perMinute := cfg.Signup.RateLimitPerMinute
	burst := cfg.Signup.RateLimitBurst
	if perMinute <= 0 || burst <= 0 {
		return nil, fmt.Errorf("signup rate limit must be positive: %v/min burst %d", perMinute, burst)
	}
	return &SignupLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    perMinute / 60,
		burst:   burst,
	}, nil
}

func (l *SignupLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *SignupLimiter) Allow(ctx context.Context, scope, key string) (*Decision, error) {
	if !l.Enabled() {
		return &Decision{Allowed: true}, nil
	}
	return l.bucket.Take(ctx, fmt.Sprintf(keySignup, strings.TrimSpace(scope), strings.TrimSpace(key)), l.rate, l.burst)
}

// NewRedisClient returns nil when REDIS_ADDR is empty.
func NewRedisClient(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
}

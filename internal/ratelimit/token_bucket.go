package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// KEYS[1] bucket hash. ARGV: refill per second, capacity, ttl ms.
// Returns {allowed, whole tokens left, ms until next token}.
const bucketScript = `
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or capacity
local last = tonumber(state[2]) or now
if now > last then
  tokens = math.min(capacity, tokens + (now - last) / 1000 * rate)
end

local allowed = 0
local wait = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.ceil((1 - tokens) / rate * 1000)
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {allowed, math.floor(tokens), wait}
`

var (
	errNoBucket    = errors.New("ratelimit: bucket not configured")
	errEmptyKey    = errors.New("ratelimit: empty key")
	errBadBucket   = errors.New("ratelimit: rate and capacity must be positive")
	errShortResult = errors.New("ratelimit: unexpected script result")
)

// Decision is the outcome of taking one token from a bucket.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// TokenBucket keeps bucket state in redis so every replica shares it.
type TokenBucket struct {
	client redis.Scripter
	script *redis.Script
}

func NewTokenBucket(client redis.Scripter) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client, script: redis.NewScript(bucketScript)}
}

// Take removes one token from key, refilling at rate tokens per second up to capacity.
func (b *TokenBucket) Take(ctx context.Context, key string, rate float64, capacity int) (*Decision, error) {
	switch {
	case b == nil || b.client == nil:
		return &Decision{}, errNoBucket
	case key == "":
		return &Decision{}, errEmptyKey
	case rate <= 0 || capacity <= 0:
		return &Decision{}, errBadBucket
	}

	ttl := bucketTTL(rate, capacity)
	out, err := b.script.Run(ctx, b.client, []string{key}, rate, capacity, ttl.Milliseconds()).Int64Slice()
	if err != nil {
		return &Decision{}, err
	}
	if len(out) < 3 {
		return &Decision{}, errShortResult
	}

	return &Decision{
		Allowed:    out[0] == 1,
		Limit:      capacity,
		Remaining:  int(out[1]),
		RetryAfter: time.Duration(out[2]) * time.Millisecond,
	}, nil
}

// bucketTTL keeps an idle bucket around for twice its full refill time.
func bucketTTL(rate float64, capacity int) time.Duration {
	if rate <= 0 || capacity <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(capacity)/rate*2))
	return time.Duration(seconds) * time.Second
}

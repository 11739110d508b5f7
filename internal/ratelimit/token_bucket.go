// Package ratelimit throttles authenticated requests per subject on the
// reference server.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

type Bucket struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	BurstSize         int `yaml:"burstSize"`
}

func (b Bucket) Enabled() bool {
	return b.RequestsPerMinute > 0 && b.BurstSize > 0
}

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, scope, subject string, bucket Bucket) (Decision, error)
}

func normalize(scope, subject string) (string, string) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = "default"
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "anonymous"
	}
	return scope, subject
}

// TokenBucketLimiter keeps bucket state in Redis so several server
// replicas share one budget per subject.
type TokenBucketLimiter struct {
	rdb *redis.Client
	now func() time.Time
}

func NewTokenBucketLimiter(rdb *redis.Client) *TokenBucketLimiter {
	return &TokenBucketLimiter{rdb: rdb, now: time.Now}
}

var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1]) -- tokens/sec
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3]) -- ms
local ttl_ms = tonumber(ARGV[4])

local tokens = tonumber(redis.call("HGET", key, "tokens"))
local ts = tonumber(redis.call("HGET", key, "ts"))
if not tokens then tokens = capacity end
if not ts or now < ts then ts = now end

tokens = math.min(capacity, tokens + (now - ts) * (rate / 1000.0))

local allowed = 0
local retry_after_s = 0
if tokens >= 1.0 then
  allowed = 1
  tokens = tokens - 1.0
else
  retry_after_s = math.max(1, math.ceil((1.0 - tokens) / rate))
end

redis.call("HSET", key, "tokens", tokens, "ts", now)
redis.call("PEXPIRE", key, ttl_ms)
return {allowed, retry_after_s}
`)

func (l *TokenBucketLimiter) Allow(ctx context.Context, scope, subject string, bucket Bucket) (Decision, error) {
	if l == nil || l.rdb == nil || !bucket.Enabled() {
		return Decision{Allowed: true}, nil
	}
	scope, subject = normalize(scope, subject)
	key := fmt.Sprintf("repozip:rl:%s:%s", scope, subject)

	ratePerSec := float64(bucket.RequestsPerMinute) / 60.0
	capacity := float64(bucket.BurstSize)
	res, err := tokenBucketScript.Run(ctx, l.rdb, []string{key},
		ratePerSec, capacity, l.now().UTC().UnixMilli(), ttlMillis(ratePerSec, capacity),
	).Result()
	if err != nil {
		return Decision{}, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) < 2 {
		return Decision{}, fmt.Errorf("unexpected redis ratelimit response: %T", res)
	}

	allowed, _ := vals[0].(int64)
	retryAfterS, _ := vals[1].(int64)
	if allowed == 1 {
		return Decision{Allowed: true}, nil
	}
	if retryAfterS <= 0 {
		retryAfterS = 1
	}
	return Decision{RetryAfter: time.Duration(retryAfterS) * time.Second}, nil
}

// ttlMillis keeps bucket state for two refill-to-full cycles, clamped.
func ttlMillis(ratePerSec, capacity float64) int64 {
	const (
		minTTL = 30 * time.Second
		maxTTL = time.Hour
	)
	fill := time.Duration(math.Ceil(capacity/ratePerSec*2.0))*time.Second + 5*time.Second
	if fill < minTTL {
		fill = minTTL
	}
	if fill > maxTTL {
		fill = maxTTL
	}
	return fill.Milliseconds()
}

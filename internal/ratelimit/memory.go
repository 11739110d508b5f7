package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryLimiter is the single-process counterpart of TokenBucketLimiter,
// used with the memory store.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: map[string]*rate.Limiter{}}
}

func (l *MemoryLimiter) Allow(_ context.Context, scope, subject string, bucket Bucket) (Decision, error) {
	if l == nil || !bucket.Enabled() {
		return Decision{Allowed: true}, nil
	}
	scope, subject = normalize(scope, subject)
	key := scope + ":" + subject

	l.mu.Lock()
	lim, ok := l.buckets[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(bucket.RequestsPerMinute)), bucket.BurstSize)
		l.buckets[key] = lim
	}
	l.mu.Unlock()

	r := lim.Reserve()
	delay := r.Delay()
	if delay == 0 {
		return Decision{Allowed: true}, nil
	}
	r.Cancel()
	if delay < time.Second {
		delay = time.Second
	}
	return Decision{RetryAfter: delay.Round(time.Second)}, nil
}

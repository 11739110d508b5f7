// Package backoff computes retry delays for server startup dependencies.
package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy describes a delay curve. Strategy is one of fixed, linear,
// exponential or full_jitter (the default).
type Policy struct {
	Strategy string
	Base     time.Duration
	Max      time.Duration
}

// Delay returns the wait before retry number attempt (0-based).
func (p Policy) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := p.Base
	if base <= 0 {
		base = time.Second
	}
	limit := p.Max
	if limit <= 0 {
		limit = base
	}
	exp := func() time.Duration {
		d := float64(base) * math.Pow(2, float64(attempt))
		if d > float64(limit) {
			return limit
		}
		return time.Duration(d)
	}
	switch p.Strategy {
	case "fixed":
		return min(base, limit)
	case "linear":
		return min(base*time.Duration(max(1, attempt)), limit)
	case "exponential":
		return exp()
	default:
		if rng == nil {
			rng = rand.New(rand.NewSource(1))
		}
		d := exp()
		if d <= 0 {
			return 0
		}
		return time.Duration(rng.Int63n(int64(d) + 1))
	}
}

// Retry calls fn up to attempts times, sleeping per p between failures. It
// returns the last error, or ctx.Err() when the context ends first.
func Retry(ctx context.Context, p Policy, attempts int, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		t := time.NewTimer(p.Delay(i, rng))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

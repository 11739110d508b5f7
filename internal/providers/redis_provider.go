package providers

import (
	"context"
	"log/slog"
	"time"

	"github.com/osvaldoandrade/repozip/internal/backoff"

	"github.com/go-redis/redis/v8"
)

// redisStartup is the retry curve for the startup ping.
var redisStartup = backoff.Policy{Strategy: "exponential", Base: 200 * time.Millisecond, Max: 5 * time.Second}

func NewRedisProvider(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
}

// WaitForRedis pings rdb until it answers or attempts run out.
func WaitForRedis(ctx context.Context, rdb *redis.Client, attempts int, logger *slog.Logger) error {
	return backoff.Retry(ctx, redisStartup, attempts, func(ctx context.Context) error {
		err := rdb.Ping(ctx).Err()
		if err != nil {
			logger.Warn("redis not ready", "addr", rdb.Options().Addr, "err", err)
		}
		return err
	})
}

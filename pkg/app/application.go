package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/osvaldoandrade/repozip/internal/metrics"
	"github.com/osvaldoandrade/repozip/internal/middleware"
	"github.com/osvaldoandrade/repozip/internal/providers"
	"github.com/osvaldoandrade/repozip/internal/ratelimit"
	"github.com/osvaldoandrade/repozip/internal/repository"
	"github.com/osvaldoandrade/repozip/internal/services"
	"github.com/osvaldoandrade/repozip/internal/tracing"
	"github.com/osvaldoandrade/repozip/pkg/auth"
	"github.com/osvaldoandrade/repozip/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// DevAPIKey is accepted when a dev server starts without auth config.
const DevAPIKey = "dev-key"

type Application struct {
	Config          *config.ServerConfig
	Engine          *gin.Engine
	Submissions     services.SubmissionService
	Repository      repository.SubmissionRepository
	Logger          *slog.Logger
	Validator       auth.Validator
	Limiter         ratelimit.Limiter
	TracingShutdown func(context.Context) error

	redis *redis.Client
}

// ApplicationOption configures the Application
type ApplicationOption func(*Application) error

// WithValidator sets a custom API key validator
func WithValidator(validator auth.Validator) ApplicationOption {
	return func(app *Application) error {
		app.Validator = validator
		return nil
	}
}

// WithRepository replaces the configured submission store
func WithRepository(repo repository.SubmissionRepository) ApplicationOption {
	return func(app *Application) error {
		app.Repository = repo
		return nil
	}
}

func newLogger(cfg *config.ServerConfig) *slog.Logger {
	level := new(slog.LevelVar)
	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler).With("service", "repozip-server", "env", cfg.Env)
}

func NewApplication(cfg *config.ServerConfig, opts ...ApplicationOption) (*Application, error) {
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	shutdown, err := tracing.Setup(context.Background(), tracing.Config{
		Enabled:      cfg.TracingEnabled,
		ServiceName:  "repozip-server",
		OTLPEndpoint: cfg.OTLPEndpoint,
	}, logger)
	if err != nil {
		return nil, err
	}

	app := &Application{
		Config:          cfg,
		Logger:          logger,
		TracingShutdown: shutdown,
	}
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	if cfg.Store == "redis" {
		app.redis = providers.NewRedisProvider(cfg.RedisAddr, cfg.RedisPassword)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := providers.WaitForRedis(ctx, app.redis, cfg.RedisPingAttempts, logger)
		cancel()
		if err != nil {
			_ = app.redis.Close()
			return nil, fmt.Errorf("redis %s unreachable: %w", cfg.RedisAddr, err)
		}
	}
	if app.Repository == nil {
		if app.redis != nil {
			app.Repository = repository.NewSubmissionRepository(app.redis, time.UTC)
		} else {
			app.Repository = repository.NewMemorySubmissionRepository()
		}
	}
	if app.redis != nil {
		app.Limiter = ratelimit.NewTokenBucketLimiter(app.redis)
	} else {
		app.Limiter = ratelimit.NewMemoryLimiter()
	}
	metrics.RegisterStoreCollector(app.Repository, logger)

	if app.Validator == nil {
		v, err := newValidator(cfg, logger)
		if err != nil {
			return nil, err
		}
		app.Validator = v
	}

	store := providers.NewLocalArtifactStore(cfg.ArtifactsDir)
	app.Submissions = services.NewSubmissionService(cfg, app.Repository, store, logger, time.Now)

	if strings.ToLower(cfg.Env) != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestIDMiddleware(), middleware.TracingMiddleware(), middleware.LoggerMiddleware(logger))
	app.Engine = engine

	return app, nil
}

func newValidator(cfg *config.ServerConfig, logger *slog.Logger) (auth.Validator, error) {
	raw, err := cfg.Auth.RawConfig()
	if err != nil {
		return nil, err
	}
	if raw == nil && strings.ToLower(cfg.Env) == "dev" {
		logger.Warn("no auth config, accepting the dev API key", "provider", cfg.Auth.Type, "key", DevAPIKey)
		raw = json.RawMessage(`"` + DevAPIKey + `"`)
	}
	return auth.NewValidator(auth.ProviderConfig{Type: cfg.Auth.Type, Config: raw})
}

// Close flushes traces and releases the Redis connection.
func (a *Application) Close(ctx context.Context) error {
	var err error
	if a.TracingShutdown != nil {
		err = a.TracingShutdown(ctx)
	}
	if a.redis != nil {
		if cerr := a.redis.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

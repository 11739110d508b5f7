package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/osvaldoandrade/repozip/internal/buildinfo"
	_ "github.com/osvaldoandrade/repozip/pkg/auth/hmac"   // Register HS256 API key provider
	_ "github.com/osvaldoandrade/repozip/pkg/auth/static" // Register static key list provider (dev/local)
	"github.com/osvaldoandrade/repozip/pkg/config"

	"github.com/osvaldoandrade/repozip/pkg/app"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "[ERROR]", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		port    int
	)
	cmd := &cobra.Command{
		Use:           "repozip-server",
		Short:         "Reference submission server for repozip clients",
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServerConfig(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", getenv("REPOZIP_SERVER_CONFIG", ""), "Server config file ($REPOZIP_SERVER_CONFIG)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port, overrides the config and $PORT")
	return cmd
}

func loadServerConfig(path string) (*config.ServerConfig, error) {
	cfg, err := config.LoadServerConfigOptional(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.ServerConfig) error {
	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	app.SetupMappings(application)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           application.Engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logStartup(application.Logger, cfg, srv.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		_ = application.Close(context.Background())
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	application.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return application.Close(shutdownCtx)
}

func logStartup(logger *slog.Logger, cfg *config.ServerConfig, addr string) {
	logger.Info("listening",
		"addr", addr,
		"version", buildinfo.Version,
		"store", cfg.Store,
		"auth", cfg.Auth.Type,
		"artifacts_dir", cfg.ArtifactsDir,
		"max_upload_bytes", cfg.MaxUploadBytes,
	)
	logger.Info("default competition", "format", cfg.DefaultFormat, "max_attempts", cfg.DefaultMaxAttempts)
	for _, id := range competitionIDs(cfg) {
		comp := cfg.Competition(id)
		logger.Info("competition",
			"id", id,
			"name", comp.Name,
			"format", comp.RequiredFormat,
			"max_attempts", comp.MaxAttempts,
			"closed", comp.Closed,
		)
	}
}

func competitionIDs(cfg *config.ServerConfig) []string {
	ids := make([]string, 0, len(cfg.Competitions))
	for id := range cfg.Competitions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/osvaldoandrade/repozip/internal/cliui"
	"github.com/osvaldoandrade/repozip/internal/metrics"
	"github.com/osvaldoandrade/repozip/internal/tracing"
	"github.com/osvaldoandrade/repozip/pkg/config"

	"github.com/spf13/cobra"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	configPath  string
	apiKey      string
	serverURL   string
	competition string
	level       string
	metricsFile string
	verbose     bool
}

func main() {
	ui := cliui.New()
	g := &globals{}

	root := &cobra.Command{
		Use:   "repozip",
		Short: "repozip CLI",
		Long:  "repozip packages a project directory and submits it to a competition server.",
	}
	root.SetHelpTemplate(helpTemplate(ui))
	root.SilenceUsage = true
	root.SilenceErrors = true

	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "Config file (default ./"+config.FileName+" or $REPOZIP_CONFIG)")
	pf.StringVar(&g.apiKey, "api-key", "", "API key")
	pf.StringVar(&g.serverURL, "server-url", "", "Submission server base URL")
	pf.StringVar(&g.competition, "competition", "", "Competition ID")
	pf.StringVar(&g.level, "compression-level", "", "Compression level 0-9 or store|fastest|normal|best")
	pf.StringVar(&g.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Debug logging to stderr")

	root.AddCommand(sendCmd(g, ui))
	root.AddCommand(checkCmd(g, ui))
	root.AddCommand(initCmd(g, ui))
	root.AddCommand(configCmd(g, ui))
	root.AddCommand(updateCmd(g, ui))
	root.AddCommand(versionCmd(ui))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		ui.Error(err)
		os.Exit(1)
	}
}

func (g *globals) logger() *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file. An explicit --config must exist; the
// default location may be absent when env or flags carry the settings.
func (g *globals) loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path := config.Path(g.configPath)
	if cmd.Flags().Changed("config") {
		cfg, err := config.LoadConfig(path)
		return cfg, path, err
	}
	cfg, err := config.LoadConfigOptional(path)
	return cfg, path, err
}

// overrides collects the persistent flags the user actually set.
func (g *globals) overrides(cmd *cobra.Command) (config.Overrides, error) {
	var o config.Overrides
	flags := cmd.Flags()
	if flags.Changed("api-key") {
		o.APIKey = g.apiKey
	}
	if flags.Changed("server-url") {
		o.ServerURL = g.serverURL
	}
	if flags.Changed("competition") {
		o.CompetitionID = g.competition
	}
	if flags.Changed("compression-level") {
		n, err := config.ParseCompressionLevel(g.level)
		if err != nil {
			return o, err
		}
		o.CompressionLevel = &n
	}
	return o, nil
}

// telemetry starts tracing per the config and returns a finisher that
// flushes spans and writes the metrics textfile.
func (g *globals) telemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) func() {
	shutdown, err := tracing.Setup(ctx, tracing.Config{
		Enabled:      cfg.Telemetry.Tracing,
		ServiceName:  "repozip",
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
	}, logger)
	if err != nil {
		logger.Warn("tracing disabled", "err", err)
		shutdown = nil
	}
	metricsFile := strings.TrimSpace(g.metricsFile)
	if metricsFile == "" {
		metricsFile = cfg.Telemetry.MetricsFile
	}
	return func() {
		if shutdown != nil {
			if err := shutdown(context.Background()); err != nil {
				logger.Warn("tracing shutdown failed", "err", err)
			}
		}
		if metricsFile != "" {
			if err := metrics.WriteTextfile(metricsFile); err != nil {
				logger.Warn("write metrics file failed", "path", metricsFile, "err", err)
			}
		}
	}
}

func helpTemplate(ui *cliui.UI) string {
	title := ui.Title("repozip")
	return fmt.Sprintf(`%s: package and submit a project directory

Usage:
  {{.UseLine}}
{{if .HasAvailableSubCommands}}
Commands:
{{range .Commands}}{{if (or .IsAvailableCommand .IsAdditionalHelpTopicCommand)}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}
{{end}}
Flags:
  {{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}
{{if .HasAvailableInheritedFlags}}
Global Flags:
  {{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}
Config:
  %s (override with --config or REPOZIP_CONFIG)

Examples:
  repozip init
  repozip check --competition spring-cup
  repozip send ./my-project --format python --yes
  repozip update

`, title, config.FileName)
}

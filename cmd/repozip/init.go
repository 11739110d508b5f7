package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/osvaldoandrade/repozip/internal/cliui"
	"github.com/osvaldoandrade/repozip/pkg/config"

	"github.com/spf13/cobra"
)

func initCmd(g *globals, ui *cliui.UI) *cobra.Command {
	var (
		noPrompt bool
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default " + config.FileName,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(g.configPath)
			if _, err := os.Stat(path); err == nil && !force {
				if noPrompt {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
				ok, err := ui.Confirm(fmt.Sprintf("%s already exists. Overwrite?", path), false)
				if err != nil {
					return err
				}
				if !ok {
					ui.Infof("Kept existing %s", path)
					return nil
				}
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cfg := config.Default()
			cfg.APIKey = strings.TrimSpace(g.apiKey)
			if v := strings.TrimSpace(g.serverURL); v != "" {
				cfg.ServerURL = v
			}
			cfg.CompetitionID = strings.TrimSpace(g.competition)
			if cmd.Flags().Changed("compression-level") {
				n, err := config.ParseCompressionLevel(g.level)
				if err != nil {
					return err
				}
				cfg.CompressionLevel = &n
			}

			if !noPrompt {
				if cfg.APIKey == "" {
					key, err := ui.PromptSecret("API key")
					if err != nil {
						return err
					}
					cfg.APIKey = key
				}
				cfg.ServerURL = ui.Prompt("Server URL", cfg.ServerURL)
				cfg.CompetitionID = ui.Prompt("Competition ID (optional)", cfg.CompetitionID)
			}

			if err := config.SaveConfig(cfg, path); err != nil {
				return err
			}
			ui.Okf("Wrote %s", path)
			if cfg.APIKey == "" {
				ui.Warnf("api_key is empty; set it in %s or REPOZIP_API_KEY before sending", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "Disable interactive prompts")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config without asking")
	return cmd
}

func configCmd(g *globals, ui *cliui.UI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the CLI configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			o, err := g.overrides(cmd)
			if err != nil {
				return err
			}
			source := path
			if _, err := os.Stat(path); err != nil {
				source = path + " (not found, defaults and environment only)"
			}

			fmt.Fprintln(ui.Out(), ui.Title("Configuration"))
			ui.Field("File", source)
			resolved, err := config.Merge(cfg, o)
			if err != nil {
				ui.Field("Server URL", cfg.ServerURL)
				ui.Field("API key", cliui.MaskToken(cfg.APIKey))
				ui.Warnf("%v", err)
				return nil
			}
			t := resolved.Target
			ui.Field("Server URL", t.ServerURL)
			ui.Field("API key", cliui.MaskToken(t.APIKey))
			ui.Field("Competition ID", emptyOr(t.CompetitionID, "<none>"))
			ui.Field("Format", emptyOr(resolved.ConfiguredFormat, "<server decides>"))
			ui.Field("Compression level", t.CompressionLevel)
			ui.Field("Exclude", emptyOr(strings.Join([]string(resolved.Exclusions), ", "), "<none>"))
			ui.Field("Scratch dir", emptyOr(resolved.ScratchDir, os.TempDir()))
			ui.Field("Auto confirm", resolved.AutoConfirm)
			ui.Field("Tracing", cfg.Telemetry.Tracing)
			ui.Field("Metrics file", emptyOr(cfg.Telemetry.MetricsFile, "<none>"))
			ui.Field("Update feed", cfg.Update.FeedURL)
			return nil
		},
	})
	return cmd
}

func emptyOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

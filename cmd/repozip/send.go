package main

import (
	"log/slog"

	"github.com/osvaldoandrade/repozip/internal/cliui"
	"github.com/osvaldoandrade/repozip/internal/eligibility"
	"github.com/osvaldoandrade/repozip/internal/pipeline"
	"github.com/osvaldoandrade/repozip/internal/upload"
	"github.com/osvaldoandrade/repozip/pkg/config"

	"github.com/spf13/cobra"
)

func newOrchestrator(logger *slog.Logger, reporter *cliui.Reporter) *pipeline.Orchestrator {
	return &pipeline.Orchestrator{
		NewChecker: func(t config.Target) pipeline.Checker {
			return eligibility.New(t.ServerURL, t.APIKey)
		},
		NewUploader: func(t config.Target) pipeline.Uploader {
			return upload.New(t.ServerURL, t.APIKey, logger)
		},
		Confirm: reporter,
		Notify:  reporter.Notify,
		OnEntry: reporter.OnEntry,
		Logger:  logger,
	}
}

func sendCmd(g *globals, ui *cliui.UI) *cobra.Command {
	var (
		format  string
		yes     bool
		exclude []string
	)
	cmd := &cobra.Command{
		Use:   "send [dir]",
		Short: "Check eligibility, build the archive and submit it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cfgPath, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			o, err := g.overrides(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("format") {
				o.ForceFormat = format
			}
			o.AutoConfirm = yes
			o.Exclude = exclude

			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			logger := g.logger()
			finish := g.telemetry(cmd.Context(), cfg, logger)
			defer finish()

			reporter := cliui.NewReporter(ui)
			defer reporter.Close()

			report, err := newOrchestrator(logger, reporter).Run(cmd.Context(), pipeline.Request{
				Config:     cfg,
				Overrides:  o,
				Root:       root,
				ConfigPath: cfgPath,
			})
			if err != nil {
				return err
			}
			logger.Debug("run finished", "state", report.State, "outcome", report.Outcome)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "Force the archive format (repository|python), skipping the eligibility check")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Submit without asking for confirmation")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Extra exclusion substrings (repeatable)")
	return cmd
}

func checkCmd(g *globals, ui *cliui.UI) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Ask the server whether a submission would be accepted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			o, err := g.overrides(cmd)
			if err != nil {
				return err
			}
			resolved, err := config.Merge(cfg, o)
			if err != nil {
				return err
			}

			logger := g.logger()
			finish := g.telemetry(cmd.Context(), cfg, logger)
			defer finish()

			t := resolved.Target
			stop := ui.Spin("Checking eligibility...")
			d, err := eligibility.New(t.ServerURL, t.APIKey).Check(cmd.Context(), t.CompetitionID)
			stop()
			if err != nil {
				return err
			}
			cliui.NewReporter(ui).Decision(d)
			if !d.Allowed() {
				ui.Warnf("Submission would not be accepted")
				return nil
			}
			ui.Okf("Submission would be accepted as %s", d.RequiredFormat)
			return nil
		},
	}
}

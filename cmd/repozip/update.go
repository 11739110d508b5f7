package main

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/osvaldoandrade/repozip/internal/buildinfo"
	"github.com/osvaldoandrade/repozip/internal/cliui"
	"github.com/osvaldoandrade/repozip/internal/update"
	"github.com/osvaldoandrade/repozip/pkg/config"

	"github.com/spf13/cobra"
)

func updateCmd(g *globals, ui *cliui.UI) *cobra.Command {
	var (
		checkOnly bool
		yes       bool
		dir       string
		feedURL   string
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download and install a newer repozip release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("feed-url") {
				cfg, _, err := g.loadConfig(cmd)
				if err != nil {
					return err
				}
				feedURL = cfg.Update.FeedURL
			}
			if strings.TrimSpace(feedURL) == "" {
				feedURL = config.DefaultFeedURL
			}

			stop := ui.Spin("Checking for updates...")
			avail, newer, err := update.NewFeed(feedURL).Check(ctx, buildinfo.Version, runtime.GOOS, runtime.GOARCH)
			stop()
			if err != nil {
				return err
			}
			if !newer {
				ui.Okf("repozip %s is up to date (latest %s)", buildinfo.Version, avail.Release.TagName)
				return nil
			}
			ui.Infof("repozip %s is available (running %s)", avail.Release.TagName, avail.Current)
			if avail.Release.HTMLURL != "" {
				ui.Field("Release", avail.Release.HTMLURL)
			}
			if !avail.HasAsset {
				ui.Warnf("Release has no asset for %s/%s", runtime.GOOS, runtime.GOARCH)
				return nil
			}
			ui.Field("Asset", fmt.Sprintf("%s (%s)", avail.Asset.Name, cliui.Bytes(avail.Asset.Size)))
			if checkOnly {
				return nil
			}
			if !yes {
				ok, err := ui.Confirm("Download and install?", false)
				if err != nil {
					return err
				}
				if !ok {
					ui.Infof("Update cancelled")
					return nil
				}
			}

			d := update.NewDownloader(dir, func(total int64) io.Writer {
				return ui.BytesBar(total, "Downloading")
			})
			path, err := d.Download(ctx, avail.Asset)
			if err != nil {
				return err
			}
			ui.Okf("Downloaded %s", path)

			action, err := update.Install(ctx, update.ExecRunner{}, path, runtime.GOOS)
			if err != nil {
				return err
			}
			switch action.Outcome {
			case update.Executed:
				ui.Okf("Installer finished: %s", strings.Join(action.Command, " "))
			case update.NeedsManualExtraction:
				ui.Infof("Extract %s and replace the repozip binary on your PATH", path)
			default:
				ui.Warnf("No installer for %s on %s; the file is kept at %s", update.Ext(path), runtime.GOOS, path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether an update exists")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Install without asking for confirmation")
	cmd.Flags().StringVar(&dir, "dir", "", "Download directory (default system temp dir)")
	cmd.Flags().StringVar(&feedURL, "feed-url", "", "Release feed URL")
	return cmd
}

func versionCmd(ui *cliui.UI) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the repozip version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			commit := buildinfo.Commit
			if commit == "" {
				commit = "unknown"
			}
			fmt.Fprintf(ui.Out(), "repozip %s (commit %s, %s/%s)\n", buildinfo.Version, commit, runtime.GOOS, runtime.GOARCH)
		},
	}
}

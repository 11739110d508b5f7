package cliui

import (
	"context"
	"fmt"
	"time"

	"github.com/osvaldoandrade/repozip/internal/archive"
	"github.com/osvaldoandrade/repozip/internal/eligibility"
	"github.com/osvaldoandrade/repozip/internal/pipeline"
	"github.com/osvaldoandrade/repozip/pkg/domain"

	"github.com/schollz/progressbar/v3"
)

// Reporter renders pipeline progress and asks for confirmation.
type Reporter struct {
	ui    *UI
	now   func() time.Time
	stop  func()
	bar   *progressbar.ProgressBar
	shown bool
}

func NewReporter(u *UI) *Reporter {
	return &Reporter{ui: u, now: time.Now}
}

// Notify is the pipeline.Orchestrator event hook.
func (r *Reporter) Notify(ev pipeline.Event) {
	r.stopSpinner()
	switch ev.State {
	case pipeline.StateCheckingEligibility:
		r.stop = r.ui.Spin("Checking eligibility...")
	case pipeline.StateAwaitingConfirmation:
		if ev.Decision != nil {
			r.Decision(*ev.Decision)
		}
	case pipeline.StateBuildingArchive:
		if ev.Decision != nil && !r.shown {
			r.Decision(*ev.Decision)
		}
		r.ui.Infof("Building %s archive (format from %s)", ev.Format, ev.FormatSource)
		r.bar = r.ui.EntryBar("Archiving")
	case pipeline.StateUploading:
		r.finishBar()
		if a := ev.Artifact; a != nil {
			r.Artifact(*a)
		}
		r.stop = r.ui.Spin("Uploading...")
	case pipeline.StateDone:
		if res := ev.Result; res != nil {
			r.ui.Okf("Submission accepted (%d): %s", res.Status, res.Message)
			if res.SubmissionID != "" {
				r.ui.Field("Submission ID", res.SubmissionID)
			}
		}
	case pipeline.StateAborted:
		r.finishBar()
		if d := ev.Decision; d != nil && !d.Allowed() {
			r.Decision(*d)
			r.ui.Warnf("Submission not approved: no remaining attempts")
			return
		}
		r.ui.Infof("Submission cancelled")
	}
}

// OnEntry advances the archive progress bar.
func (r *Reporter) OnEntry(archive.Entry) {
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

// Confirm implements pipeline.Confirmer.
func (r *Reporter) Confirm(_ context.Context, s pipeline.Summary) (bool, error) {
	r.ui.Field("Directory", s.Root)
	r.ui.Field("Format", fmt.Sprintf("%s (from %s)", s.Format, s.FormatSource))
	r.ui.Field("Server", s.ServerURL)
	if s.CompetitionID != "" {
		r.ui.Field("Competition ID", s.CompetitionID)
	}
	r.ui.Field("Archive", s.ArtifactPath)
	return r.ui.Confirm("Build and submit?", false)
}

// Decision prints an eligibility verdict.
func (r *Reporter) Decision(d domain.EligibilityDecision) {
	r.shown = true
	r.ui.Infof("Eligibility")
	for _, line := range eligibility.Describe(d, r.now(), Ago) {
		fmt.Fprintf(r.ui.Out(), "  %s\n", line)
	}
}

// Artifact prints an archive summary.
func (r *Reporter) Artifact(a domain.ArchiveArtifact) {
	r.ui.Okf("Archive ready: %s", a.Path)
	r.ui.Field("Entries", fmt.Sprintf("%d files, %d directories", a.Files, a.Directories))
	r.ui.Field("Size", fmt.Sprintf("%s (%d bytes)", Bytes(a.Bytes), a.Bytes))
	r.ui.Field("Digest", a.Digest)
}

// Close stops any running spinner or bar after a failed run.
func (r *Reporter) Close() {
	r.stopSpinner()
	r.finishBar()
}

func (r *Reporter) stopSpinner() {
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
}

func (r *Reporter) finishBar() {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

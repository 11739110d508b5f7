// Package pipeline sequences eligibility check, confirmation, archive build
// and upload for one submission run.
package pipeline

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/osvaldoandrade/repozip/internal/archive"
	"github.com/osvaldoandrade/repozip/internal/metrics"
	"github.com/osvaldoandrade/repozip/internal/tracing"
	"github.com/osvaldoandrade/repozip/pkg/config"
	"github.com/osvaldoandrade/repozip/pkg/domain"

	"go.opentelemetry.io/otel/attribute"
)

type Checker interface {
	Check(ctx context.Context, competitionID string) (domain.EligibilityDecision, error)
}

type Uploader interface {
	Upload(ctx context.Context, artifact domain.ArchiveArtifact, competitionID string) (domain.UploadResult, error)
}

// Summary is shown to the operator before the point of no return.
type Summary struct {
	Root          string
	ArtifactPath  string
	Format        domain.Format
	FormatSource  FormatSource
	ServerURL     string
	CompetitionID string
	Decision      *domain.EligibilityDecision
}

type Confirmer interface {
	Confirm(ctx context.Context, s Summary) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, s Summary) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, s Summary) (bool, error) { return f(ctx, s) }

// Event is emitted on every state transition.
type Event struct {
	State        State
	Format       domain.Format
	FormatSource FormatSource
	Decision     *domain.EligibilityDecision
	Artifact     *domain.ArchiveArtifact
	Result       *domain.UploadResult
}

type Request struct {
	// Config is the loaded config file, nil when none exists.
	Config    *config.Config
	Overrides config.Overrides
	// Root is the directory to archive; empty means the working directory.
	Root string
	// ConfigPath is the file Config came from. Its base name is never archived.
	ConfigPath string
}

// Report describes a run that ended without error.
type Report struct {
	State    State
	Outcome  Outcome
	Format   domain.Format
	Decision *domain.EligibilityDecision
	Artifact domain.ArchiveArtifact
	Result   domain.UploadResult
}

type Orchestrator struct {
	NewChecker  func(config.Target) Checker
	NewUploader func(config.Target) Uploader
	Build       func(context.Context, archive.Options) (domain.ArchiveArtifact, error)
	Confirm     Confirmer
	Notify      func(Event)
	OnEntry     func(archive.Entry)
	Logger      *slog.Logger
}

// Run executes one submission. Declines and unapproved decisions return a
// Report with an Aborted state and a nil error; every error is fatal.
func (o *Orchestrator) Run(ctx context.Context, req Request) (report Report, err error) {
	ctx, span := tracing.Start(ctx, "pipeline.run")
	defer func() {
		span.SetAttributes(attribute.String("state", report.State.String()), attribute.String("outcome", string(report.Outcome)))
		tracing.End(span, err)
		outcome := string(report.Outcome)
		if err != nil {
			outcome = "failed"
		}
		metrics.SubmissionsTotal.WithLabelValues(outcome).Inc()
	}()
	logger := o.logger()

	o.enter(&report, StateResolvingConfig, Event{})
	resolved, err := config.Merge(req.Config, req.Overrides)
	if err != nil {
		return report, err
	}
	root := req.Root
	if root == "" {
		root = "."
	}
	if root, err = filepath.Abs(root); err != nil {
		return report, domain.Wrap(domain.KindIO, "resolve root", err)
	}

	var (
		rawFormat string
		source    FormatSource
	)
	switch {
	case resolved.ForcedFormat != "":
		rawFormat, source = resolved.ForcedFormat, SourceFlag
	case resolved.ConfiguredFormat != "":
		rawFormat, source = resolved.ConfiguredFormat, SourceConfig
	default:
		o.enter(&report, StateCheckingEligibility, Event{})
		start := time.Now()
		decision, err := o.NewChecker(resolved.Target).Check(ctx, resolved.Target.CompetitionID)
		metrics.ObserveStage("check", start, err)
		if err != nil {
			return report, err
		}
		report.Decision = &decision
		if !decision.Allowed() {
			report.Outcome = OutcomeNotApproved
			o.enter(&report, StateAborted, Event{Decision: &decision})
			logger.Info("submission not approved", "remaining_attempts", decision.RemainingAttempts)
			return report, nil
		}
		rawFormat, source = decision.RequiredFormat, SourceServer
	}

	format, err := domain.ParseFormat(rawFormat)
	if err != nil {
		return report, domain.Wrap(domain.KindConfig, "resolve format from "+string(source), err)
	}
	report.Format = format
	logger.Debug("format resolved", "format", format, "source", source)

	dest, err := archive.ArtifactPath(resolved.ScratchDir, root)
	if err != nil {
		return report, err
	}

	if !resolved.AutoConfirm {
		o.enter(&report, StateAwaitingConfirmation, Event{Format: format, FormatSource: source, Decision: report.Decision})
		if o.Confirm == nil {
			return report, domain.Errorf(domain.KindConfig, "confirm", "confirmation required but not interactive (use --yes or preferences.auto_confirm)")
		}
		ok, err := o.Confirm.Confirm(ctx, Summary{
			Root:          root,
			ArtifactPath:  dest,
			Format:        format,
			FormatSource:  source,
			ServerURL:     resolved.Target.ServerURL,
			CompetitionID: resolved.Target.CompetitionID,
			Decision:      report.Decision,
		})
		if err != nil {
			return report, domain.Wrap(domain.KindIO, "confirm", err)
		}
		if !ok {
			report.Outcome = OutcomeDeclined
			o.enter(&report, StateAborted, Event{Format: format})
			return report, nil
		}
	}

	o.enter(&report, StateBuildingArchive, Event{Format: format, FormatSource: source, Decision: report.Decision})
	if err := archive.RemoveStale(dest); err != nil {
		return report, err
	}
	start := time.Now()
	artifact, err := o.build(ctx, archive.Options{
		Root:        root,
		Dest:        dest,
		Format:      format,
		Exclusions:  resolved.Exclusions,
		Level:       resolved.Target.CompressionLevel,
		ConfigNames: configNames(req.ConfigPath),
		OnEntry:     o.OnEntry,
	})
	metrics.ObserveStage("build", start, err)
	if err != nil {
		return report, err
	}
	report.Artifact = artifact
	metrics.ArchiveBytes.Set(float64(artifact.Bytes))
	metrics.ArchiveEntries.WithLabelValues("file").Set(float64(artifact.Files))
	metrics.ArchiveEntries.WithLabelValues("dir").Set(float64(artifact.Directories))

	o.enter(&report, StateUploading, Event{Format: format, Artifact: &artifact})
	start = time.Now()
	result, err := o.NewUploader(resolved.Target).Upload(ctx, artifact, resolved.Target.CompetitionID)
	metrics.ObserveStage("upload", start, err)
	report.Result = result
	if err != nil {
		return report, err
	}

	report.Outcome = OutcomeSubmitted
	o.enter(&report, StateDone, Event{Format: format, Artifact: &artifact, Result: &result})
	return report, nil
}

func (o *Orchestrator) enter(r *Report, s State, ev Event) {
	o.logger().Debug("pipeline state", "from", r.State, "to", s)
	r.State = s
	if o.Notify != nil {
		ev.State = s
		o.Notify(ev)
	}
}

func (o *Orchestrator) build(ctx context.Context, opts archive.Options) (domain.ArchiveArtifact, error) {
	if o.Build != nil {
		return o.Build(ctx, opts)
	}
	return archive.Build(ctx, opts)
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func configNames(configPath string) []string {
	names := []string{config.FileName}
	if configPath != "" {
		if base := filepath.Base(configPath); base != config.FileName {
			names = append(names, base)
		}
	}
	return names
}

package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/osvaldoandrade/repozip/internal/archive"
	"github.com/osvaldoandrade/repozip/internal/metrics"
	"github.com/osvaldoandrade/repozip/internal/providers"
	"github.com/osvaldoandrade/repozip/internal/repository"
	"github.com/osvaldoandrade/repozip/internal/tracing"
	"github.com/osvaldoandrade/repozip/pkg/auth"
	"github.com/osvaldoandrade/repozip/pkg/config"
	"github.com/osvaldoandrade/repozip/pkg/domain"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrForbidden         = errors.New("competition not allowed for this key")
	ErrClosed            = errors.New("competition is closed")
	ErrAttemptsExhausted = repository.ErrAttemptsExhausted
	ErrDigestMismatch    = errors.New("archive digest mismatch")
	ErrInvalidDigest     = errors.New("malformed archive digest")
	ErrInvalidArchive    = errors.New("upload is not a zip archive")
)

// SubmitInput is one received upload.
type SubmitInput struct {
	Claims      *auth.Claims
	Competition string
	FileName    string
	Data        []byte
	// Digest is the client-declared digest; empty skips verification.
	Digest    string
	RequestID string
}

type SubmissionService interface {
	Check(ctx context.Context, claims *auth.Claims, competition string) (domain.CheckResponse, error)
	Submit(ctx context.Context, in SubmitInput) (*domain.SubmitResponse, error)
}

type submissionService struct {
	cfg    *config.ServerConfig
	repo   repository.SubmissionRepository
	store  providers.ArtifactStore
	logger *slog.Logger
	now    func() time.Time
}

func NewSubmissionService(cfg *config.ServerConfig, repo repository.SubmissionRepository, store providers.ArtifactStore, logger *slog.Logger, now func() time.Time) SubmissionService {
	if now == nil {
		now = time.Now
	}
	return &submissionService{cfg: cfg, repo: repo, store: store, logger: logger, now: now}
}

func (s *submissionService) Check(ctx context.Context, claims *auth.Claims, competition string) (domain.CheckResponse, error) {
	ctx, span := tracing.Start(ctx, "repozip.server.check", attribute.String("competition", competition))
	defer span.End()

	if !claims.Allows(competition) {
		return domain.CheckResponse{}, ErrForbidden
	}
	comp := s.cfg.Competition(competition)
	used, err := s.repo.Used(ctx, claims.Subject, competition)
	if err != nil {
		return domain.CheckResponse{}, err
	}
	remaining := comp.MaxAttempts - used
	if remaining < 0 {
		remaining = 0
	}
	approved := !comp.Closed && remaining > 0
	format := comp.RequiredFormat

	resp := domain.CheckResponse{
		SubmissionApproved: &approved,
		RequiredFormat:     &format,
		RemainingAttempts:  &remaining,
	}
	if last, err := s.repo.Last(ctx, claims.Subject, competition); err == nil {
		ts := last.CreatedAt.Unix()
		resp.LastSubmissionByUser = &ts
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.CheckResponse{}, err
	}
	if comp.Name != "" {
		name := comp.Name
		resp.CompetitionName = &name
	}
	metrics.CheckRequestsTotal.WithLabelValues(metricLabel(competition), strconv.FormatBool(approved)).Inc()
	return resp, nil
}

func (s *submissionService) Submit(ctx context.Context, in SubmitInput) (resp *domain.SubmitResponse, err error) {
	ctx, span := tracing.Start(ctx, "repozip.server.submit",
		attribute.String("competition", in.Competition),
		attribute.Int("archive.bytes", len(in.Data)),
	)
	defer func() {
		outcome := "accepted"
		if err != nil {
			outcome = outcomeOf(err)
		}
		metrics.SubmissionsReceivedTotal.WithLabelValues(metricLabel(in.Competition), outcome).Inc()
		tracing.End(span, err)
	}()

	if !in.Claims.Allows(in.Competition) {
		return nil, ErrForbidden
	}
	comp := s.cfg.Competition(in.Competition)
	if comp.Closed {
		return nil, ErrClosed
	}

	digest := archive.DigestBytes(in.Data)
	if in.Digest != "" {
		if !archive.ValidDigest(in.Digest) {
			return nil, ErrInvalidDigest
		}
		if !strings.EqualFold(in.Digest, digest) {
			return nil, ErrDigestMismatch
		}
	}
	entries, err := zipEntries(in.Data)
	if err != nil {
		return nil, err
	}

	used, err := s.repo.Reserve(ctx, in.Claims.Subject, in.Competition, comp.MaxAttempts)
	if err != nil {
		return nil, err
	}
	release := func() {
		if rerr := s.repo.Release(ctx, in.Claims.Subject, in.Competition); rerr != nil {
			s.logger.Warn("release attempt failed", "subject", in.Claims.Subject, "err", rerr)
		}
	}

	id := uuid.NewString()
	object := path.Join(repository.DefaultCompetition, in.Claims.Subject, id+domain.ArchiveExtension)
	if in.Competition != "" {
		object = path.Join(in.Competition, in.Claims.Subject, id+domain.ArchiveExtension)
	}
	url, n, err := s.store.Put(ctx, object, bytes.NewReader(in.Data))
	if err != nil {
		release()
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	rec := domain.SubmissionRecord{
		ID:            id,
		Subject:       in.Claims.Subject,
		CompetitionID: in.Competition,
		FileName:      in.FileName,
		Bytes:         n,
		Digest:        digest,
		ArtifactURL:   url,
		RequestID:     in.RequestID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		_ = s.store.Delete(ctx, object)
		release()
		return nil, err
	}
	metrics.ReceivedBytes.Observe(float64(n))
	s.logger.Info("submission received",
		"id", id,
		"subject", rec.Subject,
		"competition", in.Competition,
		"bytes", n,
		"entries", entries,
		"request_id", in.RequestID,
	)

	remaining := comp.MaxAttempts - used
	if remaining < 0 {
		remaining = 0
	}
	return &domain.SubmitResponse{
		ID:                id,
		Message:           fmt.Sprintf("Submission %s received (%d entries, %d bytes)", id, entries, n),
		RemainingAttempts: remaining,
		Digest:            digest,
	}, nil
}

func zipEntries(data []byte) (int, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	return len(zr.File), nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrClosed):
		return "closed"
	case errors.Is(err, ErrAttemptsExhausted):
		return "exhausted"
	case errors.Is(err, ErrDigestMismatch), errors.Is(err, ErrInvalidDigest), errors.Is(err, ErrInvalidArchive):
		return "invalid"
	default:
		return "error"
	}
}

func metricLabel(competition string) string {
	if competition == "" {
		return "default"
	}
	return competition
}

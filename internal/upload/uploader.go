// Package upload sends a built archive to the submission service.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/osvaldoandrade/repozip/internal/archive"
	"github.com/osvaldoandrade/repozip/internal/tracing"
	"github.com/osvaldoandrade/repozip/internal/transport"
	"github.com/osvaldoandrade/repozip/pkg/domain"

	"go.opentelemetry.io/otel/attribute"
)

const (
	submitPath      = "/submit"
	DigestHeader    = "X-Archive-Digest"
	FilePart        = "file"
	CompetitionPart = "competition"
)

type Uploader struct {
	client *transport.Client
	logger *slog.Logger
	remove func(string) error
}

// New returns an Uploader without a client-side timeout.
func New(serverURL, apiKey string, logger *slog.Logger) *Uploader {
	return NewWithClient(transport.New(serverURL, apiKey, 0), logger)
}

func NewWithClient(c *transport.Client, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{client: c, logger: logger, remove: os.Remove}
}

// Upload POSTs the artifact as multipart/form-data to /submit. Once a response
// has been received the local artifact is deleted, whatever the status. When
// the artifact cannot be read or the request never completes, the file is kept.
func (u *Uploader) Upload(ctx context.Context, artifact domain.ArchiveArtifact, competitionID string) (result domain.UploadResult, err error) {
	ctx, span := tracing.Start(ctx, "upload.submit",
		attribute.String("competition", competitionID),
		attribute.Int64("archive.bytes", artifact.Bytes),
	)
	defer func() { tracing.End(span, err) }()

	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		return domain.UploadResult{}, domain.Wrap(domain.KindIO, "read archive", err)
	}
	body, contentType, err := encodeForm(filepath.Base(artifact.Path), data, competitionID)
	if err != nil {
		return domain.UploadResult{}, domain.Wrap(domain.KindIO, "encode upload", err)
	}

	req, err := u.client.NewRequest(ctx, http.MethodPost, submitPath, nil, bytes.NewReader(body))
	if err != nil {
		return domain.UploadResult{}, err
	}
	req.Header.Set("Content-Type", contentType)
	digest := artifact.Digest
	if digest == "" {
		digest = archive.DigestBytes(data)
	}
	req.Header.Set(DigestHeader, digest)

	resp, err := u.client.Do("upload", req)
	if err != nil {
		return domain.UploadResult{}, err
	}

	result = domain.UploadResult{Status: resp.Status, Body: strings.TrimSpace(string(resp.Body))}
	result.ArtifactRemoved = u.cleanup(artifact.Path)
	span.SetAttributes(attribute.Int("http.status_code", resp.Status))

	if !resp.OK() {
		return result, domain.Rejected("upload", resp.Status, result.Body)
	}
	result.Message, result.SubmissionID = confirmation(resp.Body)
	return result, nil
}

func (u *Uploader) cleanup(path string) bool {
	if err := u.remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		u.logger.Warn("remove archive failed", "path", path, "err", err)
		return false
	}
	return true
}

func encodeForm(fileName string, data []byte, competitionID string) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FilePart, escapeQuotes(fileName)))
	h.Set("Content-Type", domain.ArchiveContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(competitionID) != "" {
		if err := mw.WriteField(CompetitionPart, competitionID); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }

// confirmation prefers a JSON "message" field and falls back to the raw body.
func confirmation(body []byte) (message, id string) {
	var out domain.SubmitResponse
	if err := json.Unmarshal(body, &out); err == nil && out.Message != "" {
		return out.Message, out.ID
	}
	message = strings.TrimSpace(string(body))
	if message == "" {
		message = "submission accepted"
	}
	return message, ""
}

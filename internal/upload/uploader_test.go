package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/osvaldoandrade/repozip/internal/archive"
	"github.com/osvaldoandrade/repozip/internal/transport"
	"github.com/osvaldoandrade/repozip/pkg/domain"
)

func writeArtifact(t *testing.T, body string) domain.ArchiveArtifact {
	t.Helper()
	path := filepath.Join(t.TempDir(), "project.zip")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return domain.ArchiveArtifact{Path: path, Bytes: int64(len(body))}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestUpload_Success(t *testing.T) {
	art := writeArtifact(t, "PK-archive-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/submit" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer k-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get(DigestHeader) != archive.DigestBytes([]byte("PK-archive-bytes")) {
			t.Errorf("unexpected digest header %q", r.Header.Get(DigestHeader))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		f, hdr, err := r.FormFile(FilePart)
		if err != nil {
			t.Errorf("file part: %v", err)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		if string(b) != "PK-archive-bytes" || hdr.Filename != "project.zip" {
			t.Errorf("unexpected file part %q %q", hdr.Filename, b)
		}
		if ct := hdr.Header.Get("Content-Type"); ct != "application/zip" {
			t.Errorf("unexpected part content type %q", ct)
		}
		if r.FormValue(CompetitionPart) != "spring" {
			t.Errorf("expected competition part")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"sub-1","message":"Submission received","remaining_attempts":2}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, "k-1", nil).Upload(context.Background(), art, "spring")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Status != 200 || res.Message != "Submission received" || res.SubmissionID != "sub-1" {
		t.Fatalf("unexpected result %+v", res)
	}
	if !res.ArtifactRemoved || exists(art.Path) {
		t.Fatalf("artifact must be removed after a successful upload")
	}
}

func TestUpload_PlainTextConfirmation(t *testing.T) {
	art := writeArtifact(t, "x")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse: %v", err)
			return
		}
		if _, ok := r.MultipartForm.Value[CompetitionPart]; ok {
			t.Errorf("competition part must be omitted when empty")
		}
		_, _ = w.Write([]byte("thanks\n"))
	}))
	defer srv.Close()

	art.Digest = "blake3:precomputed"
	res, err := New(srv.URL, "k", nil).Upload(context.Background(), art, "")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.Message != "thanks" {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestUpload_RejectedStillCleansUp(t *testing.T) {
	art := writeArtifact(t, "x")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no attempts left", http.StatusForbidden)
	}))
	defer srv.Close()

	res, err := New(srv.URL, "k", nil).Upload(context.Background(), art, "")
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind != domain.KindServerRejected {
		t.Fatalf("expected ServerRejected, got %v", err)
	}
	if de.Status != http.StatusForbidden || de.Body != "no attempts left" {
		t.Fatalf("unexpected rejection %+v", de)
	}
	if exists(art.Path) || !res.ArtifactRemoved {
		t.Fatalf("artifact must be removed once a response was received")
	}
}

func TestUpload_UnreadableArtifactIsKept(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	defer srv.Close()

	_, err := New(srv.URL, "k", nil).Upload(context.Background(), domain.ArchiveArtifact{Path: filepath.Join(t.TempDir(), "missing.zip")}, "")
	if !domain.IsKind(err, domain.KindIO) {
		t.Fatalf("expected IoError, got %v", err)
	}
	if called {
		t.Fatalf("server must not be contacted")
	}
}

func TestUpload_NetworkFailureKeepsArtifact(t *testing.T) {
	art := writeArtifact(t, "x")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewWithClient(transport.New(url, "k", 0), nil).Upload(context.Background(), art, "")
	if !domain.IsKind(err, domain.KindNetwork) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if !exists(art.Path) {
		t.Fatalf("artifact must be kept when no response was received")
	}
}

func TestUpload_RemoveFailureIsReported(t *testing.T) {
	art := writeArtifact(t, "x")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	u := New(srv.URL, "k", nil)
	u.remove = func(string) error { return errors.New("busy") }
	res, err := u.Upload(context.Background(), art, "")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.ArtifactRemoved {
		t.Fatalf("expected ArtifactRemoved=false when removal fails")
	}
}

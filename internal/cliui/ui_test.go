package cliui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/osvaldoandrade/repozip/internal/pipeline"
	"github.com/osvaldoandrade/repozip/pkg/domain"

	"github.com/fatih/color"
)

func newTestUI(input string) (*UI, *bytes.Buffer, *bytes.Buffer) {
	color.NoColor = true
	var out, errOut bytes.Buffer
	return NewWithStreams(strings.NewReader(input), &out, &errOut), &out, &errOut
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		def   bool
		want  bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
		{"", false, false},
		{"maybe\n", true, false},
	}
	for _, tt := range tests {
		u, _, _ := newTestUI(tt.input)
		got, err := u.Confirm("Proceed?", tt.def)
		if err != nil {
			t.Fatalf("confirm %q: %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("confirm %q (def %v) = %v, want %v", tt.input, tt.def, got, tt.want)
		}
	}
}

func TestPromptAndSecret(t *testing.T) {
	u, out, _ := newTestUI("\nsecret-key\n")
	if got := u.Prompt("Server URL", "http://localhost:3000"); got != "http://localhost:3000" {
		t.Fatalf("expected default, got %q", got)
	}
	got, err := u.PromptSecret("API key")
	if err != nil || got != "secret-key" {
		t.Fatalf("secret = %q, %v", got, err)
	}
	if !strings.Contains(out.String(), "Server URL [http://localhost:3000]: ") {
		t.Fatalf("prompt not rendered: %q", out.String())
	}
}

func TestTaggedLines(t *testing.T) {
	u, out, errOut := newTestUI("")
	u.Okf("done %d", 1)
	u.Warnf("careful")
	u.Error(errors.New("boom"))
	if !strings.Contains(out.String(), "[OK] done 1") || !strings.Contains(out.String(), "[WARN] careful") {
		t.Fatalf("unexpected stdout: %q", out.String())
	}
	if strings.TrimSpace(errOut.String()) != "[ERROR] boom" {
		t.Fatalf("unexpected stderr: %q", errOut.String())
	}
}

func TestMaskToken(t *testing.T) {
	tests := map[string]string{
		"":                 "<unset>",
		"short":            "****",
		"abcd1234efgh5678": "abcd...5678",
	}
	for in, want := range tests {
		if got := MaskToken(in); got != want {
			t.Fatalf("MaskToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBytes(t *testing.T) {
	if got := Bytes(1500); got != "1.5 kB" {
		t.Fatalf("Bytes(1500) = %q", got)
	}
	if got := Bytes(-1); got != "0 B" {
		t.Fatalf("Bytes(-1) = %q", got)
	}
}

func TestReporterNotApproved(t *testing.T) {
	u, out, _ := newTestUI("")
	r := NewReporter(u)
	r.now = func() time.Time { return time.Unix(1000, 0) }
	d := domain.EligibilityDecision{Approved: true, RequiredFormat: "python", RemainingAttempts: 0}
	r.Notify(pipeline.Event{State: pipeline.StateCheckingEligibility})
	r.Notify(pipeline.Event{State: pipeline.StateAborted, Decision: &d})
	got := out.String()
	for _, want := range []string{"Remaining attempts: 0", "Last submission: never", "no remaining attempts"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
}

func TestReporterSubmitted(t *testing.T) {
	u, out, _ := newTestUI("")
	r := NewReporter(u)
	a := domain.ArchiveArtifact{Path: "/tmp/proj.zip", Files: 2, Directories: 1, Bytes: 2048, Digest: "blake3:ab"}
	res := domain.UploadResult{Status: 201, Message: "received", SubmissionID: "s-1"}
	r.Notify(pipeline.Event{State: pipeline.StateBuildingArchive, Format: domain.FormatPython, FormatSource: pipeline.SourceFlag})
	r.Notify(pipeline.Event{State: pipeline.StateUploading, Artifact: &a})
	r.Notify(pipeline.Event{State: pipeline.StateDone, Result: &res})
	got := out.String()
	for _, want := range []string{"format from flag", "2 files, 1 directories", "2.0 kB", "Submission accepted (201): received", "s-1"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
}

func TestReporterConfirm(t *testing.T) {
	u, out, _ := newTestUI("y\n")
	ok, err := NewReporter(u).Confirm(context.Background(), pipeline.Summary{
		Root:         "/work/proj",
		ArtifactPath: "/tmp/proj.zip",
		Format:       domain.FormatRepository,
		FormatSource: pipeline.SourceConfig,
		ServerURL:    "http://localhost:3000",
	})
	if err != nil || !ok {
		t.Fatalf("confirm = %v, %v", ok, err)
	}
	if !strings.Contains(out.String(), "repository (from config)") {
		t.Fatalf("summary missing format: %q", out.String())
	}
}

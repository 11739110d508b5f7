package update

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/osvaldoandrade/repozip/pkg/domain"
)

func TestNewer(t *testing.T) {
	tests := []struct {
		current, latest string
		want            bool
	}{
		{"v1.2.0", "v1.3.0", true},
		{"1.2.0", "1.2.1", true},
		{"v1.3.0", "v1.3.0", false},
		{"v2.0.0", "v1.9.9", false},
		{"dev", "v0.1.0", true},
		{"v1.0.0", "nightly", false},
		{"v1.0.0-rc.1", "v1.0.0", true},
	}
	for _, tt := range tests {
		t.Run(tt.current+"->"+tt.latest, func(t *testing.T) {
			if got := Newer(tt.current, tt.latest); got != tt.want {
				t.Fatalf("Newer(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
			}
		})
	}
}

func TestSelectAsset(t *testing.T) {
	assets := []Asset{
		{Name: "repozip_1.3.0_linux_amd64.tar.gz"},
		{Name: "repozip_1.3.0_linux_amd64.deb"},
		{Name: "repozip_1.3.0_linux_amd64.deb.sha256"},
		{Name: "repozip_1.3.0_linux_arm64.deb"},
		{Name: "repozip_1.3.0_macOS_arm64.pkg"},
		{Name: "repozip_1.3.0_windows_x86_64.msi"},
		{Name: "repozip_1.3.0_windows_x86_64.zip"},
		{Name: "checksums.txt"},
	}
	tests := []struct {
		goos, goarch string
		want         string
	}{
		{"linux", "amd64", "repozip_1.3.0_linux_amd64.deb"},
		{"linux", "arm64", "repozip_1.3.0_linux_arm64.deb"},
		{"darwin", "arm64", "repozip_1.3.0_macOS_arm64.pkg"},
		{"windows", "amd64", "repozip_1.3.0_windows_x86_64.msi"},
		{"darwin", "amd64", ""},
		{"plan9", "amd64", ""},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, ok := SelectAsset(assets, tt.goos, tt.goarch)
			if ok != (tt.want != "") || got.Name != tt.want {
				t.Fatalf("SelectAsset = %q (%v), want %q", got.Name, ok, tt.want)
			}
		})
	}
}

func TestFeedCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("feed request must not carry credentials")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"tag_name":"v1.4.0","assets":[{"name":"repozip_linux_amd64.deb","browser_download_url":"http://x/a.deb","size":10}]}`)
	}))
	defer srv.Close()

	avail, ok, err := NewFeed(srv.URL).Check(context.Background(), "v1.3.0", "linux", "amd64")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !ok || !avail.HasAsset || avail.Asset.URL != "http://x/a.deb" || avail.Release.TagName != "v1.4.0" {
		t.Fatalf("unexpected result: ok=%v %+v", ok, avail)
	}

	_, ok, err = NewFeed(srv.URL).Check(context.Background(), "v1.4.0", "linux", "amd64")
	if err != nil || ok {
		t.Fatalf("expected up to date, got ok=%v err=%v", ok, err)
	}
}

func TestFeedErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   domain.Kind
	}{
		{"rejected", http.StatusNotFound, "not found", domain.KindServerRejected},
		{"bad json", http.StatusOK, "<html>", domain.KindProtocol},
		{"no tag", http.StatusOK, `{"assets":[]}`, domain.KindProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()
			_, err := NewFeed(srv.URL).Latest(context.Background())
			if !domain.IsKind(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestDownload(t *testing.T) {
	payload := bytes.Repeat([]byte("z"), 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	var seen bytes.Buffer
	var total int64
	d := NewDownloader(t.TempDir(), func(n int64) io.Writer {
		total = n
		return &seen
	})
	path, err := d.Download(context.Background(), Asset{Name: "../../repozip.deb", URL: srv.URL + "/a", Size: int64(len(payload))})
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if filepath.Dir(path) != d.Dir || filepath.Base(path) != "repozip.deb" {
		t.Fatalf("asset escaped download dir: %s", path)
	}
	got, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("downloaded content mismatch: %v", err)
	}
	if seen.Len() != len(payload) || total != int64(len(payload)) {
		t.Fatalf("progress saw %d of %d", seen.Len(), total)
	}
}

func TestDownloadSizeMismatchRemovesFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "short")
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := NewDownloader(dir, nil).Download(context.Background(), Asset{Name: "a.deb", URL: srv.URL, Size: 99})
	if !domain.IsKind(err, domain.KindProtocol) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.deb")); !os.IsNotExist(err) {
		t.Fatalf("expected partial file removed, stat err=%v", err)
	}
}

func TestDownloadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()
	_, err := NewDownloader(t.TempDir(), nil).Download(context.Background(), Asset{Name: "a.deb", URL: srv.URL})
	var de *domain.Error
	if !errors.As(err, &de) || de.Kind != domain.KindServerRejected || de.Status != http.StatusGone {
		t.Fatalf("expected ServerRejected 410, got %v", err)
	}
}

func TestPlan(t *testing.T) {
	tests := []struct {
		path, goos string
		outcome    Outcome
		cmd        string
	}{
		{"/tmp/r.msi", "windows", Executed, "msiexec /i /tmp/r.msi"},
		{"/tmp/r.exe", "windows", Executed, "/tmp/r.exe"},
		{"/tmp/r.pkg", "darwin", Executed, "sudo installer -pkg /tmp/r.pkg -target /"},
		{"/tmp/r.dmg", "darwin", Executed, "open /tmp/r.dmg"},
		{"/tmp/r.deb", "linux", Executed, "sudo dpkg -i /tmp/r.deb"},
		{"/tmp/r.rpm", "linux", Executed, "sudo rpm -U /tmp/r.rpm"},
		{"/tmp/r.tar.gz", "linux", NeedsManualExtraction, ""},
		{"/tmp/r.zip", "windows", NeedsManualExtraction, ""},
		{"/tmp/r.deb", "darwin", Unsupported, ""},
		{"/tmp/r.msi", "linux", Unsupported, ""},
	}
	for _, tt := range tests {
		t.Run(tt.goos+filepath.Ext(tt.path), func(t *testing.T) {
			a := Plan(tt.path, tt.goos)
			if a.Outcome != tt.outcome || strings.Join(a.Command, " ") != tt.cmd {
				t.Fatalf("Plan = %s %q, want %s %q", a.Outcome, a.Command, tt.outcome, tt.cmd)
			}
		})
	}
}

type recordRunner struct {
	calls [][]string
	err   error
}

func (r *recordRunner) Run(_ context.Context, name string, args ...string) error {
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.err
}

func TestInstall(t *testing.T) {
	r := &recordRunner{}
	a, err := Install(context.Background(), r, "/tmp/r.deb", "linux")
	if err != nil || a.Outcome != Executed || len(r.calls) != 1 || r.calls[0][1] != "dpkg" {
		t.Fatalf("unexpected install: %+v %v %v", a, r.calls, err)
	}

	r = &recordRunner{}
	a, err = Install(context.Background(), r, "/tmp/r.tar.gz", "linux")
	if err != nil || a.Outcome != NeedsManualExtraction || len(r.calls) != 0 {
		t.Fatalf("archive must not run anything: %+v %v", a, r.calls)
	}

	r = &recordRunner{err: errors.New("exit status 1")}
	_, err = Install(context.Background(), r, "/tmp/r.msi", "windows")
	if !domain.IsKind(err, domain.KindIO) {
		t.Fatalf("expected IoError, got %v", err)
	}
}

package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/osvaldoandrade/repozip/pkg/domain"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

func readArchive(t *testing.T, path string) (files map[string][]byte, dirs []string, methods map[string]uint16) {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	files = map[string][]byte{}
	methods = map[string]uint16{}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			dirs = append(dirs, f.Name)
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		files[f.Name] = b
		methods[f.Name] = f.Method
	}
	sort.Strings(dirs)
	return files, dirs, methods
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestBuild_PythonScenario(t *testing.T) {
	root := filepath.Join(t.TempDir(), "project")
	writeTree(t, root, map[string]string{
		"a.py":           "print('a')\n",
		"README.md":      "# readme\n",
		".git/config":    "[core]\n",
		"submission.yml": "api_key: secret\n",
	})
	dest := filepath.Join(t.TempDir(), "project.zip")

	art, err := Build(context.Background(), Options{
		Root:        root,
		Dest:        dest,
		Format:      domain.FormatPython,
		Exclusions:  domain.ExclusionSet{".git"},
		Level:       6,
		ConfigNames: []string{"submission.yml"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	files, dirs, _ := readArchive(t, dest)
	if got := keys(files); len(got) != 1 || got[0] != "a.py" {
		t.Fatalf("expected only a.py, got %v", got)
	}
	if len(dirs) != 0 {
		t.Fatalf("expected no directory entries, got %v", dirs)
	}
	if art.Files != 1 || art.Path != dest || art.Format != domain.FormatPython {
		t.Fatalf("unexpected artifact: %+v", art)
	}
}

func TestBuild_PythonKeepsDirectories(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"docs/guide.md":    "guide",
		"pkg/mod.py":       "x = 1",
		"pkg/data.json":    "{}",
		"requirements.txt": "requests\n",
	})
	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	dest := filepath.Join(t.TempDir(), "out.zip")
	if _, err := Build(context.Background(), Options{Root: root, Dest: dest, Format: domain.FormatPython, Level: 1}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	files, dirs, _ := readArchive(t, dest)
	for name := range files {
		if !domain.FormatPython.Allows(name) {
			t.Errorf("file %q is not on the allow-list", name)
		}
	}
	if got := keys(files); strings.Join(got, ",") != "pkg/mod.py,requirements.txt" {
		t.Fatalf("unexpected files %v", got)
	}
	if strings.Join(dirs, ",") != "docs/,empty/,pkg/" {
		t.Fatalf("directories must be preserved, got %v", dirs)
	}
}

func TestBuild_DanglingSymlinksAreSkipped(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "print('a')\n"})
	missing := filepath.Join(root, "missing")
	for _, name := range []string{"old.zip", "notes.txt", "link.py"} {
		if err := os.Symlink(missing, filepath.Join(root, name)); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
	}

	dest := filepath.Join(t.TempDir(), "out.zip")
	art, err := Build(context.Background(), Options{
		Root:       root,
		Dest:       dest,
		Format:     domain.FormatPython,
		Exclusions: domain.NewExclusionSet(),
		Level:      6,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	files, _, _ := readArchive(t, dest)
	if got := keys(files); strings.Join(got, ",") != "a.py" || art.Files != 1 {
		t.Fatalf("expected only a.py, got %v (files=%d)", got, art.Files)
	}
}

func TestBuild_RepositoryRoundTrip(t *testing.T) {
	root := t.TempDir()
	src := map[string]string{
		"main.go":                 "package main\n",
		"internal/x/x.go":         "package x\n",
		"assets/logo.bin":         string(bytes.Repeat([]byte{0, 1, 2, 3, 255}, 4096)),
		".git/HEAD":               "ref: refs/heads/main\n",
		"node_modules/m/index.js": "module.exports = 1\n",
		"target/debug/app":        "ELF",
		"sub/.DS_Store":           "junk",
		"old.zip":                 "PK",
		"submission.yml":          "api_key: k\n",
	}
	writeTree(t, root, src)
	dest := filepath.Join(t.TempDir(), "repo.zip")

	art, err := Build(context.Background(), Options{
		Root:        root,
		Dest:        dest,
		Format:      domain.FormatRepository,
		Exclusions:  domain.NewExclusionSet(),
		Level:       9,
		ConfigNames: []string{"submission.yml"},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	files, dirs, methods := readArchive(t, dest)
	want := []string{"assets/logo.bin", "internal/x/x.go", "main.go"}
	if got := keys(files); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("files = %v, want %v", got, want)
	}
	for _, name := range want {
		if !bytes.Equal(files[name], []byte(src[name])) {
			t.Errorf("content mismatch for %s", name)
		}
		if methods[name] != zip.Deflate {
			t.Errorf("expected deflate for %s, got %d", name, methods[name])
		}
	}
	if strings.Join(dirs, ",") != "assets/,internal/,internal/x/,sub/" {
		t.Fatalf("unexpected dirs %v", dirs)
	}
	if art.Files != 3 || art.Directories != 4 {
		t.Fatalf("unexpected counts: %+v", art)
	}

	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if art.Bytes != info.Size() {
		t.Fatalf("artifact bytes %d != file size %d", art.Bytes, info.Size())
	}
	digest, err := DigestFile(dest)
	if err != nil {
		t.Fatalf("DigestFile: %v", err)
	}
	if art.Digest != digest || !ValidDigest(digest) {
		t.Fatalf("digest mismatch: %s vs %s", art.Digest, digest)
	}
}

func TestBuild_StoreLevel(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": strings.Repeat("a", 1000)})
	dest := filepath.Join(t.TempDir(), "s.zip")
	if _, err := Build(context.Background(), Options{Root: root, Dest: dest, Level: 0}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	files, _, methods := readArchive(t, dest)
	if methods["a.txt"] != zip.Store || len(files["a.txt"]) != 1000 {
		t.Fatalf("expected stored entry, got method %d", methods["a.txt"])
	}
}

func TestBuild_ReplacesStaleArtifact(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "fresh"})
	dest := filepath.Join(t.TempDir(), "stale.zip")
	if err := os.WriteFile(dest, []byte("not a zip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Build(context.Background(), Options{Root: root, Dest: dest, Level: 6}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	files, _, _ := readArchive(t, dest)
	if string(files["a.txt"]) != "fresh" {
		t.Fatalf("expected rebuilt archive")
	}
}

func TestBuild_SkipsDestinationInsideRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "x"})
	dest := filepath.Join(root, filepath.Base(root)+".bundle")
	if _, err := Build(context.Background(), Options{Root: root, Dest: dest, Level: 6}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	files, _, _ := readArchive(t, dest)
	if got := keys(files); len(got) != 1 || got[0] != "a.txt" {
		t.Fatalf("archive must not contain itself, got %v", got)
	}
}

func TestBuild_OnEntry(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"d/a.txt": "abc"})
	var seen []Entry
	_, err := Build(context.Background(), Options{
		Root: root, Dest: filepath.Join(t.TempDir(), "e.zip"), Level: 6,
		OnEntry: func(e Entry) { seen = append(seen, e) },
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(seen) != 2 || !seen[0].IsDir || seen[1].Name != filepath.Join("d", "a.txt") || seen[1].Size != 3 {
		t.Fatalf("unexpected entries %+v", seen)
	}
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(context.Background(), Options{Root: filepath.Join(t.TempDir(), "missing"), Dest: filepath.Join(t.TempDir(), "x.zip")})
	if !domain.IsKind(err, domain.KindIO) {
		t.Fatalf("expected IoError for missing root, got %v", err)
	}

	_, err = Build(context.Background(), Options{Root: t.TempDir(), Dest: filepath.Join(t.TempDir(), "x.zip"), Level: 10})
	if !domain.IsKind(err, domain.KindConfig) {
		t.Fatalf("expected ConfigError for bad level, got %v", err)
	}

	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err = Build(context.Background(), Options{Root: t.TempDir(), Dest: filepath.Join(blocker, "x.zip")})
	if !domain.IsKind(err, domain.KindIO) {
		t.Fatalf("expected IoError for unwritable destination, got %v", err)
	}
}

func TestBuild_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"secret.txt": "x"})
	if err := os.Chmod(filepath.Join(root, "secret.txt"), 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	_, err := Build(context.Background(), Options{Root: root, Dest: filepath.Join(t.TempDir(), "x.zip"), Level: 6})
	if !domain.IsKind(err, domain.KindIO) {
		t.Fatalf("expected IoError, got %v", err)
	}
}

func TestBuild_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Build(ctx, Options{Root: root, Dest: filepath.Join(t.TempDir(), "c.zip"), Level: 6}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestArtifactPath(t *testing.T) {
	root := filepath.Join(t.TempDir(), "my-project")
	got, err := ArtifactPath("/scratch", root)
	if err != nil {
		t.Fatalf("ArtifactPath: %v", err)
	}
	if got != filepath.Join("/scratch", "my-project.zip") {
		t.Fatalf("unexpected path %q", got)
	}
	got, _ = ArtifactPath("", root)
	if filepath.Dir(got) != filepath.Clean(os.TempDir()) {
		t.Fatalf("expected temp dir, got %q", got)
	}
}

func TestRemoveStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.zip")
	if err := RemoveStale(path); err != nil {
		t.Fatalf("missing file must not be an error: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := RemoveStale(path); err != nil {
		t.Fatalf("RemoveStale: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected file removed")
	}
}

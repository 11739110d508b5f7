// Package archive writes the filtered working tree into a single zip file.
package archive

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/osvaldoandrade/repozip/internal/filter"
	"github.com/osvaldoandrade/repozip/pkg/domain"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"
)

// Entry is reported to Options.OnEntry for every entry written.
type Entry struct {
	Name  string
	IsDir bool
	Size  int64
}

type Options struct {
	Root       string
	Dest       string
	Format     domain.Format
	Exclusions domain.ExclusionSet
	// Level is 0 (store) to 9 (best).
	Level int
	// ConfigNames are base names never archived.
	ConfigNames []string
	OnEntry     func(Entry)
}

// ArtifactPath returns {dir}/{base(root)}.zip. An empty dir means os.TempDir().
func ArtifactPath(dir, root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", domain.Wrap(domain.KindIO, "resolve root", err)
	}
	name := filepath.Base(abs)
	if name == string(filepath.Separator) || name == "." || name == "" {
		name = "archive"
	}
	if strings.TrimSpace(dir) == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, name+domain.ArchiveExtension), nil
}

// RemoveStale deletes path if it exists.
func RemoveStale(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.Wrap(domain.KindIO, "remove stale archive", err)
	}
	return nil
}

// Build walks opts.Root and writes every included entry into opts.Dest.
// Any file already at opts.Dest is replaced. A failed build may leave a
// partial file behind.
func Build(ctx context.Context, opts Options) (domain.ArchiveArtifact, error) {
	if opts.Level < 0 || opts.Level > 9 {
		return domain.ArchiveArtifact{}, domain.Errorf(domain.KindConfig, "build archive", "compression level %d out of range 0-9", opts.Level)
	}
	info, err := os.Stat(opts.Root)
	if err != nil {
		return domain.ArchiveArtifact{}, domain.Wrap(domain.KindIO, "read root", err)
	}
	if !info.IsDir() {
		return domain.ArchiveArtifact{}, domain.Errorf(domain.KindIO, "read root", "%s is not a directory", opts.Root)
	}
	if err := RemoveStale(opts.Dest); err != nil {
		return domain.ArchiveArtifact{}, err
	}
	if dir := filepath.Dir(opts.Dest); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return domain.ArchiveArtifact{}, domain.Wrap(domain.KindIO, "create archive dir", err)
		}
	}
	out, err := os.OpenFile(opts.Dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return domain.ArchiveArtifact{}, domain.Wrap(domain.KindIO, "create archive", err)
	}
	defer out.Close()

	hasher := blake3.New()
	counter := &countingWriter{}
	zw := zip.NewWriter(io.MultiWriter(out, hasher, counter))
	level := opts.Level
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	artifact := domain.ArchiveArtifact{Path: opts.Dest, Format: opts.Format}
	f := filter.New(opts.Format, opts.Exclusions, opts.ConfigNames...)
	absDest, _ := filepath.Abs(opts.Dest)

	walkErr := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return domain.Wrap(domain.KindIO, "walk "+path, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(opts.Root, path)
		if err != nil {
			return domain.Wrap(domain.KindIO, "relative path", err)
		}
		if abs, _ := filepath.Abs(path); abs == absDest {
			return nil
		}

		if decision, _ := f.Decide(rel, d.IsDir()); decision == filter.Exclude {
			if d.IsDir() && rel != "." {
				return filepath.SkipDir
			}
			return nil
		}

		// os.Stat follows symlinks; WalkDir itself does not descend into them.
		fi, err := os.Stat(path)
		if err != nil {
			if d.Type()&fs.ModeSymlink != 0 {
				return nil
			}
			return domain.Wrap(domain.KindIO, "stat "+rel, err)
		}

		switch {
		case d.IsDir():
			if err := writeDir(zw, rel, fi); err != nil {
				return err
			}
			artifact.Directories++
			notify(opts.OnEntry, Entry{Name: rel, IsDir: true})
		case fi.Mode().IsRegular():
			if err := writeFile(zw, path, rel, fi, level); err != nil {
				return err
			}
			artifact.Files++
			notify(opts.OnEntry, Entry{Name: rel, Size: fi.Size()})
		}
		return nil
	})
	if walkErr != nil {
		return domain.ArchiveArtifact{}, domain.Wrap(domain.KindIO, "build archive", walkErr)
	}
	if err := zw.Close(); err != nil {
		return domain.ArchiveArtifact{}, domain.Wrap(domain.KindIO, "finalize archive", err)
	}
	if err := out.Close(); err != nil {
		return domain.ArchiveArtifact{}, domain.Wrap(domain.KindIO, "close archive", err)
	}
	artifact.Bytes = counter.n
	artifact.Digest = formatDigest(hasher.Sum(nil))
	return artifact, nil
}

func writeDir(zw *zip.Writer, rel string, fi fs.FileInfo) error {
	hdr, err := zip.FileInfoHeader(fi)
	if err != nil {
		return domain.Wrap(domain.KindIO, "header "+rel, err)
	}
	hdr.Name = filepath.ToSlash(rel) + "/"
	hdr.Method = zip.Store
	if _, err := zw.CreateHeader(hdr); err != nil {
		return domain.Wrap(domain.KindIO, "write "+rel, err)
	}
	return nil
}

func writeFile(zw *zip.Writer, path, rel string, fi fs.FileInfo, level int) error {
	src, err := os.Open(path)
	if err != nil {
		return domain.Wrap(domain.KindIO, "open "+rel, err)
	}
	defer src.Close()

	hdr, err := zip.FileInfoHeader(fi)
	if err != nil {
		return domain.Wrap(domain.KindIO, "header "+rel, err)
	}
	hdr.Name = filepath.ToSlash(rel)
	hdr.Method = zip.Deflate
	if level == 0 {
		hdr.Method = zip.Store
	}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return domain.Wrap(domain.KindIO, "write "+rel, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return domain.Wrap(domain.KindIO, "copy "+rel, err)
	}
	return nil
}

func notify(fn func(Entry), e Entry) {
	if fn != nil {
		fn(e)
	}
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

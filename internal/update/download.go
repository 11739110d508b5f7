package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/osvaldoandrade/repozip/internal/transport"
	"github.com/osvaldoandrade/repozip/pkg/domain"
)

// ProgressFunc returns a writer that observes downloaded bytes. total is -1
// when the size is unknown.
type ProgressFunc func(total int64) io.Writer

type Downloader struct {
	// Dir receives downloaded assets; empty means os.TempDir().
	Dir      string
	Progress ProgressFunc
	// newClient builds the transport for an asset URL.
	newClient func(url string) *transport.Client
}

func NewDownloader(dir string, progress ProgressFunc) *Downloader {
	return &Downloader{Dir: dir, Progress: progress, newClient: func(u string) *transport.Client {
		return transport.New(u, "", 0)
	}}
}

// Download fetches asset into the download directory and returns its path.
// A partially written file is removed on failure.
func (d *Downloader) Download(ctx context.Context, asset Asset) (_ string, err error) {
	name := filepath.Base(strings.TrimSpace(asset.Name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", domain.Errorf(domain.KindProtocol, "download", "asset has no usable name")
	}
	dir := d.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	dest := filepath.Join(dir, name)

	client := d.newClient(asset.URL)
	req, err := client.NewRequest(ctx, http.MethodGet, "", nil, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/octet-stream")
	resp, err := client.Stream("download "+name, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", domain.Rejected("download "+name, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return "", domain.Wrap(domain.KindIO, "create "+dest, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = domain.Wrap(domain.KindIO, "close "+dest, cerr)
		}
		if err != nil {
			_ = os.Remove(dest)
		}
	}()

	var w io.Writer = f
	if d.Progress != nil {
		total := resp.ContentLength
		if total <= 0 && asset.Size > 0 {
			total = asset.Size
		}
		if total <= 0 {
			total = -1
		}
		w = io.MultiWriter(f, d.Progress(total))
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return "", domain.Wrap(domain.KindNetwork, "download "+name, err)
	}
	if asset.Size > 0 && n != asset.Size {
		return "", domain.Wrap(domain.KindProtocol, "download "+name, fmt.Errorf("got %d bytes, feed announced %d", n, asset.Size))
	}
	return dest, nil
}

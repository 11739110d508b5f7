package providers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactStore keeps received submission archives.
type ArtifactStore interface {
	// Put stores r under objectPath and returns its URL and size.
	Put(ctx context.Context, objectPath string, r io.Reader) (string, int64, error)
	Delete(ctx context.Context, objectPath string) error
}

type localArtifactStore struct {
	rootDir string
}

func NewLocalArtifactStore(rootDir string) ArtifactStore {
	return &localArtifactStore{rootDir: rootDir}
}

func (s *localArtifactStore) resolve(objectPath string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(objectPath))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}
	return filepath.Join(s.rootDir, clean), nil
}

func (s *localArtifactStore) Put(ctx context.Context, objectPath string, r io.Reader) (string, int64, error) {
	dst, err := s.resolve(objectPath)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", 0, err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", 0, err
	}
	abs, _ := filepath.Abs(dst)
	return "file://" + filepath.ToSlash(abs), n, nil
}

func (s *localArtifactStore) Delete(_ context.Context, objectPath string) error {
	dst, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

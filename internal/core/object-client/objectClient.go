package objectclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cfg "github.com/markdave123-py/askflow/internal/config"
	"github.com/markdave123-py/askflow/internal/core"
)

// NewObjectClient returns the upload store selected by FILE_STORAGE.
func NewObjectClient(ctx context.Context, c *cfg.Config) (core.ObjectClient, error) {
	switch c.FileBackend {
	case cfg.FileBackendS3:
		s3c, err := NewS3Client(ctx, c)
		if err != nil {
			return nil, err
		}
		return s3c, nil
	case cfg.FileBackendLocal, "":
		local, err := NewLocalStore(c.UploadDir)
		if err != nil {
			return nil, err
		}
		return local, nil
	default:
		return nil, fmt.Errorf("unknown file backend %q", c.FileBackend)
	}
}

// LocalStore keeps uploads as files under one directory.
// The reference returned by Save is the file path, e.g. "uploads/<uuid>.pdf".
type LocalStore struct {
	dir string
}

var _ core.ObjectClient = (*LocalStore)(nil)

func NewLocalStore(dir string) (*LocalStore, error) {
	if dir == "" {
		return nil, errors.New("upload directory not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: filepath.Clean(dir)}, nil
}

func (s *LocalStore) Save(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validKey(key); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, key)
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// Delete removes a file previously returned by Save. A missing file is not an error.
func (s *LocalStore) Delete(_ context.Context, ref string) error {
	rel, err := filepath.Rel(s.dir, filepath.Clean(ref))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return fmt.Errorf("refusing to delete %q outside %s", ref, s.dir)
	}
	if err := os.Remove(ref); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

func validKey(key string) error {
	if key == "" || key != filepath.Base(key) || key == "." || key == ".." {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}

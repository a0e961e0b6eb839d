package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// ImageStore holds avatar images by filename
type ImageStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Remove(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	// URL is where clients fetch the image from
	URL(name string) string
}

// FileStore keeps avatars in a fixed directory served under URLPrefix
type FileStore struct {
	Dir       string
	URLPrefix string
}

// NewFileStore creates dir if needed
func NewFileStore(dir, urlPrefix string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create pictures dir: %w", err)
	}
	return &FileStore{Dir: dir, URLPrefix: urlPrefix}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.Dir, filepath.Base(name)) // never escape the directory
}

func (s *FileStore) Put(_ context.Context, name string, data []byte, _ string) error {
	return os.WriteFile(s.path(name), data, 0o644)
}

func (s *FileStore) Remove(_ context.Context, name string) error {
	return os.Remove(s.path(name))
}

func (s *FileStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *FileStore) URL(name string) string {
	return path.Join(s.URLPrefix, name)
}

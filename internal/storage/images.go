package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrUnsupportedImage = errors.New("unsupported image type")

// ImageStore persists uploaded profile images and hands back the stored
// reference (a bare filename, resolved to a URL only by the HTTP layer).
type ImageStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
}

var allowedExts = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".gif":  {},
	".webp": {},
}

// DiskStore writes images into a local directory served statically
// under /uploads.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	err := os.MkdirAll(dir, 0o755)

	if err != nil {
		return nil, err
	}

	return &DiskStore{dir: dir}, nil
}

func (s *DiskStore) Save(ctx context.Context, originalName string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(originalName))

	if _, ok := allowedExts[ext]; !ok {
		return "", ErrUnsupportedImage
	}

	// client-supplied names never touch the filesystem
	name := uuid.NewString() + ext

	f, err := os.Create(filepath.Join(s.dir, name))

	if err != nil {
		return "", err
	}

	_, err = io.Copy(f, r)

	closeErr := f.Close()

	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return "", err
	}

	if closeErr != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return "", closeErr
	}

	return name, nil
}

func (s *DiskStore) Dir() string {
	return s.dir
}

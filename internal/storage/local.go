package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// LocalFS implements FS on the local filesystem rooted at Base.
type LocalFS struct {
	Base string
}

// NewLocalFS returns a LocalFS rooted at base.
func NewLocalFS(base string) *LocalFS { return &LocalFS{Base: base} }

func (l *LocalFS) abs(path string) string {
	return filepath.Join(l.Base, filepath.FromSlash(path))
}

// RemoveAll implements FS.
func (l *LocalFS) RemoveAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.RemoveAll(l.abs(path))
}

// MkdirAll implements FS.
func (l *LocalFS) MkdirAll(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.MkdirAll(l.abs(path), 0o755)
}

// Create implements FS.
func (l *LocalFS) Create(ctx context.Context, path string) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Create(l.abs(path))
}

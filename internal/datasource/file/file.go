// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"starlake/internal/datasource"
)

// Lister enumerates local files under Root matching a glob pattern.
type Lister struct {
	Root string
}

// NewLister returns a Lister rooted at root.
func NewLister(root string) *Lister { return &Lister{Root: root} }

// List implements datasource.Lister via filepath.Glob. Results are sorted so
// runs enumerate files in a stable order.
func (l *Lister) List(ctx context.Context, pattern string) ([]datasource.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(l.Root, filepath.FromSlash(pattern)))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(matches)
	out := make([]datasource.Source, len(matches))
	for i, m := range matches {
		out[i] = &Local{path: m}
	}
	return out, nil
}

// Local is a filesystem data source that opens files from the local disk.
type Local struct{ path string }

// NewLocal returns a new Local data source bound to the provided path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Name implements datasource.Source.
func (l *Local) Name() string { return l.path }

// Open opens the configured path for reading.
//
// If the context is already canceled at the time of the call, Open returns
// the context error without touching the filesystem. Filesystem errors are
// wrapped with the path while still permitting errors.Is checks (e.g.
// errors.Is(err, os.ErrNotExist)).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

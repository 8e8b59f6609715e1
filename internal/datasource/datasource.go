// Package datasource abstracts where input files come from. A Lister
// enumerates the files matching a glob pattern under a configured root; each
// match is a Source that can be opened for reading. Implementations exist
// for the local filesystem and S3.
package datasource

import (
	"context"
	"io"
)

// Source is one readable input file or object.
type Source interface {
	// Name identifies the source for logs and errors (path or object key).
	Name() string

	// Open returns a reader over the source's bytes.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Lister enumerates sources matching a slash-separated glob pattern
// (filepath.Match syntax per path element) relative to the lister's root.
type Lister interface {
	List(ctx context.Context, pattern string) ([]Source, error)
}

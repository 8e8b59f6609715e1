// Package storage contains sink-agnostic contracts for the pipeline's output
// tables: the table descriptor, the Hive-style partition component, and the
// filesystem abstraction the parquet writer runs on.
//
// The only sink in this system is a partitioned parquet layout with full
// overwrite semantics; backends differ in where the bytes land (local disk,
// S3), not in layout.
package storage

import (
	"context"
	"io"
)

// Table describes one logical output table.
type Table struct {
	// Name is the table directory name, e.g. "songs".
	Name string

	// PartitionBy lists the partition column names in path order. Empty
	// means the table is written as a single unpartitioned file.
	PartitionBy []string
}

// Partition is one key=value component of a partition path.
type Partition struct {
	Column string
	Value  string
}

// FS abstracts the destination filesystem so the writer does not care
// whether it is writing to local disk or an object store. Paths are
// slash-separated and relative to the output root.
type FS interface {
	// RemoveAll deletes the path and everything below it. A missing path is
	// not an error; this is what gives table writes overwrite semantics.
	RemoveAll(ctx context.Context, path string) error

	// MkdirAll creates the directory path. Object stores with no real
	// directories may implement it as a no-op.
	MkdirAll(ctx context.Context, path string) error

	// Create opens the path for writing, truncating any previous content.
	Create(ctx context.Context, path string) (io.WriteCloser, error)
}

// Aborter is implemented by writers returned from FS.Create that can discard
// a partially written file instead of committing it. Object-store writers
// need this: closing a pipe-backed upload cleanly would commit a truncated
// object.
type Aborter interface {
	Abort() error
}

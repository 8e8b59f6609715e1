// Package parquet implements the partitioned parquet table writer.
//
// Layout per table, mirroring the warehouse convention downstream jobs
// expect:
//
//	{root}/{table}/{table}.parquet/part-00000.parquet              (unpartitioned)
//	{root}/{table}/{table}.parquet/year=2018/month=11/part-00000.parquet
//
// Every write is a full overwrite: the table directory is removed first, so
// re-running the pipeline replaces each table wholesale. A failed write
// aborts that table only; tables already written in the run stay in place.
package parquet

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/xitongsys/parquet-go/writer"
	"golang.org/x/sync/errgroup"

	"starlake/internal/storage"
)

// rowGroupParallelism passed to parquet-go per file.
const rowGroupParallelism = 4

// Writer writes tables onto an FS under Root with bounded concurrency
// across partition files.
type Writer struct {
	FS      storage.FS
	Root    string
	Workers int
}

// NewWriter constructs a Writer. workers < 1 serializes partition writes.
func NewWriter(fs storage.FS, root string, workers int) *Writer {
	if workers < 1 {
		workers = 1
	}
	return &Writer{FS: fs, Root: root, Workers: workers}
}

// Write materializes rows as the named table, splitting them into Hive-style
// partition directories according to partitionOf. partitionOf must return
// values aligned with table.PartitionBy; for unpartitioned tables it is nil.
//
// The generic parameter is the parquet-tagged row struct; the file schema is
// derived from its tags.
func Write[T any](ctx context.Context, w *Writer, table storage.Table, rows []T, partitionOf func(T) []storage.Partition) error {
	start := time.Now()

	tableDir := w.Root + "/" + table.Name
	if err := w.FS.RemoveAll(ctx, tableDir); err != nil {
		return fmt.Errorf("write %s: clear destination: %w", table.Name, err)
	}
	baseDir := tableDir + "/" + table.Name + ".parquet"

	groups, order, err := groupByPartition(table, rows, partitionOf)
	if err != nil {
		return fmt.Errorf("write %s: %w", table.Name, err)
	}
	if len(order) == 0 {
		if err := w.FS.MkdirAll(ctx, baseDir); err != nil {
			return fmt.Errorf("write %s: %w", table.Name, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.Workers)
	for _, rel := range order {
		rel := rel
		part := groups[rel]
		g.Go(func() error {
			dir := baseDir
			if rel != "" {
				dir = baseDir + "/" + rel
			}
			if err := writePartFile(gctx, w.FS, dir, part); err != nil {
				return fmt.Errorf("write %s: partition %q: %w", table.Name, rel, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	rps := float64(0)
	if elapsed > 0 {
		rps = float64(len(rows)) / elapsed.Seconds()
	}
	log.Printf("writer: table=%s rows=%d partitions=%d rps=%.0f elapsed=%s",
		table.Name, len(rows), len(order), rps, elapsed.Truncate(time.Millisecond))
	return nil
}

// groupByPartition splits rows into partition-relative paths. The empty
// string keys the unpartitioned (or empty) group. Order is sorted for stable
// logging and tests; it carries no output semantics.
func groupByPartition[T any](table storage.Table, rows []T, partitionOf func(T) []storage.Partition) (map[string][]T, []string, error) {
	groups := map[string][]T{}
	if partitionOf == nil || len(table.PartitionBy) == 0 {
		groups[""] = rows
		return groups, []string{""}, nil
	}
	for _, row := range rows {
		parts := partitionOf(row)
		if len(parts) != len(table.PartitionBy) {
			return nil, nil, fmt.Errorf("partition values %d != partition columns %d", len(parts), len(table.PartitionBy))
		}
		elems := make([]string, len(parts))
		for i, p := range parts {
			if p.Column != table.PartitionBy[i] {
				return nil, nil, fmt.Errorf("partition column %q out of order, want %q", p.Column, table.PartitionBy[i])
			}
			elems[i] = p.Column + "=" + p.Value
		}
		rel := strings.Join(elems, "/")
		groups[rel] = append(groups[rel], row)
	}
	// A partitioned table with zero rows yields no groups at all: a part
	// file directly under {table}.parquet would be a layout no non-empty run
	// produces. The caller materializes the empty base directory instead.
	order := make([]string, 0, len(groups))
	for rel := range groups {
		order = append(order, rel)
	}
	sort.Strings(order)
	return groups, order, nil
}

// writePartFile writes one partition's rows as a single parquet file.
func writePartFile[T any](ctx context.Context, fs storage.FS, dir string, rows []T) error {
	if err := fs.MkdirAll(ctx, dir); err != nil {
		return err
	}
	fd, err := fs.Create(ctx, dir+"/part-00000.parquet")
	if err != nil {
		return err
	}

	pw, err := writer.NewParquetWriterFromWriter(fd, new(T), rowGroupParallelism)
	if err != nil {
		discard(fd)
		return err
	}
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			discard(fd)
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		discard(fd)
		return err
	}
	return fd.Close()
}

// discard tears down a failed partition file without committing it. Writers
// that can abort (object-store uploads) do so; plain files are just closed,
// since the next run's overwrite removes them.
func discard(fd io.WriteCloser) {
	if a, ok := fd.(storage.Aborter); ok {
		a.Abort()
		return
	}
	fd.Close()
}

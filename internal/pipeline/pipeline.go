// Package pipeline orchestrates a full lake build: read the two raw
// datasets, derive the five output tables, and write each as partitioned
// parquet.
//
// The build runs in two phases matching the provenance of the tables. The
// song phase reads the catalog and writes songs and artists. The log phase
// reads the activity logs, keeps the play events, and writes users, time,
// and songplays; the fact table joins the play events back against the raw
// song catalog, so the catalog dataset is held across both phases.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"starlake/internal/dataset"
	"starlake/internal/datasource"
	"starlake/internal/extract"
	"starlake/internal/metrics"
	jsonparser "starlake/internal/parser/json"
	"starlake/internal/schema"
	"starlake/internal/storage"
	"starlake/internal/storage/parquet"
	"starlake/pkg/records"
)

// Table descriptors for the five outputs. Partition columns are materialized
// both in the directory layout and in the row data.
var (
	SongsTable     = storage.Table{Name: "songs", PartitionBy: []string{"year", "artist_id"}}
	ArtistsTable   = storage.Table{Name: "artists"}
	UsersTable     = storage.Table{Name: "users"}
	TimeTable      = storage.Table{Name: "time", PartitionBy: []string{"year", "month"}}
	SongplaysTable = storage.Table{Name: "songplays", PartitionBy: []string{"year", "month"}}
)

// Pipeline holds the wiring for one run.
type Pipeline struct {
	Job      string
	Input    datasource.Lister
	SongGlob string
	LogGlob  string
	Writer   *parquet.Writer
	EC       *dataset.Context
}

// Run executes the full build. Each table stage is timed and counted through
// the metrics backend; the first failing stage aborts the run, leaving
// tables written by earlier stages in place.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()

	songs, err := p.readDataset(ctx, "songs", p.SongGlob)
	if err != nil {
		return err
	}
	if err := p.runSongPhase(ctx, songs); err != nil {
		return err
	}

	logs, err := p.readDataset(ctx, "logs", p.LogGlob)
	if err != nil {
		return err
	}
	if err := p.runLogPhase(ctx, logs, songs); err != nil {
		return err
	}

	log.Printf("pipeline: job=%s completed in %s", p.Job, time.Since(start).Truncate(time.Millisecond))
	return nil
}

// runSongPhase derives and writes the tables that come from the song catalog
// alone: songs and artists.
func (p *Pipeline) runSongPhase(ctx context.Context, songs *dataset.Dataset) error {
	err := buildTable(ctx, p, SongsTable, func() ([]schema.Song, error) {
		return extract.SongTable(p.EC, songs)
	}, func(s schema.Song) []storage.Partition {
		return []storage.Partition{
			{Column: "year", Value: strconv.Itoa(int(s.Year))},
			{Column: "artist_id", Value: s.ArtistID},
		}
	})
	if err != nil {
		return err
	}

	return buildTable(ctx, p, ArtistsTable, func() ([]schema.Artist, error) {
		return extract.ArtistTable(p.EC, songs)
	}, nil)
}

// runLogPhase derives and writes the tables that come from the activity
// logs: users, time, and the songplays fact (joined against the raw
// catalog).
func (p *Pipeline) runLogPhase(ctx context.Context, logs, songs *dataset.Dataset) error {
	plays := extract.FilterPlays(p.EC, logs)

	err := buildTable(ctx, p, UsersTable, func() ([]schema.User, error) {
		return extract.UserTable(p.EC, plays)
	}, nil)
	if err != nil {
		return err
	}

	err = buildTable(ctx, p, TimeTable, func() ([]schema.TimeRow, error) {
		return extract.TimeTable(p.EC, plays)
	}, func(tr schema.TimeRow) []storage.Partition {
		return yearMonth(tr.Year, tr.Month)
	})
	if err != nil {
		return err
	}

	return buildTable(ctx, p, SongplaysTable, func() ([]schema.Songplay, error) {
		return extract.SongplayTable(p.EC, plays, songs)
	}, func(sp schema.Songplay) []storage.Partition {
		return yearMonth(sp.Year, sp.Month)
	})
}

func yearMonth(year, month int32) []storage.Partition {
	return []storage.Partition{
		{Column: "year", Value: strconv.Itoa(int(year))},
		{Column: "month", Value: strconv.Itoa(int(month))},
	}
}

// buildTable runs one table stage end to end: derive the rows, write the
// table, record the stage outcome.
func buildTable[T any](ctx context.Context, p *Pipeline, table storage.Table, derive func() ([]T, error), partitionOf func(T) []storage.Partition) error {
	start := time.Now()
	rows, err := derive()
	if err == nil {
		err = parquet.Write(ctx, p.Writer, table, rows, partitionOf)
	}
	metrics.RecordStage(p.Job, table.Name, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("pipeline: %s: %w", table.Name, err)
	}
	metrics.RecordRows(p.Job, table.Name, int64(len(rows)))
	return nil
}

// readDataset lists the files matching pattern and decodes them in parallel,
// one partition per file. A malformed file fails the whole read.
func (p *Pipeline) readDataset(ctx context.Context, name, pattern string) (*dataset.Dataset, error) {
	start := time.Now()
	ds, files, err := p.decodeAll(ctx, pattern)
	metrics.RecordStage(p.Job, "read_"+name, err, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("pipeline: read %s: %w", name, err)
	}
	metrics.RecordFiles(p.Job, name, int64(files))
	log.Printf("pipeline: dataset=%s files=%d rows=%d elapsed=%s",
		name, files, ds.Len(), time.Since(start).Truncate(time.Millisecond))
	return ds, nil
}

func (p *Pipeline) decodeAll(ctx context.Context, pattern string) (*dataset.Dataset, int, error) {
	srcs, err := p.Input.List(ctx, pattern)
	if err != nil {
		return nil, 0, err
	}

	parts := make([][]records.Record, len(srcs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.EC.Workers)
	for i, src := range srcs {
		i, src := i, src
		g.Go(func() error {
			rc, err := src.Open(gctx)
			if err != nil {
				return err
			}
			defer rc.Close()
			recs, err := jsonparser.DecodeAll(rc)
			if err != nil {
				return fmt.Errorf("%s: %w", src.Name(), err)
			}
			parts[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return dataset.FromPartitions(parts), len(srcs), nil
}

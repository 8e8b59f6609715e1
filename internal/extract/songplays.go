package extract

import (
	"fmt"

	"starlake/internal/dataset"
	"starlake/internal/schema"
)

// SongplayTable builds the fact table by joining play events against the raw
// song catalog (not the deduplicated dimension) on exact, case-sensitive
// title and artist-name equality. Events without a catalog match are
// silently dropped; that fragility is part of the table's contract, so no
// normalization of any kind is applied to the join keys.
//
// After the join, exact duplicate rows are removed and each surviving row
// gets a surrogate songplay_id: unique for the run, monotonic only within a
// partition, with gaps allowed.
func SongplayTable(ec *dataset.Context, plays, songs *dataset.Dataset) ([]schema.Songplay, error) {
	joined := plays.Join(ec, songs,
		[]string{"song", "artist"},
		[]string{"title", "artist_name"},
	)
	distinct := joined.Distinct(ec)
	withIDs := distinct.AssignIDs(ec, "songplay_id")

	projected, err := withIDs.Map(ec, schema.ProjectSongplay)
	if err != nil {
		return nil, fmt.Errorf("songplays: %w", err)
	}
	return schema.SongplayRows(projected.Collect()), nil
}

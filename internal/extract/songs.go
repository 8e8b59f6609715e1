// Package extract implements the three transformation stages of the
// pipeline: the song-catalog extractor, the activity-log extractor, and the
// songplay joiner. Each stage is a synchronous batch step over a
// dataset.Dataset; a schema violation on any record fails the stage.
package extract

import (
	"fmt"

	"starlake/internal/dataset"
	"starlake/internal/schema"
)

// SongTable projects the songs dimension from raw song records and
// deduplicates it by song_id. Which duplicate survives is unspecified.
func SongTable(ec *dataset.Context, songs *dataset.Dataset) ([]schema.Song, error) {
	projected, err := songs.Map(ec, schema.ProjectSong)
	if err != nil {
		return nil, fmt.Errorf("songs: %w", err)
	}
	deduped := projected.DistinctByKey(ec, "song_id")
	return schema.SongRows(deduped.Collect()), nil
}

// ArtistTable projects the artists dimension from raw song records and
// deduplicates it by artist_id, independently of the songs dedup.
func ArtistTable(ec *dataset.Context, songs *dataset.Dataset) ([]schema.Artist, error) {
	projected, err := songs.Map(ec, schema.ProjectArtist)
	if err != nil {
		return nil, fmt.Errorf("artists: %w", err)
	}
	deduped := projected.DistinctByKey(ec, "artist_id")
	return schema.ArtistRows(deduped.Collect()), nil
}

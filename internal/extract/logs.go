package extract

import (
	"fmt"

	"starlake/internal/dataset"
	"starlake/internal/schema"
	"starlake/pkg/records"
)

// NextSongPage is the page value identifying a play event. Every other page
// (Home, Login, Logout, ...) is navigation noise and never reaches any
// output table.
const NextSongPage = "NextSong"

// FilterPlays retains only play events from raw activity log records.
func FilterPlays(ec *dataset.Context, logs *dataset.Dataset) *dataset.Dataset {
	return logs.Filter(ec, func(r records.Record) bool {
		return r["page"] == NextSongPage
	})
}

// UserTable projects the users dimension from play events and deduplicates
// it by user_id. Which of a user's rows survives (e.g. their free vs paid
// level) is unspecified.
func UserTable(ec *dataset.Context, plays *dataset.Dataset) ([]schema.User, error) {
	projected, err := plays.Map(ec, schema.ProjectUser)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	deduped := projected.DistinctByKey(ec, "user_id")
	return schema.UserRows(deduped.Collect()), nil
}

// TimeTable derives the time dimension from play events: one row per event,
// not deduplicated, so simultaneous plays produce duplicate start_time rows
// by design.
func TimeTable(ec *dataset.Context, plays *dataset.Dataset) ([]schema.TimeRow, error) {
	projected, err := plays.Map(ec, schema.ProjectTime)
	if err != nil {
		return nil, fmt.Errorf("time: %w", err)
	}
	return schema.TimeRows(projected.Collect()), nil
}

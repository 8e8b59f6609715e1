package schema

import (
	"fmt"

	"starlake/pkg/records"
)

// Projections turn raw parsed records into records holding the target column
// names with typed values. They are strict: a missing or mistyped required
// field returns the underlying *records.FieldError and the caller fails the
// whole extraction. No coercion beyond json.Number conversion is performed.

// ProjectSong selects the songs dimension columns from a raw song record.
func ProjectSong(r records.Record) (records.Record, error) {
	songID, err := r.String("song_id")
	if err != nil {
		return nil, err
	}
	title, err := r.String("title")
	if err != nil {
		return nil, err
	}
	artistID, err := r.String("artist_id")
	if err != nil {
		return nil, err
	}
	year, err := r.Int64("year")
	if err != nil {
		return nil, err
	}
	duration, err := r.Float64("duration")
	if err != nil {
		return nil, err
	}
	return records.Record{
		"song_id":   songID,
		"title":     title,
		"artist_id": artistID,
		"year":      year,
		"duration":  duration,
	}, nil
}

// ProjectArtist selects the artists dimension columns from a raw song
// record, renaming artist_* source fields to their target names. Location
// and coordinates are nullable.
func ProjectArtist(r records.Record) (records.Record, error) {
	artistID, err := r.String("artist_id")
	if err != nil {
		return nil, err
	}
	name, err := r.String("artist_name")
	if err != nil {
		return nil, err
	}
	location, err := r.OptString("artist_location")
	if err != nil {
		return nil, err
	}
	latitude, err := r.OptFloat64("artist_latitude")
	if err != nil {
		return nil, err
	}
	longitude, err := r.OptFloat64("artist_longitude")
	if err != nil {
		return nil, err
	}
	return records.Record{
		"artist_id": artistID,
		"name":      name,
		"location":  location,
		"latitude":  latitude,
		"longitude": longitude,
	}, nil
}

// ProjectUser selects the users dimension columns from a play event,
// renaming camelCase log fields to snake_case.
func ProjectUser(r records.Record) (records.Record, error) {
	out := records.Record{}
	for src, dst := range map[string]string{
		"userId":    "user_id",
		"firstName": "first_name",
		"lastName":  "last_name",
		"gender":    "gender",
		"level":     "level",
	} {
		v, err := r.String(src)
		if err != nil {
			return nil, err
		}
		out[dst] = v
	}
	return out, nil
}

// ProjectTime derives the time dimension columns from a play event's ts
// field (epoch milliseconds).
func ProjectTime(r records.Record) (records.Record, error) {
	ts, err := r.Int64("ts")
	if err != nil {
		return nil, err
	}
	p := DeriveTime(ts)
	return records.Record{
		"start_time": p.StartMillis,
		"hour":       p.Hour,
		"day":        p.Day,
		"week":       p.Week,
		"month":      p.Month,
		"year":       p.Year,
		"weekday":    p.Weekday,
	}, nil
}

// ProjectSongplay selects the fact columns from a joined event/catalog
// record. The surrogate songplay_id must already be assigned; month and year
// are derived from the event timestamp.
func ProjectSongplay(r records.Record) (records.Record, error) {
	id, ok := r["songplay_id"].(int64)
	if !ok {
		return nil, fmt.Errorf("songplay projection: surrogate key not assigned")
	}
	ts, err := r.Int64("ts")
	if err != nil {
		return nil, err
	}
	out := records.Record{
		"songplay_id": id,
	}
	p := DeriveTime(ts)
	out["start_time"] = p.StartMillis
	out["month"] = p.Month
	out["year"] = p.Year
	for src, dst := range map[string]string{
		"userId":    "user_id",
		"level":     "level",
		"song_id":   "song_id",
		"artist_id": "artist_id",
		"location":  "location",
		"userAgent": "user_agent",
	} {
		v, err := r.String(src)
		if err != nil {
			return nil, err
		}
		out[dst] = v
	}
	sessionID, err := r.Int64("sessionId")
	if err != nil {
		return nil, err
	}
	out["session_id"] = sessionID
	return out, nil
}

// Row builders convert projected records into the typed parquet rows. They
// assume projection has already run; a type mismatch here is a programming
// error, not input data.

// SongRows converts projected song records.
func SongRows(recs []records.Record) []Song {
	out := make([]Song, len(recs))
	for i, r := range recs {
		out[i] = Song{
			SongID:   r["song_id"].(string),
			Title:    r["title"].(string),
			ArtistID: r["artist_id"].(string),
			Year:     int32(r["year"].(int64)),
			Duration: r["duration"].(float64),
		}
	}
	return out
}

// ArtistRows converts projected artist records.
func ArtistRows(recs []records.Record) []Artist {
	out := make([]Artist, len(recs))
	for i, r := range recs {
		out[i] = Artist{
			ArtistID:  r["artist_id"].(string),
			Name:      r["name"].(string),
			Location:  r["location"].(*string),
			Latitude:  r["latitude"].(*float64),
			Longitude: r["longitude"].(*float64),
		}
	}
	return out
}

// UserRows converts projected user records.
func UserRows(recs []records.Record) []User {
	out := make([]User, len(recs))
	for i, r := range recs {
		out[i] = User{
			UserID:    r["user_id"].(string),
			FirstName: r["first_name"].(string),
			LastName:  r["last_name"].(string),
			Gender:    r["gender"].(string),
			Level:     r["level"].(string),
		}
	}
	return out
}

// TimeRows converts projected time records.
func TimeRows(recs []records.Record) []TimeRow {
	out := make([]TimeRow, len(recs))
	for i, r := range recs {
		out[i] = TimeRow{
			StartTime: r["start_time"].(int64),
			Hour:      r["hour"].(int32),
			Day:       r["day"].(int32),
			Week:      r["week"].(int32),
			Month:     r["month"].(int32),
			Year:      r["year"].(int32),
			Weekday:   r["weekday"].(int32),
		}
	}
	return out
}

// SongplayRows converts projected songplay records.
func SongplayRows(recs []records.Record) []Songplay {
	out := make([]Songplay, len(recs))
	for i, r := range recs {
		out[i] = Songplay{
			SongplayID: r["songplay_id"].(int64),
			StartTime:  r["start_time"].(int64),
			Month:      r["month"].(int32),
			Year:       r["year"].(int32),
			UserID:     r["user_id"].(string),
			Level:      r["level"].(string),
			SongID:     r["song_id"].(string),
			ArtistID:   r["artist_id"].(string),
			SessionID:  r["session_id"].(int64),
			Location:   r["location"].(string),
			UserAgent:  r["user_agent"].(string),
		}
	}
	return out
}

// Package schema defines the star-schema output rows and the typed
// projections that build them from raw records.
//
// Each row struct carries parquet tags consumed by the partitioned writer.
// Nullable catalog columns (artist location and coordinates) are pointer
// fields written as OPTIONAL; everything else is REQUIRED.
package schema

import "time"

// Song is one row of the songs dimension. Partitioned by (year, artist_id).
type Song struct {
	SongID   string  `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Title    string  `parquet:"name=title, type=BYTE_ARRAY, convertedtype=UTF8"`
	ArtistID string  `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Year     int32   `parquet:"name=year, type=INT32"`
	Duration float64 `parquet:"name=duration, type=DOUBLE"`
}

// Artist is one row of the artists dimension. Unpartitioned.
type Artist struct {
	ArtistID  string   `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Name      string   `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Location  *string  `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
	Latitude  *float64 `parquet:"name=latitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	Longitude *float64 `parquet:"name=longitude, type=DOUBLE, repetitiontype=OPTIONAL"`
}

// User is one row of the users dimension. Unpartitioned.
type User struct {
	UserID    string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	FirstName string `parquet:"name=first_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	LastName  string `parquet:"name=last_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Gender    string `parquet:"name=gender, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level     string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// TimeRow is one row of the time dimension: one per retained play event,
// duplicates by start_time preserved. Partitioned by (year, month).
type TimeRow struct {
	StartTime int64 `parquet:"name=start_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Hour      int32 `parquet:"name=hour, type=INT32"`
	Day       int32 `parquet:"name=day, type=INT32"`
	Week      int32 `parquet:"name=week, type=INT32"`
	Month     int32 `parquet:"name=month, type=INT32"`
	Year      int32 `parquet:"name=year, type=INT32"`
	Weekday   int32 `parquet:"name=weekday, type=INT32"`
}

// Songplay is one row of the fact table. Partitioned by (year, month).
type Songplay struct {
	SongplayID int64  `parquet:"name=songplay_id, type=INT64"`
	StartTime  int64  `parquet:"name=start_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Month      int32  `parquet:"name=month, type=INT32"`
	Year       int32  `parquet:"name=year, type=INT32"`
	UserID     string `parquet:"name=user_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Level      string `parquet:"name=level, type=BYTE_ARRAY, convertedtype=UTF8"`
	SongID     string `parquet:"name=song_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ArtistID   string `parquet:"name=artist_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	SessionID  int64  `parquet:"name=session_id, type=INT64"`
	Location   string `parquet:"name=location, type=BYTE_ARRAY, convertedtype=UTF8"`
	UserAgent  string `parquet:"name=user_agent, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// TimeParts holds the calendar fields derived from an event timestamp.
type TimeParts struct {
	StartMillis int64
	Hour        int32
	Day         int32
	Week        int32
	Month       int32
	Year        int32
	Weekday     int32
}

// DeriveTime converts an epoch-millisecond event timestamp into the time
// dimension fields.
//
// The millisecond value is truncated to whole seconds (integer division by
// 1000), matching the upstream logs' second-granularity start_time. All
// calendar fields are computed in UTC; the host zone is never consulted.
// Week is the ISO week-of-year. Weekday uses the 1=Sunday..7=Saturday
// convention of the reference warehouse.
func DeriveTime(tsMillis int64) TimeParts {
	sec := tsMillis / 1000
	t := time.Unix(sec, 0).UTC()
	_, week := t.ISOWeek()
	return TimeParts{
		StartMillis: sec * 1000,
		Hour:        int32(t.Hour()),
		Day:         int32(t.Day()),
		Week:        int32(week),
		Month:       int32(t.Month()),
		Year:        int32(t.Year()),
		Weekday:     int32(t.Weekday()) + 1,
	}
}

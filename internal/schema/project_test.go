package schema

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"starlake/pkg/records"
)

func songRecord() records.Record {
	return records.Record{
		"song_id":          "SOAAAA12A8C13366",
		"title":            "Helix",
		"artist_id":        "ARAAAA1187B9B9A1",
		"artist_name":      "Orbit",
		"artist_location":  "Brooklyn, NY",
		"artist_latitude":  json.Number("40.678"),
		"artist_longitude": json.Number("-73.944"),
		"year":             json.Number("2018"),
		"duration":         json.Number("218.93179"),
		"num_songs":        json.Number("1"),
	}
}

func playEvent() records.Record {
	return records.Record{
		"page":      "NextSong",
		"userId":    "42",
		"firstName": "Lily",
		"lastName":  "Koch",
		"gender":    "F",
		"level":     "free",
		"ts":        json.Number("1541121934796"),
		"song":      "Helix",
		"artist":    "Orbit",
		"sessionId": json.Number("7"),
		"location":  "NY",
		"userAgent": "UA1",
	}
}

func TestDeriveTime(t *testing.T) {
	tests := []struct {
		name     string
		tsMillis int64
		want     TimeParts
	}{
		{
			// 2018-11-02 01:25:34 UTC, Friday, ISO week 44.
			name:     "reference_instant",
			tsMillis: 1541121934796,
			want: TimeParts{
				StartMillis: 1541121934000,
				Hour:        1, Day: 2, Week: 44, Month: 11, Year: 2018, Weekday: 6,
			},
		},
		{
			// 2019-01-01 00:00:00 UTC, Tuesday, ISO week 1.
			name:     "year_boundary",
			tsMillis: 1546300800000,
			want: TimeParts{
				StartMillis: 1546300800000,
				Hour:        0, Day: 1, Week: 1, Month: 1, Year: 2019, Weekday: 3,
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveTime(tc.tsMillis)
			if got != tc.want {
				t.Fatalf("DeriveTime(%d) = %+v; want %+v", tc.tsMillis, got, tc.want)
			}
		})
	}
}

func TestDeriveTimeTruncatesFractionalSecond(t *testing.T) {
	a := DeriveTime(1541121934796)
	b := DeriveTime(1541121934001)
	if a.StartMillis != b.StartMillis || a.StartMillis != 1541121934000 {
		t.Fatalf("fractional second not truncated: %d vs %d", a.StartMillis, b.StartMillis)
	}
}

func TestProjectSong(t *testing.T) {
	got, err := ProjectSong(songRecord())
	if err != nil {
		t.Fatalf("ProjectSong: %v", err)
	}
	want := records.Record{
		"song_id":   "SOAAAA12A8C13366",
		"title":     "Helix",
		"artist_id": "ARAAAA1187B9B9A1",
		"year":      int64(2018),
		"duration":  218.93179,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ProjectSong = %#v; want %#v", got, want)
	}
}

func TestProjectSongMissingFieldFails(t *testing.T) {
	r := songRecord()
	delete(r, "title")
	_, err := ProjectSong(r)

	var fe *records.FieldError
	if !errors.As(err, &fe) || fe.Field != "title" {
		t.Fatalf("ProjectSong error = %v; want *FieldError on title", err)
	}
}

func TestProjectArtistNullableColumns(t *testing.T) {
	r := songRecord()
	r["artist_location"] = nil
	delete(r, "artist_latitude")
	r["artist_longitude"] = nil

	got, err := ProjectArtist(r)
	if err != nil {
		t.Fatalf("ProjectArtist: %v", err)
	}
	if got["artist_id"] != "ARAAAA1187B9B9A1" || got["name"] != "Orbit" {
		t.Fatalf("ProjectArtist = %#v", got)
	}
	for _, col := range []string{"latitude", "longitude"} {
		if v := got[col]; v.(*float64) != nil {
			t.Errorf("%s = %v; want nil pointer", col, v)
		}
	}
	if v := got["location"]; v.(*string) != nil {
		t.Errorf("location = %v; want nil pointer", v)
	}
}

func TestProjectUserRenames(t *testing.T) {
	got, err := ProjectUser(playEvent())
	if err != nil {
		t.Fatalf("ProjectUser: %v", err)
	}
	want := records.Record{
		"user_id":    "42",
		"first_name": "Lily",
		"last_name":  "Koch",
		"gender":     "F",
		"level":      "free",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ProjectUser = %#v; want %#v", got, want)
	}
}

func TestProjectTime(t *testing.T) {
	got, err := ProjectTime(playEvent())
	if err != nil {
		t.Fatalf("ProjectTime: %v", err)
	}
	want := records.Record{
		"start_time": int64(1541121934000),
		"hour":       int32(1),
		"day":        int32(2),
		"week":       int32(44),
		"month":      int32(11),
		"year":       int32(2018),
		"weekday":    int32(6),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ProjectTime = %#v; want %#v", got, want)
	}
}

func TestProjectSongplay(t *testing.T) {
	joined := playEvent()
	joined["song_id"] = "S1"
	joined["artist_id"] = "A1"
	joined["songplay_id"] = int64(1<<40 | 3)

	got, err := ProjectSongplay(joined)
	if err != nil {
		t.Fatalf("ProjectSongplay: %v", err)
	}
	want := records.Record{
		"songplay_id": int64(1<<40 | 3),
		"start_time":  int64(1541121934000),
		"month":       int32(11),
		"year":        int32(2018),
		"user_id":     "42",
		"level":       "free",
		"song_id":     "S1",
		"artist_id":   "A1",
		"session_id":  int64(7),
		"location":    "NY",
		"user_agent":  "UA1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ProjectSongplay = %#v; want %#v", got, want)
	}

	rows := SongplayRows([]records.Record{got})
	if rows[0].SessionID != 7 || rows[0].SongID != "S1" || rows[0].UserID != "42" {
		t.Fatalf("SongplayRows = %+v", rows[0])
	}
}

func TestProjectSongplayWithoutIDFails(t *testing.T) {
	joined := playEvent()
	joined["song_id"] = "S1"
	joined["artist_id"] = "A1"
	if _, err := ProjectSongplay(joined); err == nil {
		t.Fatal("expected error when surrogate key is not assigned")
	}
}

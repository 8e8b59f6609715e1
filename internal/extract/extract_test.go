package extract

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strconv"
	"testing"

	"starlake/internal/dataset"
	"starlake/internal/schema"
	"starlake/pkg/records"
)

func songRec(songID, title, artistID, artistName string, year int) records.Record {
	return records.Record{
		"song_id":          songID,
		"title":            title,
		"artist_id":        artistID,
		"artist_name":      artistName,
		"artist_location":  "Brooklyn, NY",
		"artist_latitude":  json.Number("40.678"),
		"artist_longitude": json.Number("-73.944"),
		"year":             json.Number(strconv.Itoa(year)),
		"duration":         json.Number("218.93179"),
	}
}

func logRec(page, song, artist, userID string) records.Record {
	return records.Record{
		"page":      page,
		"userId":    userID,
		"firstName": "Lily",
		"lastName":  "Koch",
		"gender":    "F",
		"level":     "free",
		"ts":        json.Number("1541121934796"),
		"song":      song,
		"artist":    artist,
		"sessionId": json.Number("7"),
		"location":  "NY",
		"userAgent": "UA1",
	}
}

func ds(recs ...records.Record) *dataset.Dataset {
	return dataset.FromSlice(recs, 3)
}

func TestSongTableDedupsBySongID(t *testing.T) {
	ec := dataset.NewContext(2)
	in := ds(
		songRec("S1", "Helix", "A1", "Orbit", 2018),
		songRec("S1", "Helix", "A1", "Orbit", 2018),
		songRec("S2", "Nova", "A1", "Orbit", 2018),
	)

	songs, err := SongTable(ec, in)
	if err != nil {
		t.Fatalf("SongTable: %v", err)
	}
	ids := make([]string, len(songs))
	for i, s := range songs {
		ids[i] = s.SongID
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "S1" || ids[1] != "S2" {
		t.Fatalf("song ids = %v; want [S1 S2]", ids)
	}
}

func TestArtistTableDedupsIndependently(t *testing.T) {
	ec := dataset.NewContext(2)
	in := ds(
		songRec("S1", "Helix", "A1", "Orbit", 2018),
		songRec("S2", "Nova", "A1", "Orbit", 2018),
		songRec("S3", "Drift", "A2", "Quasar", 2017),
	)

	artists, err := ArtistTable(ec, in)
	if err != nil {
		t.Fatalf("ArtistTable: %v", err)
	}
	if len(artists) != 2 {
		t.Fatalf("got %d artists; want 2", len(artists))
	}
}

func TestSongTableMissingFieldFailsExtraction(t *testing.T) {
	ec := dataset.NewContext(2)
	bad := songRec("S1", "Helix", "A1", "Orbit", 2018)
	delete(bad, "duration")
	in := ds(songRec("S2", "Nova", "A1", "Orbit", 2018), bad)

	_, err := SongTable(ec, in)
	var fe *records.FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("SongTable error = %v; want *FieldError (whole extraction fails)", err)
	}
}

func TestFilterPlaysDropsOtherPages(t *testing.T) {
	ec := dataset.NewContext(2)
	in := ds(
		logRec("NextSong", "Helix", "Orbit", "42"),
		logRec("Home", "", "", "42"),
		logRec("Logout", "", "", "43"),
	)

	plays := FilterPlays(ec, in)
	if plays.Len() != 1 {
		t.Fatalf("FilterPlays kept %d events; want 1", plays.Len())
	}

	// Nothing from the dropped events reaches users or time.
	users, err := UserTable(ec, plays)
	if err != nil {
		t.Fatalf("UserTable: %v", err)
	}
	if len(users) != 1 || users[0].UserID != "42" {
		t.Fatalf("users = %+v", users)
	}
	times, err := TimeTable(ec, plays)
	if err != nil {
		t.Fatalf("TimeTable: %v", err)
	}
	if len(times) != 1 {
		t.Fatalf("time rows = %d; want 1", len(times))
	}
}

func TestTimeTableKeepsDuplicateTimestamps(t *testing.T) {
	ec := dataset.NewContext(2)
	in := ds(
		logRec("NextSong", "Helix", "Orbit", "42"),
		logRec("NextSong", "Nova", "Orbit", "43"), // same ts: simultaneous plays
	)

	times, err := TimeTable(ec, FilterPlays(ec, in))
	if err != nil {
		t.Fatalf("TimeTable: %v", err)
	}
	if len(times) != 2 {
		t.Fatalf("time rows = %d; want 2 (duplicates by start_time preserved)", len(times))
	}
	if times[0].StartTime != times[1].StartTime {
		t.Fatalf("expected identical start_time rows, got %d and %d", times[0].StartTime, times[1].StartTime)
	}
}

func TestSongplayTableJoinScenario(t *testing.T) {
	ec := dataset.NewContext(2)
	catalog := ds(songRec("S1", "Helix", "A1", "Orbit", 2018))
	logs := ds(logRec("NextSong", "Helix", "Orbit", "42"))

	plays := FilterPlays(ec, logs)
	facts, err := SongplayTable(ec, plays, catalog)
	if err != nil {
		t.Fatalf("SongplayTable: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("songplays = %d rows; want 1", len(facts))
	}
	f := facts[0]
	if f.UserID != "42" || f.SongID != "S1" || f.ArtistID != "A1" || f.SessionID != 7 {
		t.Fatalf("fact row = %+v", f)
	}
	if f.Year != 2018 || f.Month != 11 || f.StartTime != 1541121934000 {
		t.Fatalf("derived time columns = year=%d month=%d start=%d", f.Year, f.Month, f.StartTime)
	}
}

func TestSongplayTableCaseMismatchDropsSilently(t *testing.T) {
	ec := dataset.NewContext(2)
	catalog := ds(songRec("S1", "Helix", "A1", "Orbit", 2018))
	logs := ds(logRec("NextSong", "Helix", "orbit", "42"))

	facts, err := SongplayTable(ec, FilterPlays(ec, logs), catalog)
	if err != nil {
		t.Fatalf("SongplayTable: %v", err)
	}
	if len(facts) != 0 {
		t.Fatalf("songplays = %d rows; want 0 (case-sensitive join)", len(facts))
	}
}

func TestSongplayTableDistinctAndUniqueIDs(t *testing.T) {
	ec := dataset.NewContext(3)
	catalog := ds(
		songRec("S1", "Helix", "A1", "Orbit", 2018),
		songRec("S2", "Nova", "A1", "Orbit", 2018),
	)
	// The same event twice: the joined rows are exact duplicates and must
	// collapse to one fact row.
	logs := ds(
		logRec("NextSong", "Helix", "Orbit", "42"),
		logRec("NextSong", "Helix", "Orbit", "42"),
		logRec("NextSong", "Nova", "Orbit", "43"),
	)

	facts, err := SongplayTable(ec, FilterPlays(ec, logs), catalog)
	if err != nil {
		t.Fatalf("SongplayTable: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("songplays = %d rows; want 2 after full-row distinct", len(facts))
	}
	if facts[0].SongplayID == facts[1].SongplayID {
		t.Fatalf("surrogate keys collide: %d", facts[0].SongplayID)
	}
}

// Re-running the stages over unchanged input yields identical row sets.
// Surrogate keys are cleared before comparison (they are opaque and may
// differ between runs); everything else must match exactly.
func TestRerunYieldsIdenticalRowSets(t *testing.T) {
	ec := dataset.NewContext(2)
	build := func() ([]schema.Song, []schema.User, []schema.Songplay) {
		catalog := ds(
			songRec("S1", "Helix", "A1", "Orbit", 2018),
			songRec("S2", "Nova", "A2", "Quasar", 2017),
		)
		logs := ds(
			logRec("NextSong", "Helix", "Orbit", "42"),
			logRec("NextSong", "Nova", "Quasar", "43"),
			logRec("Home", "", "", "42"),
		)
		plays := FilterPlays(ec, logs)
		songs, err := SongTable(ec, catalog)
		if err != nil {
			t.Fatal(err)
		}
		users, err := UserTable(ec, plays)
		if err != nil {
			t.Fatal(err)
		}
		facts, err := SongplayTable(ec, plays, catalog)
		if err != nil {
			t.Fatal(err)
		}

		sort.Slice(songs, func(i, j int) bool { return songs[i].SongID < songs[j].SongID })
		sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
		seen := map[int64]bool{}
		for i := range facts {
			if seen[facts[i].SongplayID] {
				t.Fatalf("duplicate surrogate key %d", facts[i].SongplayID)
			}
			seen[facts[i].SongplayID] = true
			facts[i].SongplayID = 0
		}
		sort.Slice(facts, func(i, j int) bool {
			if facts[i].SongID != facts[j].SongID {
				return facts[i].SongID < facts[j].SongID
			}
			return facts[i].UserID < facts[j].UserID
		})
		return songs, users, facts
	}

	s1, u1, f1 := build()
	s2, u2, f2 := build()
	if !reflect.DeepEqual(s1, s2) {
		t.Fatalf("songs differ across reruns:\n%+v\n%+v", s1, s2)
	}
	if !reflect.DeepEqual(u1, u2) {
		t.Fatalf("users differ across reruns:\n%+v\n%+v", u1, u2)
	}
	if !reflect.DeepEqual(f1, f2) {
		t.Fatalf("songplays differ across reruns:\n%+v\n%+v", f1, f2)
	}
}

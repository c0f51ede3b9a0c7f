package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testSnapshots(t *testing.T) (*Snapshots, string) {
	t.Helper()
	dir := t.TempDir()
	return NewSnapshots(dir, zerolog.Nop()), dir
}

func TestSnapshots_RoundTrip(t *testing.T) {
	snaps, _ := testSnapshots(t)

	activities := []Activity{
		{ID: 1, Type: "Run", Distance: 5000, StartDateLocal: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)},
		{ID: 2, Type: "Ride", Distance: 40000, SegmentsChecked: true},
	}
	if err := snaps.SaveActivities(activities); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded := snaps.LoadActivities()
	if len(loaded) != 2 || loaded[0].ID != 1 || !loaded[1].SegmentsChecked {
		t.Errorf("unexpected load result: %+v", loaded)
	}
}

func TestSnapshots_MissingFilesLoadEmpty(t *testing.T) {
	snaps, _ := testSnapshots(t)

	if got := snaps.LoadActivities(); got != nil {
		t.Errorf("expected nil activities, got %+v", got)
	}
	if got := snaps.LoadSegments(); got != nil {
		t.Errorf("expected nil segments, got %+v", got)
	}
	if got := snaps.LoadRecords(); got == nil || len(got) != 0 {
		t.Errorf("expected empty record table, got %+v", got)
	}
}

func TestSnapshots_MalformedFileLoadsEmpty(t *testing.T) {
	snaps, dir := testSnapshots(t)

	if err := os.WriteFile(filepath.Join(dir, "segments.json"), []byte("[{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := snaps.LoadSegments(); len(got) != 0 {
		t.Errorf("malformed file should load empty, got %+v", got)
	}
}

func TestSnapshots_SaveReplacesWholeFile(t *testing.T) {
	snaps, dir := testSnapshots(t)

	if err := snaps.SaveSegments([]Segment{{ID: 1}, {ID: 2}, {ID: 3}}); err != nil {
		t.Fatal(err)
	}
	if err := snaps.SaveSegments([]Segment{{ID: 9}}); err != nil {
		t.Fatal(err)
	}

	loaded := snaps.LoadSegments()
	if len(loaded) != 1 || loaded[0].ID != 9 {
		t.Errorf("snapshot not replaced: %+v", loaded)
	}

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != "segments.json" {
			t.Errorf("unexpected file in cache dir: %s", e.Name())
		}
	}
}

func TestSnapshots_RecordsRoundTrip(t *testing.T) {
	snaps, _ := testSnapshots(t)

	table := make(RecordTable)
	table.Insert("Run", "1k", Record{Time: 240, Distance: 1000, ActivityID: 5})
	if err := snaps.SaveRecords(table); err != nil {
		t.Fatal(err)
	}

	loaded := snaps.LoadRecords()
	best, ok := loaded.Best("Run", "1k")
	if !ok || best.Time != 240 || best.ActivityID != 5 {
		t.Errorf("unexpected loaded table: %+v", loaded)
	}
}

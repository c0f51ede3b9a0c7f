package cache

import (
	"sort"
	"testing"
	"time"
)

func TestRecordTable_RunOrderingInvariant(t *testing.T) {
	table := make(RecordTable)

	// Insert in scrambled order; the bucket must stay sorted ascending by
	// elapsed time after every insertion.
	times := []int{1250, 1100, 1400, 1100, 980, 1320}
	for i, elapsed := range times {
		table.Insert("Run", "5k", Record{
			Time:       elapsed,
			Distance:   5000,
			ActivityID: int64(i),
			Date:       time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})

		bucket := table["Run"]["5k"]
		if !sort.SliceIsSorted(bucket, func(a, b int) bool { return bucket[a].Time < bucket[b].Time }) {
			t.Fatalf("bucket unsorted after insert %d: %+v", i, bucket)
		}
	}

	best, ok := table.Best("Run", "5k")
	if !ok || best.Time != 980 {
		t.Errorf("best = %+v, want time 980", best)
	}

	// Duplicate times across activities are both retained.
	count := 0
	for _, r := range table["Run"]["5k"] {
		if r.Time == 1100 {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected 2 records at 1100s, got %d", count)
	}
}

func TestRecordTable_RideOrdering(t *testing.T) {
	table := make(RecordTable)
	table.Insert("Ride", "longest", Record{Time: 7200, Distance: 60000})
	table.Insert("Ride", "longest", Record{Time: 3600, Distance: 90000})
	table.Insert("Ride", "longest", Record{Time: 4000, Distance: 90000})

	bucket := table["Ride"]["longest"]
	if bucket[0].Distance != 90000 || bucket[0].Time != 3600 {
		t.Errorf("ride bucket not ordered by distance then speed: %+v", bucket)
	}
	if bucket[2].Distance != 60000 {
		t.Errorf("shortest ride should sort last: %+v", bucket)
	}
}

func TestRecordTable_RetentionCap(t *testing.T) {
	table := make(RecordTable)
	for i := 0; i < 25; i++ {
		table.Insert("Run", "1k", Record{Time: 300 - i, Distance: 1000, ActivityID: int64(i)})
	}

	bucket := table["Run"]["1k"]
	if len(bucket) != maxRecordsPerBucket {
		t.Fatalf("bucket length = %d, want %d", len(bucket), maxRecordsPerBucket)
	}
	// The cap keeps the best entries.
	if bucket[0].Time != 276 {
		t.Errorf("best retained time = %d, want 276", bucket[0].Time)
	}
}

func TestBucket(t *testing.T) {
	tests := []struct{ in, want string }{
		{"1 mile", "1mile"},
		{"5k", "5k"},
		{"Half-Marathon", "half-marathon"},
		{"400m", "400m"},
	}
	for _, tc := range tests {
		if got := Bucket(tc.in); got != tc.want {
			t.Errorf("Bucket(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

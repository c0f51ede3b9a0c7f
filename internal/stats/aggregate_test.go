package stats

import (
	"testing"
	"time"

	"strava-dash/internal/cache"
)

func run(id int64, date time.Time, distance float64, movingTime int) cache.Activity {
	return cache.Activity{
		ID:             id,
		Type:           "Run",
		StartDate:      date,
		StartDateLocal: date,
		Distance:       distance,
		MovingTime:     movingTime,
	}
}

func TestBucketWeek_YearBoundaryCorrection(t *testing.T) {
	tests := []struct {
		date     time.Time
		wantYear int
		wantWeek int
	}{
		// 2021-01-01 is a Friday in ISO week 53 of 2020: folded to week 1.
		{time.Date(2021, 1, 1, 10, 0, 0, 0, time.UTC), 2021, 1},
		// 2022-01-02 is a Sunday in ISO week 52 of 2021: folded to week 1.
		{time.Date(2022, 1, 2, 10, 0, 0, 0, time.UTC), 2022, 1},
		// 2024-01-03 is already ISO week 1.
		{time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC), 2024, 1},
		// Mid-year dates are untouched.
		{time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC), 2024, 27},
		// Late December keeps its high week number.
		{time.Date(2021, 12, 28, 10, 0, 0, 0, time.UTC), 2021, 52},
	}
	for _, tc := range tests {
		year, week := bucketWeek(tc.date)
		if year != tc.wantYear || week != tc.wantWeek {
			t.Errorf("bucketWeek(%s) = %d/%d, want %d/%d",
				tc.date.Format("2006-01-02"), year, week, tc.wantYear, tc.wantWeek)
		}
	}
}

func TestWeeklyDistance_CumulativeSeries(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	activities := []cache.Activity{
		run(1, time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC), 5000, 1500),  // week 2
		run(2, time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC), 3000, 1000), // week 2
		run(3, time.Date(2024, 2, 5, 9, 0, 0, 0, time.UTC), 10000, 3000), // week 6
		run(4, time.Date(2023, 5, 1, 9, 0, 0, 0, time.UTC), 7000, 2000),  // prior year
		{ID: 5, Type: "Ride", StartDateLocal: time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC), Distance: 40000},
	}

	series := WeeklyDistance(activities, "Run", 2, now)
	if len(series) != 2 {
		t.Fatalf("expected 2 years, got %d", len(series))
	}

	cur := series[2024]
	if cur[0] != 0 {
		t.Errorf("week 1 total = %v, want 0", cur[0])
	}
	if cur[1] != 8000 {
		t.Errorf("week 2 running total = %v, want 8000", cur[1])
	}
	// Cumulative: week 5 still 8000, week 6 adds the February run.
	if cur[4] != 8000 || cur[5] != 18000 {
		t.Errorf("weeks 5/6 = %v/%v, want 8000/18000", cur[4], cur[5])
	}
	// The series never decreases.
	for i := 1; i < len(cur); i++ {
		if cur[i] < cur[i-1] {
			t.Fatalf("series decreases at week %d", i+1)
		}
	}

	if series[2023][52-1] != 7000 {
		t.Errorf("prior year total = %v, want 7000", series[2023][52-1])
	}
}

func TestWeeklyDistance_BoundaryActivityLandsInWeekOne(t *testing.T) {
	now := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	activities := []cache.Activity{
		// ISO week 53 of 2020, but calendar year 2021.
		run(1, time.Date(2021, 1, 1, 8, 0, 0, 0, time.UTC), 5000, 1500),
	}

	series := WeeklyDistance(activities, "Run", 1, now)
	if series[2021][0] != 5000 {
		t.Errorf("boundary activity not in week 1: %v", series[2021][:3])
	}
}

func TestEffortSeries(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	activities := []cache.Activity{
		{ID: 1, Type: "Run", StartDateLocal: now.AddDate(0, 0, -2), SufferScore: 50},
		{ID: 2, Type: "Run", StartDateLocal: now.AddDate(0, 0, -3), SufferScore: 30},
		{ID: 3, Type: "Ride", StartDateLocal: now.AddDate(0, 0, -10), SufferScore: 80},
		{ID: 4, Type: "Run", StartDateLocal: now.AddDate(0, 0, -100), SufferScore: 99}, // outside window
	}

	series := EffortSeries(activities, 4, now)
	if len(series) != 4 {
		t.Fatalf("len = %d, want 4", len(series))
	}
	if series[3] != 80 {
		t.Errorf("current week = %v, want 80", series[3])
	}
	if series[2] != 80 {
		t.Errorf("last week = %v, want 80", series[2])
	}
	var total float64
	for _, v := range series {
		total += v
	}
	if total != 160 {
		t.Errorf("series total = %v, want 160 (out-of-window scores excluded)", total)
	}
}

func TestRecentComparison(t *testing.T) {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	// Oldest first, as the fetcher stores them. 5:00/km, 6:00/km, 4:00/km.
	activities := []cache.Activity{
		run(1, base, 10000, 3000),
		run(2, base.AddDate(0, 0, 1), 10000, 3600),
		run(3, base.AddDate(0, 0, 2), 10000, 2400),
	}

	cmp := RecentComparison(activities, "Run", 5)
	if cmp == nil {
		t.Fatal("expected comparison")
	}
	if cmp.Count != 3 || cmp.TotalDistance != 30000 {
		t.Errorf("aggregate wrong: %+v", cmp)
	}
	// Mean pace: 9000s over 30km = 300 s/km.
	if cmp.MeanPace != 300 {
		t.Errorf("mean pace = %v, want 300", cmp.MeanPace)
	}
	if len(cmp.Trends) != 3 {
		t.Fatalf("trends = %d, want 3", len(cmp.Trends))
	}
	// Most recent first: the 4:00/km run trends up, the 6:00/km down.
	if cmp.Trends[0].ActivityID != 3 || !cmp.Trends[0].Up {
		t.Errorf("newest trend wrong: %+v", cmp.Trends[0])
	}
	if cmp.Trends[1].ActivityID != 2 || cmp.Trends[1].Up {
		t.Errorf("slow run should trend down: %+v", cmp.Trends[1])
	}

	if RecentComparison(activities, "Swim", 5) != nil {
		t.Error("expected nil for type with no activities")
	}
}

func TestProgress_AheadAndBehind(t *testing.T) {
	// Halfway through the year, goal 100 km.
	now := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	ahead := []cache.Activity{run(1, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 80000, 0)}
	behind := []cache.Activity{run(2, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 20000, 0)}

	p := Progress(ahead, "Run", 100, now)
	if p.Color != "ahead" || p.Deviation <= 0 {
		t.Errorf("expected ahead, got %+v", p)
	}
	if p.PercentOfGoal != 80 {
		t.Errorf("percent of goal = %v, want 80", p.PercentOfGoal)
	}

	p = Progress(behind, "Run", 100, now)
	if p.Color != "behind" || p.Deviation >= 0 {
		t.Errorf("expected behind, got %+v", p)
	}

	// Prior-year distance does not count.
	stale := []cache.Activity{run(3, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), 500000, 0)}
	if p := Progress(stale, "Run", 100, now); p.DistanceKm != 0 {
		t.Errorf("prior-year distance counted: %+v", p)
	}
}

func TestSummarise(t *testing.T) {
	// A Monday run and a Wednesday run in the same week, plus a virtual ride.
	activities := []cache.Activity{
		run(1, time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), 5000, 1500),
		run(2, time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC), 8000, 2400),
		{ID: 3, Type: "VirtualRide", StartDateLocal: time.Date(2024, 6, 3, 18, 0, 0, 0, time.UTC), Distance: 30000, MovingTime: 3600},
		{ID: 4, Type: "Hike", StartDateLocal: time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC), Distance: 12000},
	}

	summary := Summarise(activities, []string{"run", "ride"}, "recent")
	runs := summary["run"]
	if runs.TotalDistance != 13000 {
		t.Errorf("run total = %v, want 13000", runs.TotalDistance)
	}
	if runs.Intervals[int(time.Monday)] != 5000 || runs.Intervals[int(time.Wednesday)] != 8000 {
		t.Errorf("weekday buckets wrong: %v", runs.Intervals)
	}
	if runs.MaxIntervalDistance != 8000 {
		t.Errorf("max interval = %v, want 8000", runs.MaxIntervalDistance)
	}
	// VirtualRide folds into ride.
	if summary["ride"].TotalDistance != 30000 {
		t.Errorf("virtual ride not merged: %+v", summary["ride"])
	}
	// Unconfigured types are skipped entirely.
	if _, ok := summary["hike"]; ok {
		t.Error("hike should not be summarised")
	}

	ytd := Summarise(activities, []string{"run"}, "ytd")
	if got := ytd["run"].Intervals[int(time.June)-1]; got != 13000 {
		t.Errorf("ytd June bucket = %v, want 13000", got)
	}
	if len(ytd["run"].Intervals) != 12 {
		t.Errorf("ytd intervals = %d, want 12", len(ytd["run"].Intervals))
	}
}

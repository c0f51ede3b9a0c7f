package cache

import "time"

// Activity is the cached, display-ready form of a Strava activity. Heavy
// fields (route polylines) are stripped before caching to bound file size.
// The collection is unique by id and append-only: entries are only rewritten
// to set SegmentsChecked or attach best-effort data.
type Activity struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	StartDate          time.Time `json:"start_date"`
	StartDateLocal     time.Time `json:"start_date_local"`
	Distance           float64   `json:"distance"`    // meters
	MovingTime         int       `json:"moving_time"` // seconds
	ElapsedTime        int       `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	SufferScore        int       `json:"suffer_score,omitempty"`
	Private            bool      `json:"private,omitempty"`
	SegmentsChecked    bool      `json:"segmentsChecked"`
}

// Segment is a cached segment the athlete has ridden or run, with the
// caller's most recent leaderboard standing once scanned.
type Segment struct {
	ID       int64   `json:"id"`
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Time     int     `json:"time"` // elapsed time of the discovering effort
	Distance float64 `json:"distance"`
	City     string  `json:"city"`
	Entry    *Entry  `json:"entry,omitempty"`
}

// Entry is the caller's leaderboard standing on a segment. When the rank
// changes between scans the prior rank is retained for trend display.
type Entry struct {
	Rank          int       `json:"rank"`
	Time          int       `json:"time"`
	Diff          int       `json:"diff,omitempty"` // gap to the rival ahead
	Date          time.Time `json:"date"`
	Efforts       int       `json:"efforts"`
	PrevRank      int       `json:"prevRank,omitempty"`
	RankChangedAt time.Time `json:"rankChangedAt,omitempty"`
}

// Record is one personal-best effort.
type Record struct {
	Time       int       `json:"time"` // elapsed seconds
	Distance   float64   `json:"distance"`
	ActivityID int64     `json:"activity_id"`
	Date       time.Time `json:"date"`
}

// RecordTable is the personal-best table: activity type -> distance bucket
// (e.g. "1k", "5k") -> efforts ordered best first.
type RecordTable map[string]map[string][]Record

// Rankings counts leaderboard standings per activity type into four buckets:
// rank 1, 2, 3 and 4-10. Ranks beyond 10 are not counted.
type Rankings map[string][]int

package strava

import "time"

// Activity represents a Strava activity. List responses carry the summary
// fields only; detail responses (include_all_efforts=true) additionally carry
// SegmentEfforts and BestEfforts.
type Activity struct {
	ID                 int64           `json:"id"`
	Athlete            Athlete         `json:"athlete"`
	Name               string          `json:"name"`
	Type               string          `json:"type"`
	StartDate          time.Time       `json:"start_date"`
	StartDateLocal     time.Time       `json:"start_date_local"`
	Distance           float64         `json:"distance"`             // meters
	MovingTime         int             `json:"moving_time"`          // seconds
	ElapsedTime        int             `json:"elapsed_time"`         // seconds
	TotalElevationGain float64         `json:"total_elevation_gain"` // meters
	SufferScore        int             `json:"suffer_score"`
	Private            bool            `json:"private"`
	Map                *Map            `json:"map,omitempty"`
	SegmentEfforts     []SegmentEffort `json:"segment_efforts,omitempty"`
	BestEfforts        []BestEffort    `json:"best_efforts,omitempty"`
}

// Athlete represents a Strava athlete (minimal info in activity response)
type Athlete struct {
	ID int64 `json:"id"`
}

// Map carries the encoded route polylines. It is the heaviest part of an
// activity payload and is stripped before caching.
type Map struct {
	ID              string `json:"id"`
	Polyline        string `json:"polyline"`
	SummaryPolyline string `json:"summary_polyline"`
}

// SegmentEffort is one attempt at a segment within an activity detail.
type SegmentEffort struct {
	ID             int64          `json:"id"`
	ElapsedTime    int            `json:"elapsed_time"`
	MovingTime     int            `json:"moving_time"`
	Distance       float64        `json:"distance"`
	StartDateLocal time.Time      `json:"start_date_local"`
	Segment        SegmentSummary `json:"segment"`
}

// SegmentSummary is the descriptive segment metadata embedded in an effort.
type SegmentSummary struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	ActivityType string  `json:"activity_type"`
	Distance     float64 `json:"distance"`
	City         string  `json:"city"`
}

// BestEffort is a fastest-time-over-standard-distance record within a single
// activity, e.g. Name "1k" or "5k".
type BestEffort struct {
	Name           string    `json:"name"`
	ElapsedTime    int       `json:"elapsed_time"`
	MovingTime     int       `json:"moving_time"`
	Distance       float64   `json:"distance"`
	StartDateLocal time.Time `json:"start_date_local"`
}

// Totals is one aggregation bucket from the athlete stats endpoint.
type Totals struct {
	Count            int     `json:"count"`
	Distance         float64 `json:"distance"`
	MovingTime       int     `json:"moving_time"`
	ElapsedTime      int     `json:"elapsed_time"`
	ElevationGain    float64 `json:"elevation_gain"`
	AchievementCount int     `json:"achievement_count"`
}

// AthleteStats is the response of the athlete stats endpoint.
type AthleteStats struct {
	RecentRunTotals  Totals `json:"recent_run_totals"`
	YTDRunTotals     Totals `json:"ytd_run_totals"`
	AllRunTotals     Totals `json:"all_run_totals"`
	RecentRideTotals Totals `json:"recent_ride_totals"`
	YTDRideTotals    Totals `json:"ytd_ride_totals"`
	AllRideTotals    Totals `json:"all_ride_totals"`
	RecentSwimTotals Totals `json:"recent_swim_totals"`
	YTDSwimTotals    Totals `json:"ytd_swim_totals"`
	AllSwimTotals    Totals `json:"all_swim_totals"`
}

// Leaderboard is a segment leaderboard page.
type Leaderboard struct {
	EffortCount int                `json:"effort_count"`
	EntryCount  int                `json:"entry_count"`
	Entries     []LeaderboardEntry `json:"entries"`
}

// LeaderboardEntry is a single leaderboard row.
type LeaderboardEntry struct {
	AthleteName    string    `json:"athlete_name"`
	Rank           int       `json:"rank"`
	ElapsedTime    int       `json:"elapsed_time"`
	MovingTime     int       `json:"moving_time"`
	StartDateLocal time.Time `json:"start_date_local"`
}

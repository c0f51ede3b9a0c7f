// Package sync drives the background synchronization engine: incremental
// activity fetching, segment discovery and enrichment, leaderboard crown
// scanning and the cycle orchestration that ties them together.
package sync

import (
	"context"
	"time"

	"strava-dash/internal/strava"
)

// Gateway is the slice of the Strava API the engine talks to. Every call
// reports the quota counters observed on the response so stages can stop
// issuing work once a window is exhausted.
type Gateway interface {
	GetAthleteStats(ctx context.Context, athleteID int64) (*strava.AthleteStats, strava.Usage, error)
	ListActivities(ctx context.Context, after time.Time, page, perPage int) ([]strava.Activity, strava.Usage, error)
	GetActivityDetail(ctx context.Context, id int64) (*strava.Activity, strava.Usage, error)
	GetSegmentLeaderboard(ctx context.Context, id int64) (*strava.Leaderboard, strava.Usage, error)
}

// Refresher renews the access token when the API reports it invalid despite a
// current-looking expiry.
type Refresher interface {
	Refresh(ctx context.Context) error
	AthleteID() int64
}

package sync

import (
	"context"
	"sync"
	"time"

	"strava-dash/internal/strava"
)

// fakeGateway implements Gateway with overridable behavior per endpoint and
// records the calls it receives.
type fakeGateway struct {
	statsFn  func(athleteID int64) (*strava.AthleteStats, error)
	listFn   func(after time.Time, page, perPage int) ([]strava.Activity, error)
	detailFn func(id int64) (*strava.Activity, error)
	boardFn  func(id int64) (*strava.Leaderboard, error)

	mu        sync.Mutex
	listCalls int
	detailIDs []int64
	boardIDs  []int64
}

func okUsage() strava.Usage {
	return strava.Usage{ShortUsage: 10, LongUsage: 100, ShortLimit: 600, LongLimit: 30000}
}

func (g *fakeGateway) GetAthleteStats(_ context.Context, athleteID int64) (*strava.AthleteStats, strava.Usage, error) {
	if g.statsFn == nil {
		return &strava.AthleteStats{}, okUsage(), nil
	}
	s, err := g.statsFn(athleteID)
	return s, okUsage(), err
}

func (g *fakeGateway) ListActivities(_ context.Context, after time.Time, page, perPage int) ([]strava.Activity, strava.Usage, error) {
	g.mu.Lock()
	g.listCalls++
	g.mu.Unlock()
	if g.listFn == nil {
		return nil, okUsage(), nil
	}
	batch, err := g.listFn(after, page, perPage)
	return batch, okUsage(), err
}

func (g *fakeGateway) GetActivityDetail(_ context.Context, id int64) (*strava.Activity, strava.Usage, error) {
	g.mu.Lock()
	g.detailIDs = append(g.detailIDs, id)
	g.mu.Unlock()
	if g.detailFn == nil {
		return &strava.Activity{ID: id}, okUsage(), nil
	}
	detail, err := g.detailFn(id)
	return detail, okUsage(), err
}

func (g *fakeGateway) GetSegmentLeaderboard(_ context.Context, id int64) (*strava.Leaderboard, strava.Usage, error) {
	g.mu.Lock()
	g.boardIDs = append(g.boardIDs, id)
	g.mu.Unlock()
	if g.boardFn == nil {
		return &strava.Leaderboard{}, okUsage(), nil
	}
	board, err := g.boardFn(id)
	return board, okUsage(), err
}

// fakeRefresher counts forced refreshes.
type fakeRefresher struct {
	mu        sync.Mutex
	refreshes int
	athleteID int64
	onRefresh func()
	err       error
}

func (r *fakeRefresher) Refresh(context.Context) error {
	r.mu.Lock()
	r.refreshes++
	r.mu.Unlock()
	if r.onRefresh != nil {
		r.onRefresh()
	}
	return r.err
}

func (r *fakeRefresher) AthleteID() int64 {
	return r.athleteID
}

func invalidTokenFault() *strava.Fault {
	return &strava.Fault{
		StatusCode: 401,
		Message:    "Authorization Error",
		Errors:     []strava.FaultError{{Resource: "Athlete", Field: "access_token", Code: "invalid"}},
	}
}

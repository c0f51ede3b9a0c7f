package sync

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"strava-dash/internal/cache"
	"strava-dash/internal/strava"
)

const (
	// activityPageSize is the largest page the activities endpoint serves.
	activityPageSize = 200

	// defaultEpoch (2000-01-01T00:00:00Z) bounds the first full fetch of an
	// empty cache.
	defaultEpoch = 946684800
)

// afterCursor derives the incremental-fetch cursor from the cached
// activities: one minute past the newest cached start, so the newest cached
// activity is not fetched again. Activities are stored in fetch order, newest
// last.
func afterCursor(cached []cache.Activity) time.Time {
	if len(cached) == 0 {
		return time.Unix(defaultEpoch, 0)
	}
	return cached[len(cached)-1].StartDateLocal.Add(time.Minute)
}

// FetchNew pages through all activities started after the cache cursor and
// appends them, deduplicated by id. The merged list is returned even on
// error so callers can persist whatever arrived before the failure.
func FetchNew(ctx context.Context, gw Gateway, cached []cache.Activity, log zerolog.Logger) ([]cache.Activity, error) {
	seen := make(map[int64]bool, len(cached))
	merged := make([]cache.Activity, len(cached))
	copy(merged, cached)
	for _, a := range cached {
		seen[a.ID] = true
	}

	after := afterCursor(cached)
	var added int
	for page := 1; ; page++ {
		batch, usage, err := gw.ListActivities(ctx, after, page, activityPageSize)
		if err != nil {
			return merged, err
		}

		for _, a := range batch {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			merged = append(merged, toCached(a))
			added++
		}

		// A short page means the listing is exhausted.
		if len(batch) < activityPageSize {
			log.Debug().
				Int("pages", page).
				Int("added", added).
				Int("short_usage", usage.ShortUsage).
				Msg("activity fetch complete")
			return merged, nil
		}
	}
}

// toCached strips an API activity down to the cached form. The route map is
// the heaviest part of the payload and is dropped.
func toCached(a strava.Activity) cache.Activity {
	return cache.Activity{
		ID:                 a.ID,
		Name:               a.Name,
		Type:               a.Type,
		StartDate:          a.StartDate,
		StartDateLocal:     a.StartDateLocal,
		Distance:           a.Distance,
		MovingTime:         a.MovingTime,
		ElapsedTime:        a.ElapsedTime,
		TotalElevationGain: a.TotalElevationGain,
		SufferScore:        a.SufferScore,
		Private:            a.Private,
	}
}

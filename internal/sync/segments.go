package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"strava-dash/internal/cache"
	"strava-dash/internal/strava"
)

const (
	// enrichWorkers bounds the concurrent detail fetches per cycle.
	enrichWorkers = 4

	// detailAttempts is the total tries per activity on transport errors.
	detailAttempts = 2
)

// Enrich fetches the detail payload for every cached activity not yet
// checked for segments, with a bounded worker pool. Discovered segments are
// unioned into segments by id and best efforts are folded into records.
// Workers only fetch; all cache mutation happens in a single pass after the
// pool drains, so the slices are never written concurrently.
//
// An activity is marked checked on success and on a semantic fault (the
// detail will never load), but not when skipped for quota, so it is retried
// next cycle. Returns strava.ErrQuotaExceeded when the quota ran out
// mid-pass; the work applied so far is still valid.
func Enrich(ctx context.Context, gw Gateway, activities []cache.Activity, segments []cache.Segment, records cache.RecordTable, log zerolog.Logger) ([]cache.Segment, error) {
	var pending []int
	for i, a := range activities {
		if !a.SegmentsChecked && !a.Private {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return segments, nil
	}

	details := make([]*strava.Activity, len(pending))
	faulted := make([]bool, len(pending))
	var quota atomic.Bool

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichWorkers)
	for slot, idx := range pending {
		g.Go(func() error {
			if quota.Load() {
				return nil
			}
			detail, err := fetchDetail(gctx, gw, activities[idx].ID)
			switch {
			case err == nil:
				details[slot] = detail
			case errors.Is(err, strava.ErrQuotaExceeded):
				quota.Store(true)
			default:
				if fault, ok := strava.AsFault(err); ok && fault.InvalidToken() {
					quota.Store(true) // stop the pool, the caller must refresh
					return err
				}
				log.Warn().Err(err).Int64("activity", activities[idx].ID).Msg("activity detail unavailable")
				faulted[slot] = true
			}
			return nil
		})
	}
	err := g.Wait()

	for slot, idx := range pending {
		if faulted[slot] {
			activities[idx].SegmentsChecked = true
			continue
		}
		detail := details[slot]
		if detail == nil {
			continue // quota-skipped, retry next cycle
		}
		activities[idx].SegmentsChecked = true
		segments = mergeSegments(segments, detail.SegmentEfforts)
		insertRecords(records, detail)
	}

	if err != nil {
		return segments, err
	}
	if quota.Load() {
		return segments, strava.ErrQuotaExceeded
	}
	return segments, nil
}

// fetchDetail retries transient transport failures; quota and semantic
// faults are returned immediately.
func fetchDetail(ctx context.Context, gw Gateway, id int64) (*strava.Activity, error) {
	var err error
	for attempt := 0; attempt < detailAttempts; attempt++ {
		var detail *strava.Activity
		detail, _, err = gw.GetActivityDetail(ctx, id)
		if err == nil {
			return detail, nil
		}
		if errors.Is(err, strava.ErrQuotaExceeded) {
			return nil, err
		}
		if _, ok := strava.AsFault(err); ok {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return nil, err
}

// mergeSegments unions newly discovered segments into the cache by id.
func mergeSegments(segments []cache.Segment, efforts []strava.SegmentEffort) []cache.Segment {
	known := make(map[int64]bool, len(segments))
	for _, s := range segments {
		known[s.ID] = true
	}
	for _, e := range efforts {
		if known[e.Segment.ID] {
			continue
		}
		known[e.Segment.ID] = true
		segments = append(segments, cache.Segment{
			ID:       e.Segment.ID,
			Type:     e.Segment.ActivityType,
			Name:     e.Segment.Name,
			Time:     e.ElapsedTime,
			Distance: e.Segment.Distance,
			City:     e.Segment.City,
		})
	}
	return segments
}

// insertRecords folds an activity's best efforts into the personal-best
// table.
func insertRecords(records cache.RecordTable, detail *strava.Activity) {
	for _, e := range detail.BestEfforts {
		records.Insert(detail.Type, cache.Bucket(e.Name), cache.Record{
			Time:       e.ElapsedTime,
			Distance:   e.Distance,
			ActivityID: detail.ID,
			Date:       e.StartDateLocal,
		})
	}
}

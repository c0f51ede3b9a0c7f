package sync

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"strava-dash/internal/cache"
	"strava-dash/internal/strava"
)

// Scanner walks the segment cache in fixed-size batches, one batch per sync
// cycle, refreshing the caller's leaderboard standing on each segment. The
// cursor lives in memory: a restart rescans from the front, which only costs
// freshness, never correctness.
type Scanner struct {
	batchSize int
	cursor    int
}

// NewScanner creates a scanner with the given batch size.
func NewScanner(batchSize int) *Scanner {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Scanner{batchSize: batchSize}
}

// Scan refreshes the leaderboard entry of the current batch and advances the
// cursor, wrapping past the end of the cache. On quota exhaustion the cursor
// stays put so the same batch is retried next cycle; entries already updated
// keep their new standing.
func (s *Scanner) Scan(ctx context.Context, gw Gateway, segments []cache.Segment, now time.Time, log zerolog.Logger) error {
	if len(segments) == 0 {
		return nil
	}

	start := s.cursor * s.batchSize
	if start >= len(segments) {
		s.cursor = 0
		start = 0
	}
	end := start + s.batchSize
	if end > len(segments) {
		end = len(segments)
	}

	for i := start; i < end; i++ {
		board, _, err := gw.GetSegmentLeaderboard(ctx, segments[i].ID)
		if err != nil {
			if errors.Is(err, strava.ErrQuotaExceeded) {
				log.Debug().Int("scanned", i-start).Msg("crown scan deferred, quota exhausted")
				return err
			}
			if fault, ok := strava.AsFault(err); ok && fault.InvalidToken() {
				return err
			}
			// Segments get hazard-flagged or privatized; skip and move on.
			log.Warn().Err(err).Int64("segment", segments[i].ID).Msg("leaderboard unavailable")
			continue
		}
		applyStanding(&segments[i], board, now)
	}

	s.cursor++
	log.Debug().Int("from", start).Int("to", end).Msg("crown batch scanned")
	return nil
}

// applyStanding folds a leaderboard page into the segment's cached entry.
// With per_page=1 and context entries enabled the caller's own row is the
// second entry when a rival sits directly ahead, otherwise the only entry.
func applyStanding(seg *cache.Segment, board *strava.Leaderboard, now time.Time) {
	if len(board.Entries) == 0 {
		return
	}

	own := board.Entries[0]
	diff := 0
	if len(board.Entries) == 2 {
		own = board.Entries[1]
		diff = own.ElapsedTime - board.Entries[0].ElapsedTime
	}

	entry := &cache.Entry{
		Rank:    own.Rank,
		Time:    own.ElapsedTime,
		Diff:    diff,
		Date:    own.StartDateLocal,
		Efforts: board.EffortCount,
	}
	if prev := seg.Entry; prev != nil {
		if prev.Rank != entry.Rank {
			entry.PrevRank = prev.Rank
			entry.RankChangedAt = now
		} else {
			entry.PrevRank = prev.PrevRank
			entry.RankChangedAt = prev.RankChangedAt
		}
	}
	seg.Entry = entry
}

// RebuildRankings recomputes the standings histogram from the entire segment
// cache: per activity type, counts of rank 1, 2, 3 and 4-10. Segment types
// other than Run are grouped under Ride. Derived purely from cached entries,
// so it stays correct even when a cycle ends early on quota.
func RebuildRankings(segments []cache.Segment) cache.Rankings {
	rankings := make(cache.Rankings)
	for _, seg := range segments {
		if seg.Entry == nil || seg.Entry.Rank < 1 || seg.Entry.Rank > 10 {
			continue
		}
		typ := "Ride"
		if seg.Type == "Run" {
			typ = "Run"
		}
		counts, ok := rankings[typ]
		if !ok {
			counts = make([]int, 4)
			rankings[typ] = counts
		}
		switch seg.Entry.Rank {
		case 1, 2, 3:
			counts[seg.Entry.Rank-1]++
		default:
			counts[3]++
		}
	}
	return rankings
}

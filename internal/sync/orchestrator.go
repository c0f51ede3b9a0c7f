package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"strava-dash/internal/cache"
	"strava-dash/internal/config"
	"strava-dash/internal/notify"
	"strava-dash/internal/stats"
	"strava-dash/internal/strava"
	"strava-dash/internal/token"
)

// comparisonWindow is how many recent activities the trend comparison spans.
const comparisonWindow = 5

// ConnectFunc builds an authenticated gateway for a widget configuration.
// Returns token.ErrNotFound when the account has not completed the OAuth
// flow yet.
type ConnectFunc func(cfg config.Widget) (Gateway, Refresher, error)

// Orchestrator owns the sync cycle: it holds the widget configuration, the
// snapshot caches and the crown-scan cursor, schedules periodic cycles and
// publishes results on the bus. All mutable cycle state is guarded by one
// mutex; a cycle runs alone, and the scheduler skips ticks that land while
// one is still in flight.
type Orchestrator struct {
	connect ConnectFunc
	snaps   *cache.Snapshots
	bus     *notify.Bus
	log     zerolog.Logger
	cron    *cron.Cron
	now     func() time.Time

	mu        sync.Mutex
	cfg       config.Widget
	gw        Gateway
	refresher Refresher
	scanner   *Scanner
	entry     cron.EntryID
}

// NewOrchestrator creates an idle orchestrator; nothing runs until Configure.
func NewOrchestrator(connect ConnectFunc, snaps *cache.Snapshots, bus *notify.Bus, log zerolog.Logger) *Orchestrator {
	log = log.With().Str("component", "sync").Logger()
	return &Orchestrator{
		connect: connect,
		snaps:   snaps,
		bus:     bus,
		log:     log,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLog{log}))),
		now:     time.Now,
	}
}

// Configure validates the widget configuration, connects the gateway, starts
// the periodic schedule and kicks off an immediate cycle. Reconfiguring
// replaces the previous schedule.
func (o *Orchestrator) Configure(ctx context.Context, cfg config.Widget) error {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		o.bus.Error(err.Error())
		return err
	}
	if cfg.Legacy() {
		o.bus.Warning("access_token and strava_id overrides are deprecated; remove them and connect the account through the OAuth flow")
	}

	gw, refresher, err := o.connect(cfg)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			o.bus.Error(fmt.Sprintf(
				"Strava account for client %s is not connected. Open /strava/auth/request?client_id=%s to authorize it.",
				cfg.ClientID, cfg.ClientID))
		} else {
			o.bus.Error(err.Error())
		}
		return err
	}

	o.mu.Lock()
	o.cfg = cfg
	o.gw = gw
	o.refresher = refresher
	o.scanner = NewScanner(cfg.Rankings.BatchSize)
	o.mu.Unlock()

	if o.entry != 0 {
		o.cron.Remove(o.entry)
	}
	o.entry, err = o.cron.AddFunc(fmt.Sprintf("@every %s", cfg.FetchInterval()), func() {
		o.RunCycle(context.Background())
	})
	if err != nil {
		return fmt.Errorf("scheduling sync: %w", err)
	}
	o.cron.Start()

	o.log.Info().
		Str("client_id", cfg.ClientID).
		Dur("interval", cfg.FetchInterval()).
		Msg("sync configured")
	go o.RunCycle(ctx)
	return nil
}

// Stop halts the schedule and waits for a running cycle to finish.
func (o *Orchestrator) Stop() {
	<-o.cron.Stop().Done()
	o.mu.Lock()
	defer o.mu.Unlock()
}

// RunCycle executes one sync cycle. When the API rejects the access token
// despite a current-looking expiry, the token is refreshed exactly once and
// the cycle retried; a second rejection surfaces as a re-authorization error.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gw == nil {
		return
	}

	err := o.cycle(ctx)
	if fault, ok := strava.AsFault(err); ok && fault.InvalidToken() {
		o.log.Info().Msg("access token rejected, forcing refresh")
		if rerr := o.refresher.Refresh(ctx); rerr != nil {
			o.log.Error().Err(rerr).Msg("token refresh failed")
			o.bus.Error("Strava authorization expired and could not be renewed. Re-connect the account through the OAuth flow.")
			return
		}
		err = o.cycle(ctx)
	}
	if err != nil {
		o.log.Error().Err(err).Msg("sync cycle failed")
	}
}

// cycle runs the sync stages in order: athlete totals, incremental fetch,
// segment enrichment, crown scan. Quota exhaustion is backpressure, not
// failure: the partial state is persisted, the remaining network stages are
// skipped and the derived payloads are still published from cache.
func (o *Orchestrator) cycle(ctx context.Context) error {
	activities := o.snaps.LoadActivities()
	segments := o.snaps.LoadSegments()
	records := o.snaps.LoadRecords()
	quota := false

	if id := o.refresher.AthleteID(); id != 0 {
		totals, _, err := o.gw.GetAthleteStats(ctx, id)
		switch {
		case err == nil:
			o.bus.Publish(notify.EventStats, stats.WithPace(totals, o.cfg.Units))
		case errors.Is(err, strava.ErrQuotaExceeded):
			quota = true
		default:
			return err
		}
	}

	if !quota {
		merged, err := FetchNew(ctx, o.gw, activities, o.log)
		activities = merged
		o.saveActivities(activities)
		switch {
		case err == nil:
		case errors.Is(err, strava.ErrQuotaExceeded):
			quota = true
		default:
			o.publishActivities(activities)
			return err
		}
	}
	o.publishActivities(activities)

	if o.enrichmentEnabled() && !quota {
		updated, err := Enrich(ctx, o.gw, activities, segments, records, o.log)
		segments = updated
		o.saveActivities(activities)
		o.saveSegments(segments)
		if err := o.snaps.SaveRecords(records); err != nil {
			o.log.Error().Err(err).Msg("persisting records")
		}
		switch {
		case err == nil:
		case errors.Is(err, strava.ErrQuotaExceeded):
			quota = true
		default:
			return err
		}
	}
	if o.cfg.Records.Enabled {
		o.bus.Publish(notify.EventRecords, records)
	}

	if o.cfg.Rankings.Enabled {
		if !quota {
			err := o.scanner.Scan(ctx, o.gw, segments, o.now(), o.log)
			o.saveSegments(segments)
			switch {
			case err == nil:
			case errors.Is(err, strava.ErrQuotaExceeded):
				quota = true
			default:
				return err
			}
		}
		o.bus.Publish(notify.EventCrowns, CrownsPayload{
			Segments: segments,
			Rankings: RebuildRankings(segments),
		})
	}

	if quota {
		o.log.Warn().Msg("rate limit quota exhausted, remaining work deferred to next cycle")
	}
	return nil
}

func (o *Orchestrator) enrichmentEnabled() bool {
	return o.cfg.Records.Enabled || o.cfg.Rankings.Enabled
}

func (o *Orchestrator) saveActivities(activities []cache.Activity) {
	if err := o.snaps.SaveActivities(activities); err != nil {
		o.log.Error().Err(err).Msg("persisting activities")
	}
}

func (o *Orchestrator) saveSegments(segments []cache.Segment) {
	if err := o.snaps.SaveSegments(segments); err != nil {
		o.log.Error().Err(err).Msg("persisting segments")
	}
}

// ActivitiesPayload is the ACTIVITIES notification body: the cached list
// plus the aggregates derived from it.
type ActivitiesPayload struct {
	Activities     []cache.Activity              `json:"activities"`
	Summary        map[string]stats.TypeSummary  `json:"summary"`
	Comparisons    map[string]*stats.Comparison  `json:"comparisons,omitempty"`
	Goals          map[string]stats.GoalProgress `json:"goals,omitempty"`
	WeeklyDistance map[string]map[int][]float64  `json:"weekly_distance"`
	EffortSeries   []float64                     `json:"effort_series"`
}

// CrownsPayload is the CROWNS notification body.
type CrownsPayload struct {
	Segments []cache.Segment `json:"segments"`
	Rankings cache.Rankings  `json:"rankings"`
}

func (o *Orchestrator) publishActivities(activities []cache.Activity) {
	now := o.now()
	payload := ActivitiesPayload{
		Activities:     activities,
		Summary:        stats.Summarise(activities, o.cfg.Activities, o.cfg.Period),
		Comparisons:    make(map[string]*stats.Comparison),
		WeeklyDistance: make(map[string]map[int][]float64, len(o.cfg.Activities)),
		EffortSeries:   stats.EffortSeries(activities, 12, now),
	}
	for _, typ := range o.cfg.Activities {
		payload.WeeklyDistance[typ] = stats.WeeklyDistance(activities, typ, 2, now)
		if cmp := stats.RecentComparison(activities, typ, comparisonWindow); cmp != nil {
			payload.Comparisons[typ] = cmp
		}
	}
	if o.cfg.Goals.Run > 0 || o.cfg.Goals.Ride > 0 {
		payload.Goals = make(map[string]stats.GoalProgress)
		if o.cfg.Goals.Run > 0 {
			payload.Goals["run"] = stats.Progress(activities, "run", o.cfg.Goals.Run, now)
		}
		if o.cfg.Goals.Ride > 0 {
			payload.Goals["ride"] = stats.Progress(activities, "ride", o.cfg.Goals.Ride, now)
		}
	}
	o.bus.Publish(notify.EventActivities, payload)
}

// cronLog adapts zerolog to the cron logger interface.
type cronLog struct {
	log zerolog.Logger
}

func (c cronLog) Info(msg string, kv ...interface{}) {
	c.log.Debug().Fields(kv).Msg(msg)
}

func (c cronLog) Error(err error, msg string, kv ...interface{}) {
	c.log.Error().Err(err).Fields(kv).Msg(msg)
}

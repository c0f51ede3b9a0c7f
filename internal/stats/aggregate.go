// Package stats derives display-ready aggregates from the cached activity
// list. Everything here is a pure function of its inputs: no network, no
// disk, no clock reads beyond the explicit now parameter.
package stats

import (
	"strings"
	"time"

	"strava-dash/internal/cache"
)

// weeksPerYear is the bucket count of a yearly series; ISO years have 52 or
// 53 weeks.
const weeksPerYear = 53

// bucketWeek maps an activity date to its week bucket within its calendar
// year. An activity in the first five days of January can carry ISO week 52
// or 53 of the previous year; those are folded into week 1 so the yearly
// series starts where the calendar does.
func bucketWeek(t time.Time) (year, week int) {
	_, week = t.ISOWeek()
	if t.YearDay() < 6 && week > 51 {
		week = 1
	}
	return t.Year(), week
}

// WeeklyDistance builds cumulative weekly-distance series per trailing year
// for one activity type: map of year to a 53-entry running total in meters,
// index 0 holding week 1. Suitable for sparkline charts.
func WeeklyDistance(activities []cache.Activity, activityType string, years int, now time.Time) map[int][]float64 {
	first := now.Year() - years + 1
	series := make(map[int][]float64, years)
	for y := first; y <= now.Year(); y++ {
		series[y] = make([]float64, weeksPerYear)
	}

	for _, a := range activities {
		if !typeMatches(a.Type, activityType) {
			continue
		}
		year, week := bucketWeek(a.StartDateLocal)
		weekly, ok := series[year]
		if !ok {
			continue
		}
		weekly[week-1] += a.Distance
	}

	for _, weekly := range series {
		for i := 1; i < len(weekly); i++ {
			weekly[i] += weekly[i-1]
		}
	}
	return series
}

// EffortSeries sums the subjective difficulty score (suffer score) per week
// over the trailing number of weeks, oldest week first.
func EffortSeries(activities []cache.Activity, weeks int, now time.Time) []float64 {
	series := make([]float64, weeks)
	cutoff := now.AddDate(0, 0, -7*weeks)

	for _, a := range activities {
		if a.SufferScore == 0 || !a.StartDateLocal.After(cutoff) {
			continue
		}
		age := int(now.Sub(a.StartDateLocal).Hours() / 24 / 7)
		if age < 0 || age >= weeks {
			continue
		}
		series[weeks-1-age] += float64(a.SufferScore)
	}
	return series
}

// Comparison aggregates the last K activities of a type and flags the most
// recent ones as trending up or down against the aggregate mean speed.
type Comparison struct {
	Count         int     `json:"count"`
	TotalDistance float64 `json:"total_distance"` // meters
	TotalTime     int     `json:"total_time"`     // seconds
	TotalElev     float64 `json:"total_elevation"`
	MeanDistance  float64 `json:"mean_distance"`
	MeanPace      float64 `json:"mean_pace"` // seconds per km
	Trends        []Trend `json:"trends"`    // most recent first, up to 3
}

// Trend flags one recent activity against the comparison mean.
type Trend struct {
	ActivityID int64   `json:"activity_id"`
	Pace       float64 `json:"pace"` // seconds per km
	Up         bool    `json:"up"`   // faster than the aggregate mean
}

// RecentComparison aggregates the last k activities of activityType.
// Activities are expected in fetch order (oldest first); returns nil when
// none match.
func RecentComparison(activities []cache.Activity, activityType string, k int) *Comparison {
	var recent []cache.Activity
	for i := len(activities) - 1; i >= 0 && len(recent) < k; i-- {
		if typeMatches(activities[i].Type, activityType) {
			recent = append(recent, activities[i])
		}
	}
	if len(recent) == 0 {
		return nil
	}

	cmp := &Comparison{Count: len(recent)}
	for _, a := range recent {
		cmp.TotalDistance += a.Distance
		cmp.TotalTime += a.MovingTime
		cmp.TotalElev += a.TotalElevationGain
	}
	cmp.MeanDistance = cmp.TotalDistance / float64(len(recent))
	cmp.MeanPace = paceSecPerKm(cmp.TotalDistance, cmp.TotalTime)

	for i := 0; i < len(recent) && i < 3; i++ {
		pace := paceSecPerKm(recent[i].Distance, recent[i].MovingTime)
		cmp.Trends = append(cmp.Trends, Trend{
			ActivityID: recent[i].ID,
			Pace:       pace,
			// Lower pace means faster than the aggregate.
			Up: pace > 0 && pace < cmp.MeanPace,
		})
	}
	return cmp
}

// GoalProgress compares year-to-date distance against an annual goal.
type GoalProgress struct {
	GoalKm        float64 `json:"goal_km"`
	DistanceKm    float64 `json:"distance_km"`
	PercentOfGoal float64 `json:"percent_of_goal"`
	PercentOfYear float64 `json:"percent_of_year"`
	Deviation     float64 `json:"deviation"` // positive when ahead of schedule
	Color         string  `json:"color"`     // "ahead" or "behind"
}

// Progress computes goal progress for one activity type.
func Progress(activities []cache.Activity, activityType string, goalKm float64, now time.Time) GoalProgress {
	var meters float64
	for _, a := range activities {
		if typeMatches(a.Type, activityType) && a.StartDateLocal.Year() == now.Year() {
			meters += a.Distance
		}
	}

	p := GoalProgress{GoalKm: goalKm, DistanceKm: meters / 1000}
	if goalKm > 0 {
		p.PercentOfGoal = p.DistanceKm / goalKm * 100
	}
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	yearEnd := yearStart.AddDate(1, 0, 0)
	p.PercentOfYear = now.Sub(yearStart).Hours() / yearEnd.Sub(yearStart).Hours() * 100
	p.Deviation = p.PercentOfGoal - p.PercentOfYear
	if p.Deviation >= 0 {
		p.Color = "ahead"
	} else {
		p.Color = "behind"
	}
	return p
}

// TypeSummary is the per-type period summary used by the table and chart
// modes: totals plus distance per interval (weekday or month).
type TypeSummary struct {
	TotalDistance       float64   `json:"total_distance"`
	TotalElevationGain  float64   `json:"total_elevation_gain"`
	TotalMovingTime     int       `json:"total_moving_time"`
	MaxIntervalDistance float64   `json:"max_interval_distance"`
	Intervals           []float64 `json:"intervals"`
}

// Summarise buckets activities per type into period intervals: weekdays for
// "recent", months for "ytd". Virtual activity types fold into their base
// type. Types not in the configured list are skipped.
func Summarise(activities []cache.Activity, types []string, period string) map[string]TypeSummary {
	intervals := 7
	if period == "ytd" {
		intervals = 12
	}

	summary := make(map[string]TypeSummary, len(types))
	for _, typ := range types {
		summary[strings.ToLower(typ)] = TypeSummary{Intervals: make([]float64, intervals)}
	}

	for _, a := range activities {
		name := strings.ToLower(strings.TrimPrefix(a.Type, "Virtual"))
		s, ok := summary[name]
		if !ok {
			continue
		}
		s.TotalDistance += a.Distance
		s.TotalElevationGain += a.TotalElevationGain
		s.TotalMovingTime += a.MovingTime

		idx := int(a.StartDateLocal.Weekday())
		if period == "ytd" {
			idx = int(a.StartDateLocal.Month()) - 1
		}
		s.Intervals[idx] += a.Distance
		if s.Intervals[idx] > s.MaxIntervalDistance {
			s.MaxIntervalDistance = s.Intervals[idx]
		}
		summary[name] = s
	}
	return summary
}

func typeMatches(activityType, want string) bool {
	return strings.EqualFold(strings.TrimPrefix(activityType, "Virtual"), want)
}

func paceSecPerKm(meters float64, seconds int) float64 {
	if meters <= 0 || seconds <= 0 {
		return 0
	}
	return float64(seconds) / (meters / 1000)
}

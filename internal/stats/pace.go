package stats

import (
	"fmt"
	"math"

	"strava-dash/internal/strava"
)

// Unit conversion factors.
const (
	metersPerMile = 1609.34
	kmPerMile     = 1.60934
	yardsPerMeter = 0.9144
)

// TotalsWithPace is an athlete-stats bucket extended with a derived pace
// string: runs and swims as m:ss per distance unit, rides as speed.
type TotalsWithPace struct {
	strava.Totals
	Pace string `json:"pace"`
}

// StatsPayload is the STATS notification body: all nine totals buckets with
// pace attached.
type StatsPayload struct {
	RecentRunTotals  TotalsWithPace `json:"recent_run_totals"`
	YTDRunTotals     TotalsWithPace `json:"ytd_run_totals"`
	AllRunTotals     TotalsWithPace `json:"all_run_totals"`
	RecentRideTotals TotalsWithPace `json:"recent_ride_totals"`
	YTDRideTotals    TotalsWithPace `json:"ytd_ride_totals"`
	AllRideTotals    TotalsWithPace `json:"all_ride_totals"`
	RecentSwimTotals TotalsWithPace `json:"recent_swim_totals"`
	YTDSwimTotals    TotalsWithPace `json:"ytd_swim_totals"`
	AllSwimTotals    TotalsWithPace `json:"all_swim_totals"`
}

// WithPace derives per-bucket pace for the athlete totals. Zero-distance
// buckets get pace "0".
func WithPace(s *strava.AthleteStats, units string) StatsPayload {
	metric := units == "metric"
	return StatsPayload{
		RecentRunTotals:  runPace(s.RecentRunTotals, metric),
		YTDRunTotals:     runPace(s.YTDRunTotals, metric),
		AllRunTotals:     runPace(s.AllRunTotals, metric),
		RecentRideTotals: ridePace(s.RecentRideTotals, metric),
		YTDRideTotals:    ridePace(s.YTDRideTotals, metric),
		AllRideTotals:    ridePace(s.AllRideTotals, metric),
		RecentSwimTotals: swimPace(s.RecentSwimTotals, metric),
		YTDSwimTotals:    swimPace(s.YTDSwimTotals, metric),
		AllSwimTotals:    swimPace(s.AllSwimTotals, metric),
	}
}

// runPace formats minutes per km (metric) or per mile as m:ss.
func runPace(t strava.Totals, metric bool) TotalsWithPace {
	if t.Distance <= 0 {
		return TotalsWithPace{Totals: t, Pace: "0"}
	}
	distance := t.Distance / 1000
	if !metric {
		distance = t.Distance / metersPerMile
	}
	return TotalsWithPace{Totals: t, Pace: formatMinSec(int(math.Round(float64(t.MovingTime) / distance)))}
}

// ridePace formats average speed in km/h (metric) or mph.
func ridePace(t strava.Totals, metric bool) TotalsWithPace {
	if t.Distance <= 0 {
		return TotalsWithPace{Totals: t, Pace: "0"}
	}
	distance := t.Distance
	if !metric {
		distance = t.Distance / kmPerMile
	}
	return TotalsWithPace{Totals: t, Pace: fmt.Sprintf("%.2f", distance/float64(t.MovingTime)*3.6)}
}

// swimPace formats minutes per 100 m (metric) or per 100 yd as m:ss.
func swimPace(t strava.Totals, metric bool) TotalsWithPace {
	if t.Distance <= 0 {
		return TotalsWithPace{Totals: t, Pace: "0"}
	}
	lengths := t.Distance / 100
	if !metric {
		lengths = t.Distance / 100 * yardsPerMeter
	}
	return TotalsWithPace{Totals: t, Pace: formatMinSec(int(math.Round(float64(t.MovingTime) / lengths)))}
}

// formatMinSec renders seconds as m:ss.
func formatMinSec(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

package strava

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
)

// Fallback quotas used until the API reports its own limits in the
// X-RateLimit-Limit header.
const (
	DefaultShortLimit = 600
	DefaultLongLimit  = 30000
)

// Usage is a snapshot of the rolling rate-limit counters reported alongside
// every API response.
type Usage struct {
	ShortUsage int `json:"short_usage"` // 15-minute window
	LongUsage  int `json:"long_usage"`  // daily window
	ShortLimit int `json:"short_limit"`
	LongLimit  int `json:"long_limit"`
}

// Exceeded reports whether either quota window is exhausted.
func (u Usage) Exceeded() bool {
	return u.ShortUsage >= u.ShortLimit || u.LongUsage >= u.LongLimit
}

// limitTracker keeps the latest rate-limit counters seen on the wire.
// Strava reports both windows as comma-separated pairs:
// X-RateLimit-Limit: "600,30000", X-RateLimit-Usage: "314,2716".
type limitTracker struct {
	mu    sync.Mutex
	usage Usage
}

func newLimitTracker() *limitTracker {
	return &limitTracker{
		usage: Usage{ShortLimit: DefaultShortLimit, LongLimit: DefaultLongLimit},
	}
}

// UpdateFromHeaders records the counters from a response.
func (t *limitTracker) UpdateFromHeaders(h http.Header) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if short, long, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		t.usage.ShortUsage = short
		t.usage.LongUsage = long
	}
	if short, long, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		t.usage.ShortLimit = short
		t.usage.LongLimit = long
	}
}

// Usage returns the most recently observed counters.
func (t *limitTracker) Usage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

func parsePair(v string) (short, long int, ok bool) {
	if v == "" {
		return 0, 0, false
	}
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	short, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	long, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return short, long, true
}

package strava

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/oauth2"
)

const BaseURL = "https://www.strava.com/api/v3"

// Client is the rate-limit-aware Strava API gateway. Every call returns the
// decoded payload together with the quota counters observed on the response,
// so callers can stop issuing work when a window is exhausted.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limits     *limitTracker
}

// NewClient creates a gateway authenticated by the given token source.
func NewClient(tokenSource oauth2.TokenSource) *Client {
	return &Client{
		httpClient: oauth2.NewClient(context.Background(), tokenSource),
		baseURL:    BaseURL,
		limits:     newLimitTracker(),
	}
}

// NewClientWithBaseURL creates a gateway against a non-default API base.
// Used by tests to point at a fake server.
func NewClientWithBaseURL(tokenSource oauth2.TokenSource, baseURL string) *Client {
	c := NewClient(tokenSource)
	c.baseURL = baseURL
	return c
}

// Usage returns the most recently observed rate-limit counters.
func (c *Client) Usage() Usage {
	return c.limits.Usage()
}

// GetAthleteStats fetches the athlete's activity totals.
func (c *Client) GetAthleteStats(ctx context.Context, athleteID int64) (*AthleteStats, Usage, error) {
	var stats AthleteStats
	usage, err := c.get(ctx, fmt.Sprintf("/athletes/%d/stats", athleteID), nil, &stats)
	if err != nil {
		return nil, usage, err
	}
	return &stats, usage, nil
}

// ListActivities fetches one page of the athlete's activities started after
// the given time. Results are ordered oldest first when after is set.
func (c *Client) ListActivities(ctx context.Context, after time.Time, page, perPage int) ([]Activity, Usage, error) {
	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var activities []Activity
	usage, err := c.get(ctx, "/athlete/activities", params, &activities)
	if err != nil {
		return nil, usage, err
	}
	return activities, usage, nil
}

// GetActivityDetail fetches a single activity including all segment efforts.
func (c *Client) GetActivityDetail(ctx context.Context, id int64) (*Activity, Usage, error) {
	params := url.Values{}
	params.Set("include_all_efforts", "true")

	var activity Activity
	usage, err := c.get(ctx, fmt.Sprintf("/activities/%d", id), params, &activity)
	if err != nil {
		return nil, usage, err
	}
	return &activity, usage, nil
}

// GetSegmentLeaderboard fetches the caller's neighborhood of a segment
// leaderboard. per_page=1 with context_entries=0 yields the caller's own row,
// preceded by the rival directly ahead when one exists.
func (c *Client) GetSegmentLeaderboard(ctx context.Context, id int64) (*Leaderboard, Usage, error) {
	params := url.Values{}
	params.Set("context_entries", "0")
	params.Set("per_page", "1")

	var board Leaderboard
	usage, err := c.get(ctx, fmt.Sprintf("/segments/%d/leaderboard", id), params, &board)
	if err != nil {
		return nil, usage, err
	}
	return &board, usage, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) (Usage, error) {
	if c.limits.Usage().Exceeded() {
		return c.limits.Usage(), ErrQuotaExceeded
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return c.limits.Usage(), err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.limits.Usage(), fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	c.limits.UpdateFromHeaders(resp.Header)
	usage := c.limits.Usage()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return usage, fmt.Errorf("decoding %s response: %w", path, err)
		}
		return usage, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return usage, ErrQuotaExceeded
	default:
		body, _ := io.ReadAll(resp.Body)
		fault := &Fault{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(body, fault); err != nil || fault.Message == "" {
			return usage, fmt.Errorf("API error %d on %s: %s", resp.StatusCode, path, string(body))
		}
		return usage, fault
	}
}

// Package strava is a small client for the parts of the Strava API used for ride imports.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"
)

const (
	DefaultBaseURL = "https://www.strava.com/api/v3"
	// MaxPerPage is the largest page Strava serves
	MaxPerPage = 200
)

// APIError is a non-2xx response from Strava
type APIError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GET %s -> %d: %s", e.Path, e.StatusCode, e.Body)
}

// Temporary reports whether retrying later can succeed
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Client struct {
	http    *http.Client
	base    *http.Client
	baseURL *url.URL
	limiter *RateLimiter
}

type Option func(*Client)

// WithHTTPClient sets the client that carries the authenticated transport
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.base = h }
}

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil {
			c.baseURL = u
		}
	}
}

// WithRateLimiter shares one limiter between clients of the same application
func WithRateLimiter(l *RateLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient returns a client authenticated by ts. Responses are cached in memory.
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts ...Option) *Client {
	u, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		base:    &http.Client{Transport: httpcache.NewMemoryCacheTransport()},
		baseURL: u,
	}
	for _, o := range opts {
		o(c)
	}
	if c.limiter == nil {
		c.limiter = NewRateLimiter(DefaultLimits)
	}
	c.http = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.base), ts)
	return c
}

// ListActivities fetches one page of activities started after after
func (c *Client) ListActivities(ctx context.Context, after time.Time, page, perPage int) ([]Activity, error) {
	q := url.Values{}
	if !after.IsZero() {
		q.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var activities []Activity
	if err := c.getJSON(ctx, "/athlete/activities", q, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// AllActivities pages through every activity after after
func (c *Client) AllActivities(ctx context.Context, after time.Time) ([]Activity, error) {
	var all []Activity
	for page := 1; ; page++ {
		activities, err := c.ListActivities(ctx, after, page, MaxPerPage)
		if err != nil {
			return all, fmt.Errorf("fetching page %d: %w", page, err)
		}
		all = append(all, activities...)
		if len(activities) < MaxPerPage {
			return all, nil
		}
	}
}

// Athlete returns the authenticated athlete
func (c *Client) Athlete(ctx context.Context) (*Athlete, error) {
	var a Athlete
	if err := c.getJSON(ctx, "/athlete", nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// RateLimitStatus returns the requests left in the short and daily windows
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.limiter.Status()
}

func (c *Client) getJSON(ctx context.Context, p string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := *c.baseURL
	u.Path = path.Join(u.Path, p)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	c.limiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Path: p, Body: string(body)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", p, err)
	}
	return nil
}

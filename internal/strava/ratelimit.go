package strava

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Limits are the request budgets of the Strava API
type Limits struct {
	Short       int
	ShortWindow time.Duration
	Daily       int
	MinInterval time.Duration
}

// DefaultLimits are Strava's published application limits
var DefaultLimits = Limits{
	Short:       100,
	ShortWindow: 15 * time.Minute,
	Daily:       1000,
	MinInterval: 150 * time.Millisecond,
}

// RateLimiter manages Strava API rate limits
type RateLimiter struct {
	mu sync.Mutex

	shortWindow   time.Duration
	shortLimit    int
	shortUsage    int
	shortResetsAt time.Time

	dailyLimit    int
	dailyUsage    int
	dailyResetsAt time.Time

	minInterval time.Duration
	lastRequest time.Time
}

func NewRateLimiter(l Limits) *RateLimiter {
	now := time.Now()
	return &RateLimiter{
		shortWindow:   l.ShortWindow,
		shortLimit:    l.Short,
		shortResetsAt: now.Add(l.ShortWindow),
		dailyLimit:    l.Daily,
		dailyResetsAt: nextMidnight(now),
		minInterval:   l.MinInterval,
	}
}

// Wait blocks until a request can be made without exceeding rate limits
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.After(r.shortResetsAt) {
		r.shortUsage = 0
		r.shortResetsAt = now.Add(r.shortWindow)
	}
	if now.After(r.dailyResetsAt) {
		r.dailyUsage = 0
		r.dailyResetsAt = nextMidnight(now)
	}

	if r.shortUsage >= r.shortLimit {
		if err := r.sleep(ctx, time.Until(r.shortResetsAt)); err != nil {
			return err
		}
		r.shortUsage = 0
		r.shortResetsAt = time.Now().Add(r.shortWindow)
	}

	if r.dailyUsage >= r.dailyLimit {
		if err := r.sleep(ctx, time.Until(r.dailyResetsAt)); err != nil {
			return err
		}
		r.dailyUsage = 0
		r.dailyResetsAt = nextMidnight(time.Now())
	}

	if elapsed := time.Since(r.lastRequest); elapsed < r.minInterval {
		if err := r.sleep(ctx, r.minInterval-elapsed); err != nil {
			return err
		}
	}

	r.shortUsage++
	r.dailyUsage++
	r.lastRequest = time.Now()
	return nil
}

// sleep releases the lock while waiting. Callers hold r.mu.
func (r *RateLimiter) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	r.mu.Unlock()
	defer r.mu.Lock()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateFromHeaders syncs usage with what Strava reports.
// Strava returns X-RateLimit-Limit: "100,1000" and X-RateLimit-Usage: "34,512".
func (r *RateLimiter) UpdateFromHeaders(h http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if short, daily, ok := parsePair(h.Get("X-RateLimit-Usage")); ok {
		r.shortUsage, r.dailyUsage = short, daily
	}
	if short, daily, ok := parsePair(h.Get("X-RateLimit-Limit")); ok {
		r.shortLimit, r.dailyLimit = short, daily
	}
}

// Status returns the requests left in each window
func (r *RateLimiter) Status() (shortRemaining, dailyRemaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shortLimit - r.shortUsage, r.dailyLimit - r.dailyUsage
}

func parsePair(v string) (int, int, bool) {
	parts := strings.Split(v, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	a, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	b, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return a, b, true
}

// Strava resets the daily budget at midnight UTC
func nextMidnight(now time.Time) time.Time {
	return now.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}

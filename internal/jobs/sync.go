package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/briangreenhill/ridestats/internal/db"
	"github.com/briangreenhill/ridestats/internal/strava"
)

// ErrNotConnected means the user has no Strava account linked
var ErrNotConnected = errors.New("strava account not connected")

const (
	// DefaultSyncWindow bounds the first import of a new account
	DefaultSyncWindow = 90 * 24 * time.Hour
	// syncOverlap re-reads recent activities that Strava may have updated
	syncOverlap = 12 * time.Hour
)

// SyncUser imports the user's rides and returns how many were stored
func (h *Handler) SyncUser(ctx context.Context, p SyncStravaPayload) (int, error) {
	acct, err := h.store.GetStravaAccount(ctx, p.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return 0, ErrNotConnected
		}
		return 0, fmt.Errorf("get strava account: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  acct.AccessToken,
		RefreshToken: acct.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       acct.TokenExpiry.Time,
	}
	ts := strava.NewTokenSource(ctx, h.oauth, token, func(ctx context.Context, t *oauth2.Token) error {
		if err := h.store.UpdateStravaTokens(ctx, db.UpdateStravaTokensParams{
			UserID:       p.UserID,
			AccessToken:  t.AccessToken,
			RefreshToken: t.RefreshToken,
			TokenExpiry:  db.Timestamptz(t.Expiry),
		}); err != nil {
			return fmt.Errorf("refresh strava token: store: %w", err)
		}
		return nil
	})

	now := h.now()
	since := syncStart(now, acct, p.SinceUnix)

	activities, err := h.newClient(ctx, ts).AllActivities(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("list strava activities: %w", err)
	}

	n, err := h.storeRides(ctx, p.UserID, strava.Rides(activities))
	if err != nil {
		return n, err
	}

	if err := h.store.UpdateStravaLastSync(ctx, db.UpdateStravaLastSyncParams{
		UserID:   p.UserID,
		LastSync: db.Timestamptz(now.UTC()),
	}); err != nil {
		return n, fmt.Errorf("update last sync: %w", err)
	}
	h.logger.Info().Stringer("user", p.UserID).Int("trainings", n).Time("since", since).Msg("synced")
	return n, nil
}

func (h *Handler) storeRides(ctx context.Context, userID uuid.UUID, rides []strava.Activity) (int, error) {
	n := 0
	for _, a := range rides {
		t := strava.ToTraining(a)
		if _, err := h.store.UpsertStravaTraining(ctx, db.NewUpsertStravaTrainingParams(userID, t)); err != nil {
			return n, fmt.Errorf("upsert training %d: %w", a.ID, err)
		}
		n++
	}
	return n, nil
}

// syncStart picks the lower bound for an import: an explicit since wins,
// then the last sync minus an overlap, then the default window.
func syncStart(now time.Time, acct db.StravaAccount, sinceUnix int64) time.Time {
	switch {
	case sinceUnix != 0:
		return time.Unix(sinceUnix, 0).UTC()
	case acct.LastSync.Valid:
		return acct.LastSync.Time.Add(-syncOverlap)
	default:
		return now.Add(-DefaultSyncWindow)
	}
}

// SyncAll enqueues a sync for every connected account and returns how many were queued
func (h *Handler) SyncAll(ctx context.Context) (int, error) {
	users, err := h.store.ListConnectedUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list connected users: %w", err)
	}
	var errs []error
	n := 0
	for _, u := range users {
		task, err := NewSyncStravaTask(u, time.Time{})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := h.enqueuer.Enqueue(task); err != nil {
			errs = append(errs, fmt.Errorf("enqueue %s: %w", u, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

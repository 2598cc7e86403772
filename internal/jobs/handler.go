// Package jobs holds the background tasks run by the worker: Strava imports
// and FIT file processing.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/briangreenhill/ridestats/internal/db"
	"github.com/briangreenhill/ridestats/internal/strava"
)

// StravaAPI is the part of the Strava client used for imports
type StravaAPI interface {
	AllActivities(ctx context.Context, after time.Time) ([]strava.Activity, error)
}

// ClientFactory builds an API client for one user's token source
type ClientFactory func(ctx context.Context, ts oauth2.TokenSource) StravaAPI

type Handler struct {
	store     db.Repository
	oauth     *oauth2.Config
	enqueuer  Enqueuer
	newClient ClientFactory
	logger    zerolog.Logger
	now       func() time.Time
}

type Option func(*Handler)

func WithClientFactory(f ClientFactory) Option {
	return func(h *Handler) { h.newClient = f }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler wires the task handlers. Strava clients share one rate limiter
// unless a factory is supplied.
func NewHandler(store db.Repository, oauthCfg *oauth2.Config, enq Enqueuer, opts ...Option) *Handler {
	limiter := strava.NewRateLimiter(strava.DefaultLimits)
	h := &Handler{
		store:    store,
		oauth:    oauthCfg,
		enqueuer: enq,
		newClient: func(ctx context.Context, ts oauth2.TokenSource) StravaAPI {
			return strava.NewClient(ctx, ts, strava.WithRateLimiter(limiter))
		},
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register adds every task handler to mux
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskSyncStravaUser, func(ctx context.Context, t *asynq.Task) error {
		var p SyncStravaPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			h.logger.Error().Err(err).Str("task", t.Type()).Msg("bad payload")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log := h.logger.With().Str("task", t.Type()).Stringer("user", p.UserID).Logger()
		log.Info().Msg("sync start")
		start := time.Now()
		n, err := h.SyncUser(ctx, p)
		return h.finish(log, start, err, func(e *zerolog.Event) { e.Int("trainings", n) })
	})

	mux.HandleFunc(TaskProcessFitFile, func(ctx context.Context, t *asynq.Task) error {
		var p ProcessFitPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			h.logger.Error().Err(err).Str("task", t.Type()).Msg("bad payload")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log := h.logger.With().Str("task", t.Type()).Stringer("training", p.TrainingID).Logger()
		log.Info().Msg("fit start")
		start := time.Now()
		points, err := h.ProcessFit(ctx, p.TrainingID)
		return h.finish(log, start, err, func(e *zerolog.Event) { e.Int("points", points) })
	})

	mux.HandleFunc(TaskSyncAll, func(ctx context.Context, t *asynq.Task) error {
		log := h.logger.With().Str("task", t.Type()).Logger()
		start := time.Now()
		n, err := h.SyncAll(ctx)
		return h.finish(log, start, err, func(e *zerolog.Event) { e.Int("enqueued", n) })
	})
}

// finish logs the outcome and decides whether asynq should retry
func (h *Handler) finish(log zerolog.Logger, start time.Time, err error, fields func(*zerolog.Event)) error {
	duration := time.Since(start)
	if err != nil {
		if isRetryableError(err) {
			log.Warn().Err(err).Dur("duration", duration).Msg("retryable error")
			return err
		}
		log.Error().Err(err).Dur("duration", duration).Msg("permanent error, dropping job")
		return nil
	}
	e := log.Info().Dur("duration", duration)
	fields(e)
	e.Msg("done")
	return nil
}

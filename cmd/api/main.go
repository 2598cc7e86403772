package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	scs "github.com/alexedwards/scs/v2"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/ridestats/internal/config"
	"github.com/briangreenhill/ridestats/internal/db"
	"github.com/briangreenhill/ridestats/internal/http/routes"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	logger = logger.Level(cfg.Level())
	if !cfg.HasStrava() {
		logger.Warn().Msg("STRAVA_CLIENT_ID/STRAVA_CLIENT_SECRET not set, strava connect will fail")
	}

	profile, err := config.LoadProfile(cfg.ScoringProfile)
	if err != nil {
		logger.Fatal().Err(err).Msg("scoring profile")
	}
	scorer, err := profile.Scorer()
	if err != nil {
		logger.Fatal().Err(err).Msg("scoring profile")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("db")
	}
	defer pool.Close()
	store := db.NewStore(pool)

	// Queue
	queue := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer queue.Close()

	// Sessions
	sess := scs.New()
	sess.Lifetime = 12 * time.Hour
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = cfg.SecureCookies()

	s := routes.New(routes.ServerOptions{
		Sess:    sess,
		Store:   store,
		Jobs:    queue,
		Cfg:     *cfg,
		Scorer:  scorer,
		Filters: profile.Filters(),
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("starting api")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("listen")
	}
}

package main

import (
	"context"
	"os"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/ridestats/internal/config"
	"github.com/briangreenhill/ridestats/internal/db"
	"github.com/briangreenhill/ridestats/internal/jobs"
	"github.com/briangreenhill/ridestats/internal/strava"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("app", "worker").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}
	logger = logger.Level(cfg.Level())

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("unable to connect to database")
	}
	defer pool.Close()
	store := db.NewStore(pool)

	redis := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := asynq.NewClient(redis)
	defer queue.Close()

	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency:    8,
		StrictPriority: false,
		Queues: map[string]int{
			jobs.QueueSync:    10,
			jobs.QueueDefault: 5,
		},
	})
	mux := asynq.NewServeMux()

	oauthCfg := strava.OAuthConfig(cfg.Strava.ClientID, cfg.Strava.ClientSecret, cfg.StravaRedirectURL())
	jobs.NewHandler(store, oauthCfg, queue, jobs.WithLogger(logger)).Register(mux)

	scheduler := asynq.NewScheduler(redis, nil)
	id, err := jobs.RegisterPeriodic(scheduler, cfg.SyncCron)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler")
	}
	logger.Info().Str("entry", id).Str("cron", cfg.SyncCron).Msg("periodic sync registered")
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("scheduler start")
	}
	defer scheduler.Shutdown()

	logger.Info().Msg("worker running")
	// Run blocks until SIGTERM or SIGINT
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker")
	}
}

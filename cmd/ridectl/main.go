// Command ridectl runs maintenance tasks and offline FIT tooling.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/briangreenhill/ridestats/internal/config"
	"github.com/briangreenhill/ridestats/internal/db"
	"github.com/briangreenhill/ridestats/internal/jobs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ridectl",
		Short:         "Ride stats maintenance and FIT tools",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newFitCmd())
	rootCmd.AddCommand(newLoadCmd())
	return rootCmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger().
		Level(cfg.Level())
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			log := newLogger(cfg)

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}
			log.Info().Msg("schema up to date")
			return nil
		},
	}
}

func newSyncCmd() *cobra.Command {
	var (
		user  string
		since string
		all   bool
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Queue a Strava import for one user or every connected user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (user != "") {
				return fmt.Errorf("pass exactly one of --user or --all")
			}
			task, err := syncTask(user, since, all)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer client.Close()

			info, err := client.EnqueueContext(cmd.Context(), task)
			if err != nil {
				return fmt.Errorf("enqueue: %w", err)
			}
			log := newLogger(cfg)
			log.Info().Str("task_id", info.ID).Str("queue", info.Queue).Str("type", task.Type()).Msg("queued")
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id to import for")
	cmd.Flags().StringVar(&since, "since", "", "import rides after this date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&all, "all", false, "queue an import for every connected user")
	return cmd
}

func syncTask(user, since string, all bool) (*asynq.Task, error) {
	if all {
		return jobs.NewSyncAllTask(), nil
	}
	id, err := uuid.Parse(user)
	if err != nil {
		return nil, fmt.Errorf("invalid --user: %w", err)
	}
	var from time.Time
	if since != "" {
		if from, err = time.Parse(time.DateOnly, since); err != nil {
			return nil, fmt.Errorf("invalid --since: %w", err)
		}
	}
	return jobs.NewSyncStravaTask(id, from)
}

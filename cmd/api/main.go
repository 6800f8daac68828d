package main

import (
	"os"

	"sentinel-backend/internal/config"
	"sentinel-backend/internal/infrastructure/database"
	"sentinel-backend/internal/interfaces/router"
	"sentinel-backend/internal/jobs"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid redis url")
		}
		rdb = redis.NewClient(opts)
	}

	app := router.CreateApp(cfg, db, rdb)

	if !cfg.DisableJobs {
		scheduler := cron.New()
		reset := &jobs.DailyReset{
			DB:           db,
			Lockup:       app.Lockup,
			Presence:     app.Presence,
			DayStartHour: cfg.DayStartHour,
			Logger:       log.Logger,
		}
		if _, err := reset.Schedule(scheduler, cfg.DailyResetCron); err != nil {
			log.Fatal().Err(err).Msg("failed to schedule daily reset")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting server")
	if err := app.Fiber.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

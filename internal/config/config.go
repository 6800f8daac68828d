package config

import (
	"strings"

	"github.com/spf13/viper"

	"sentinel-backend/internal/pkg/dates"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	KioskKey            string
	DayStartHour        int
	DailyResetCron      string
	DisableJobs         bool
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}

	dayStart := viper.GetInt("DAY_START_HOUR")
	if dayStart == 0 {
		dayStart = dates.DefaultDayStartHour
	}

	resetCron := viper.GetString("DAILY_RESET_CRON")
	if resetCron == "" {
		// Fires at the operational day boundary; keep in step with DAY_START_HOUR.
		resetCron = "0 3 * * *"
	}

	return &Config{
		Env:                 env,
		Port:                port,
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		KioskKey:            viper.GetString("KIOSK_KEY"),
		DayStartHour:        dayStart,
		DailyResetCron:      resetCron,
		DisableJobs:         strings.EqualFold(viper.GetString("DISABLE_JOBS"), "true"),
	}, nil
}

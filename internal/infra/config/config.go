package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	TelegramToken   string
	DatabaseURL     string
	SourcePageURL   string
	AdminTelegramID int64
	LogLevel        string
	Environment     string
	Timezone        string

	CronSpecMonitor         string // ingestion cycle: fetch, classify, diff, notify
	CronSpecTransitionCheck string // lookahead probe for upcoming status changes
	CronSpecPrune           string // daily backstop pruning of cache and sent-log

	LookaheadMinutes int
	SendRatePerSec   int
}

// Load reads configuration from environment variables and a .env file
// (if present). godotenv.Load does not override variables that are
// already set.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.SourcePageURL = os.Getenv("SOURCE_PAGE_URL")
	if cfg.SourcePageURL == "" {
		cfg.SourcePageURL = "https://hoe.com.ua/page/pogodinni-vidkljuchennja"
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.Timezone = os.Getenv("TIMEZONE")
	if cfg.Timezone == "" {
		cfg.Timezone = "Europe/Kyiv"
	}

	cfg.CronSpecMonitor = os.Getenv("CRON_SPEC_MONITOR")
	if cfg.CronSpecMonitor == "" {
		cfg.CronSpecMonitor = "*/10 * * * *" // every 10 minutes
	}

	cfg.CronSpecTransitionCheck = os.Getenv("CRON_SPEC_TRANSITION_CHECK")
	if cfg.CronSpecTransitionCheck == "" {
		cfg.CronSpecTransitionCheck = "*/5 * * * *" // every 5 minutes
	}

	cfg.CronSpecPrune = os.Getenv("CRON_SPEC_PRUNE")
	if cfg.CronSpecPrune == "" {
		cfg.CronSpecPrune = "5 0 * * *" // 00:05 daily
	}

	cfg.LookaheadMinutes, err = intEnv("LOOKAHEAD_MINUTES", 30)
	if err != nil {
		return nil, err
	}

	cfg.SendRatePerSec, err = intEnv("SEND_RATE_PER_SEC", 20)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", name)
	}
	return v, nil
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"outage_notification_bot/internal/app"
	"outage_notification_bot/internal/infra/config"
	idb "outage_notification_bot/internal/infra/database"
	"outage_notification_bot/internal/infra/logger"
	"outage_notification_bot/internal/infra/scheduler"
	"outage_notification_bot/internal/infra/source"
	itelegram "outage_notification_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.WithFields(logrus.Fields{
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Configuration loaded")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.WithError(err).Fatalf("Invalid timezone %q", cfg.Timezone)
	}

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	log.Info("Database connection established")

	cacheRepo := idb.NewPostgresScheduleRepository(db)
	alertRepo := idb.NewPostgresAlertRepository(db)
	directory := idb.NewPostgresSubscriberDirectory(db)

	fetcher, err := source.NewHTTPFetcher(cfg.SourcePageURL, loc, log.WithField("component", "fetcher"))
	if err != nil {
		log.WithError(err).Fatal("Could not create source fetcher")
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) {
			entry := log.WithError(err)
			if c != nil && c.Sender() != nil {
				entry = entry.WithField("sender_id", c.Sender().ID)
			}
			entry.Error("Telebot error")
		},
	})
	if err != nil {
		log.WithError(err).Fatal("Could not create Telegram bot")
	}

	client := itelegram.NewTelebotAdapter(bot, cfg.SendRatePerSec)

	monitor := app.NewMonitorService(
		cacheRepo,
		alertRepo,
		directory,
		fetcher,
		client,
		loc,
		time.Duration(cfg.LookaheadMinutes)*time.Minute,
		log.WithField("component", "monitor"),
	)
	queryService := app.NewQueryService(monitor, cfg.AdminTelegramID)

	monitorScheduler := scheduler.NewMonitorScheduler(
		monitor,
		log.WithField("component", "scheduler"),
		loc,
		cfg.CronSpecMonitor,
		cfg.CronSpecTransitionCheck,
		cfg.CronSpecPrune,
	)
	monitorScheduler.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	itelegram.RegisterBotHandlers(ctx, bot, queryService, loc, log.WithField("component", "handlers"))
	log.Info("Bot command handlers registered")

	go bot.Start()
	log.Info("Application setup complete, bot and scheduler running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application")
	monitorScheduler.Stop()
	bot.Stop()
	log.Info("Application shut down gracefully")
}

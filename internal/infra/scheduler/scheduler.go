package scheduler

import (
	"context"
	"time"

	"outage_notification_bot/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// MonitorScheduler drives the engine on fixed-interval cron triggers:
// the ingestion cycle, the lookahead transition check and a daily
// pruning backstop. The engine itself serializes cycles; the scheduler
// only fires them.
type MonitorScheduler struct {
	cronEngine              *cron.Cron
	monitor                 app.Monitor
	logger                  *logrus.Entry
	cronSpecMonitor         string
	cronSpecTransitionCheck string
	cronSpecPrune           string
}

func NewMonitorScheduler(
	monitor app.Monitor,
	logger *logrus.Entry,
	loc *time.Location,
	cronSpecMonitor string, // e.g. "*/10 * * * *"
	cronSpecTransitionCheck string, // e.g. "*/5 * * * *"
	cronSpecPrune string, // e.g. "5 0 * * *"
) *MonitorScheduler {
	return &MonitorScheduler{
		cronEngine:              cron.New(cron.WithLocation(loc)),
		monitor:                 monitor,
		logger:                  logger,
		cronSpecMonitor:         cronSpecMonitor,
		cronSpecTransitionCheck: cronSpecTransitionCheck,
		cronSpecPrune:           cronSpecPrune,
	}
}

func (s *MonitorScheduler) Start() {
	s.logger.Info("Starting monitor scheduler")

	_, err := s.cronEngine.AddFunc(s.cronSpecMonitor, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		updated, err := s.monitor.RunIngestionCycle(ctx)
		if err != nil {
			s.logger.WithError(err).Error("Ingestion cycle failed")
			return
		}
		if len(updated) > 0 {
			s.logger.WithField("updated_dates", updated).Info("Ingestion cycle finished with updates")
		}
	})
	if err != nil {
		s.logger.WithError(err).Fatal("Could not add ingestion cycle cron job")
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecTransitionCheck, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.monitor.CheckUpcomingTransitions(ctx, time.Now()); err != nil {
			s.logger.WithError(err).Error("Transition check failed")
		}
	})
	if err != nil {
		s.logger.WithError(err).Fatal("Could not add transition check cron job")
	}

	_, err = s.cronEngine.AddFunc(s.cronSpecPrune, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		if err := s.monitor.PruneStale(ctx); err != nil {
			s.logger.WithError(err).Error("Pruning failed")
		}
	})
	if err != nil {
		s.logger.WithError(err).Fatal("Could not add pruning cron job")
	}

	s.cronEngine.Start()
	s.logger.Info("Monitor scheduler started with jobs")
}

func (s *MonitorScheduler) Stop() {
	s.logger.Info("Stopping monitor scheduler")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Monitor scheduler gracefully stopped")
}

package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"outage_notification_bot/internal/domain/alert"
	"outage_notification_bot/internal/domain/grid"
	"outage_notification_bot/internal/domain/schedule"
	"outage_notification_bot/internal/domain/subscriber"
	domainTelegram "outage_notification_bot/internal/domain/telegram"
	idb "outage_notification_bot/internal/infra/database"
	"outage_notification_bot/internal/infra/source"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// Monitor defines the scheduler-facing operations of the ingestion and
// alerting engine.
type Monitor interface {
	// RunIngestionCycle fetches the source page, classifies the
	// published schedule images, diffs them against the cache and
	// notifies subscribers about schedule changes. Returns the dates
	// whose schedules appeared or changed.
	RunIngestionCycle(ctx context.Context) ([]schedule.Date, error)
	// CheckUpcomingTransitions probes every subscribed subqueue for a
	// status change inside the lookahead horizon and dispatches grouped,
	// deduplicated alerts.
	CheckUpcomingTransitions(ctx context.Context, now time.Time) error
	// PruneStale drops cache entries and sent-log rows dated before
	// today.
	PruneStale(ctx context.Context) error
	// GetNormalizedSchedule is the read-only cache access used by the
	// presentation layer; it never triggers a source fetch.
	GetNormalizedSchedule(ctx context.Context, date schedule.Date, subqueue schedule.SubqueueID) (string, bool, error)
}

// MonitorService is the engine object holding all collaborators via
// injected references; there are no ambient globals.
type MonitorService struct {
	cacheRepo schedule.Repository
	alertRepo alert.Repository
	directory subscriber.Directory
	fetcher   source.Fetcher
	client    domainTelegram.Client
	loc       *time.Location
	lookahead time.Duration
	nowFn     func() time.Time
	logger    *logrus.Entry

	// cycleMu serializes ingestion cycles so a new cycle never
	// interleaves with a prior one still writing cache or sent-log.
	cycleMu sync.Mutex
}

func NewMonitorService(
	cacheRepo schedule.Repository,
	alertRepo alert.Repository,
	directory subscriber.Directory,
	fetcher source.Fetcher,
	client domainTelegram.Client,
	loc *time.Location,
	lookahead time.Duration,
	logger *logrus.Entry,
) *MonitorService {
	return &MonitorService{
		cacheRepo: cacheRepo,
		alertRepo: alertRepo,
		directory: directory,
		fetcher:   fetcher,
		client:    client,
		loc:       loc,
		lookahead: lookahead,
		nowFn:     time.Now,
		logger:    logger,
	}
}

// SetClock overrides the engine's clock. Intended for tests.
func (s *MonitorService) SetClock(now func() time.Time) {
	s.nowFn = now
}

func (s *MonitorService) RunIngestionCycle(ctx context.Context) ([]schedule.Date, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	now := s.nowFn().In(s.loc)
	today := schedule.DateOf(now)

	page, err := s.fetcher.FetchPage(ctx)
	if err != nil {
		// No state mutated; the next interval retries.
		s.logger.WithError(err).Warn("Source fetch failed, skipping cycle")
		return nil, fmt.Errorf("source fetch failed: %w", err)
	}

	var updated []schedule.Date
	changes := make(map[schedule.Date][]schedule.SubqueueID)
	for _, pi := range page.Images {
		snap := s.buildSnapshot(ctx, pi, page)
		if len(snap.Schedules) == 0 {
			s.logger.WithField("date", pi.Date).Info("No schedule data for image, skipping")
			continue
		}

		cachedList, err := s.cacheRepo.ListByDate(ctx, pi.Date)
		if err != nil {
			return updated, fmt.Errorf("cache read for %s failed: %w", pi.Date, err)
		}
		cached := make(map[schedule.SubqueueID]*schedule.CacheEntry, len(cachedList))
		for _, e := range cachedList {
			cached[e.Subqueue] = e
		}

		diff := schedule.DiffSnapshot(snap, cached)
		for sq, text := range snap.Schedules {
			entry := &schedule.CacheEntry{
				Date:       snap.Date,
				Subqueue:   sq,
				Text:       text,
				ImageToken: snap.Token,
				HasData:    true,
			}
			if err := s.cacheRepo.Put(ctx, entry); err != nil {
				return updated, fmt.Errorf("cache write for (%s, %s) failed: %w", snap.Date, sq, err)
			}
		}

		if !diff.IsEmpty() {
			updated = append(updated, pi.Date)
			changes[pi.Date] = append(append([]schedule.SubqueueID{}, diff.New...), diff.Changed...)
			s.logger.WithFields(logrus.Fields{
				"date": pi.Date, "new": len(diff.New), "changed": len(diff.Changed),
			}).Info("Schedule update detected")
		}
	}

	if err := s.PruneStale(ctx); err != nil {
		return updated, err
	}

	if len(changes) > 0 {
		s.notifyScheduleChanges(ctx, changes, page, today)
	}

	sort.Slice(updated, func(i, j int) bool { return updated[i].Before(updated[j]) })
	return updated, nil
}

// buildSnapshot classifies one published image into normalized schedule
// text per subqueue. A decode failure degrades to the page's text-layer
// schedules for that date only; other images in the same cycle are
// unaffected.
func (s *MonitorService) buildSnapshot(ctx context.Context, pi source.PageImage, page *source.Page) schedule.Snapshot {
	snap := schedule.Snapshot{
		Date:      pi.Date,
		Schedules: make(map[schedule.SubqueueID]string),
		ImageURL:  pi.URL,
		Token:     pi.Token,
	}

	var raw map[schedule.SubqueueID]string
	img, err := s.fetcher.FetchImage(ctx, pi.URL)
	if err != nil {
		s.logger.WithError(err).WithField("date", pi.Date).Warn("Schedule image unreadable, falling back to page text")
		raw = page.TextSchedules[pi.Date]
	} else {
		raw = grid.Classify(img, grid.DefaultConfig(img.Bounds()))
	}

	for sq, text := range raw {
		normalized := schedule.Normalize(text)
		if normalized == "" {
			continue
		}
		snap.Schedules[sq] = normalized
	}
	return snap
}

// notifyScheduleChanges sends one message per subscriber per updated
// date, naming every affected address. Today's changes are announced as
// urgent; future dates as a new schedule with the published image
// attached. Delivery errors are recovered per subscriber.
func (s *MonitorService) notifyScheduleChanges(ctx context.Context, changes map[schedule.Date][]schedule.SubqueueID, page *source.Page, today schedule.Date) {
	addresses, err := s.directory.ListAllAddresses(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list subscriber addresses for change notifications")
		return
	}

	imageByDate := make(map[schedule.Date]string)
	for _, pi := range page.Images {
		imageByDate[pi.Date] = pi.URL
	}

	// subscriber -> date -> affected address descriptions
	perSubscriber := make(map[int64]map[schedule.Date][]string)
	for date, subqueues := range changes {
		affected := make(map[schedule.SubqueueID]bool, len(subqueues))
		for _, sq := range subqueues {
			affected[sq] = true
		}
		for _, a := range addresses {
			if !affected[a.Subqueue] {
				continue
			}
			if !s.changeNotificationsEnabled(ctx, a, date == today) {
				continue
			}
			if perSubscriber[a.SubscriberID] == nil {
				perSubscriber[a.SubscriberID] = make(map[schedule.Date][]string)
			}
			desc := fmt.Sprintf("<b>%s</b> (черга %s)", a.Label, a.Subqueue)
			perSubscriber[a.SubscriberID][date] = append(perSubscriber[a.SubscriberID][date], desc)
		}
	}

	sent := 0
	for subscriberID, dates := range perSubscriber {
		for date, descs := range dates {
			var text string
			if date == today {
				text = fmt.Sprintf(
					"⚠️ <b>ТЕРМІНОВА ЗМІНА ГРАФІКА НА СЬОГОДНІ (%s)</b>\n\nОбленерго оновило дані для ваших адрес:\n%s\n\nБудь ласка, перевірте новий розклад у боті.",
					date.Display(), strings.Join(descs, ", "))
			} else {
				text = fmt.Sprintf(
					"📅 <b>НОВИЙ ГРАФІК НА %s</b>\n\nЗ'явився розклад для ваших адрес:\n%s",
					date.Display(), strings.Join(descs, ", "))
			}

			opts := &telebot.SendOptions{ParseMode: telebot.ModeHTML}
			var sendErr error
			if imgURL := imageByDate[date]; imgURL != "" && date != today {
				sendErr = s.client.SendPhoto(ctx, subscriberID, imgURL, text, opts)
			} else {
				sendErr = s.client.SendMessage(ctx, subscriberID, text, opts)
			}
			if sendErr != nil {
				s.logger.WithError(sendErr).WithFields(logrus.Fields{
					"subscriber_id": subscriberID, "date": date,
				}).Error("Failed to send schedule change notification")
				continue
			}
			sent++
		}
	}
	s.logger.WithField("sent", sent).Info("Schedule change notifications dispatched")
}

// changeNotificationsEnabled checks the global and per-address switches
// plus the switch matching the change kind (urgent change today vs. new
// future schedule).
func (s *MonitorService) changeNotificationsEnabled(ctx context.Context, a *subscriber.Address, urgent bool) bool {
	global, err := s.directory.NotificationSettings(ctx, a.SubscriberID, "")
	if err != nil || !global.NotificationsEnabled {
		return false
	}
	addr, err := s.directory.NotificationSettings(ctx, a.SubscriberID, a.Label)
	if err != nil || !addr.NotificationsEnabled {
		return false
	}
	if urgent {
		return addr.ScheduleChangesEnabled
	}
	return addr.NewScheduleEnabled
}

type pendingAlertKey struct {
	subscriberID int64
	title        string
	eventTime    string
	eventDate    schedule.Date
}

func (s *MonitorService) CheckUpcomingTransitions(ctx context.Context, now time.Time) error {
	now = now.In(s.loc)
	today := schedule.DateOf(now)
	tomorrow := schedule.DateOf(now.Add(24 * time.Hour))
	dayStart := today.Time(s.loc)

	addresses, err := s.directory.ListAllAddresses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list subscriber addresses: %w", err)
	}

	bySubqueue := make(map[schedule.SubqueueID][]*subscriber.Address)
	for _, a := range addresses {
		if !s.alertsEnabled(ctx, a) {
			continue
		}
		bySubqueue[a.Subqueue] = append(bySubqueue[a.Subqueue], a)
	}
	if len(bySubqueue) == 0 {
		return nil
	}

	pending := make(map[pendingAlertKey][]string)
	for sq, addrs := range bySubqueue {
		todaySet, err := s.intervalSetFor(ctx, today, sq)
		if err != nil {
			return err
		}
		tomorrowSet, err := s.intervalSetFor(ctx, tomorrow, sq)
		if err != nil {
			return err
		}
		if todaySet.IsEmpty() && tomorrowSet.IsEmpty() {
			continue
		}

		tr := alert.NextTransition(todaySet, tomorrowSet, dayStart, now, s.lookahead)
		if tr == nil {
			continue
		}
		title := transitionTitle(tr.From, tr.To)
		if title == "" {
			continue
		}

		key := pendingAlertKey{
			title:     title,
			eventTime: tr.At.Format("15:04"),
			eventDate: schedule.DateOf(tr.At),
		}
		for _, a := range addrs {
			k := key
			k.subscriberID = a.SubscriberID
			pending[k] = append(pending[k], a.Label)
		}
	}

	sent := 0
	for key, labels := range pending {
		already, err := s.alertRepo.WasSent(ctx, key.subscriberID, key.eventTime, key.eventDate)
		if err != nil {
			return fmt.Errorf("sent-log check failed: %w", err)
		}
		if already {
			continue
		}

		sort.Strings(labels)
		text := fmt.Sprintf("%s\n\nОрієнтовно о %s\nАдреса: <b>%s</b>",
			key.title, key.eventTime, strings.Join(labels, ", "))

		err = s.client.SendMessage(ctx, key.subscriberID, text, &telebot.SendOptions{ParseMode: telebot.ModeHTML})
		if err != nil {
			// No sent-log row: the next check retries while the event is
			// still inside the lookahead window.
			s.logger.WithError(err).WithField("subscriber_id", key.subscriberID).Error("Failed to send transition alert")
			continue
		}

		record := &alert.SentAlert{
			SubscriberID: key.subscriberID,
			EventTime:    key.eventTime,
			EventDate:    key.eventDate,
		}
		if err := s.alertRepo.MarkSent(ctx, record); err != nil {
			// A missing row risks a duplicate next check; surfacing the
			// failure beats losing the notification.
			return fmt.Errorf("failed to record sent alert for subscriber %d: %w", key.subscriberID, err)
		}
		sent++
	}
	if sent > 0 {
		s.logger.WithField("sent", sent).Info("Transition alerts dispatched")
	}
	return nil
}

// alertsEnabled checks the global and per-address switches; both must
// be on for an address to qualify.
func (s *MonitorService) alertsEnabled(ctx context.Context, a *subscriber.Address) bool {
	global, err := s.directory.NotificationSettings(ctx, a.SubscriberID, "")
	if err != nil || !global.NotificationsEnabled {
		return false
	}
	addr, err := s.directory.NotificationSettings(ctx, a.SubscriberID, a.Label)
	if err != nil || !addr.NotificationsEnabled {
		return false
	}
	return true
}

func (s *MonitorService) intervalSetFor(ctx context.Context, date schedule.Date, sq schedule.SubqueueID) (schedule.IntervalSet, error) {
	entry, err := s.cacheRepo.Get(ctx, date, sq)
	if err != nil {
		if err == idb.ErrCacheEntryNotFound {
			return schedule.IntervalSet{}, nil
		}
		return schedule.IntervalSet{}, fmt.Errorf("cache read for (%s, %s) failed: %w", date, sq, err)
	}
	if !entry.HasData {
		return schedule.IntervalSet{}, nil
	}
	return schedule.ToIntervalSet(entry.Text), nil
}

func (s *MonitorService) PruneStale(ctx context.Context) error {
	today := schedule.DateOf(s.nowFn().In(s.loc))
	if n, err := s.cacheRepo.PruneBefore(ctx, today); err != nil {
		return fmt.Errorf("cache prune failed: %w", err)
	} else if n > 0 {
		s.logger.WithField("rows", n).Debug("Pruned stale schedule cache entries")
	}
	if n, err := s.alertRepo.PruneBefore(ctx, today); err != nil {
		return fmt.Errorf("sent-log prune failed: %w", err)
	} else if n > 0 {
		s.logger.WithField("rows", n).Debug("Pruned stale sent alerts")
	}
	return nil
}

func (s *MonitorService) GetNormalizedSchedule(ctx context.Context, date schedule.Date, sq schedule.SubqueueID) (string, bool, error) {
	entry, err := s.cacheRepo.Get(ctx, date, sq)
	if err != nil {
		if err == idb.ErrCacheEntryNotFound {
			return "", false, nil
		}
		return "", false, err
	}
	if !entry.HasData {
		return "", false, nil
	}
	return entry.Text, true, nil
}

// transitionTitle maps a status change to its announcement. A weakening
// from off to merely possible is deliberately silent: the supply state
// the subscriber experiences has not changed yet.
func transitionTitle(from, to alert.Status) string {
	switch {
	case to == alert.StatusOn:
		return "✅ <b>ВІДНОВЛЕННЯ ЕЛЕКТРОЕНЕРГІЇ</b>"
	case from == alert.StatusOn && to == alert.StatusPossible:
		return "⚠️ <b>МОЖЛИВЕ ВІДКЛЮЧЕННЯ</b>"
	case from == alert.StatusOn && to == alert.StatusOff:
		return "⚠️ <b>ВІДКЛЮЧЕННЯ ЕЛЕКТРОЕНЕРГІЇ</b>"
	case from == alert.StatusPossible && to == alert.StatusOff:
		return "⚠️ <b>ГАРАНТОВАНЕ ВІДКЛЮЧЕННЯ</b>"
	}
	return ""
}

var _ Monitor = (*MonitorService)(nil)

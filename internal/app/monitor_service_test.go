package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"testing"
	"time"

	"outage_notification_bot/internal/domain/alert"
	"outage_notification_bot/internal/domain/schedule"
	"outage_notification_bot/internal/domain/subscriber"
	idb "outage_notification_bot/internal/infra/database"
	"outage_notification_bot/internal/infra/source"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

var kyiv = time.FixedZone("EET", 2*60*60)

func testNow() time.Time {
	return time.Date(2026, 1, 17, 9, 50, 0, 0, kyiv)
}

// ---- fakes ----

type fakeCacheRepo struct {
	mu      sync.Mutex
	entries map[string]*schedule.CacheEntry
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string]*schedule.CacheEntry)}
}

func cacheKey(date schedule.Date, sq schedule.SubqueueID) string {
	return fmt.Sprintf("%s|%s", date, sq)
}

func (r *fakeCacheRepo) Get(_ context.Context, date schedule.Date, sq schedule.SubqueueID) (*schedule.CacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[cacheKey(date, sq)]
	if !ok {
		return nil, idb.ErrCacheEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeCacheRepo) ListByDate(_ context.Context, date schedule.Date) ([]*schedule.CacheEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*schedule.CacheEntry
	for _, e := range r.entries {
		if e.Date == date {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeCacheRepo) Put(_ context.Context, entry *schedule.CacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries[cacheKey(entry.Date, entry.Subqueue)] = &cp
	return nil
}

func (r *fakeCacheRepo) PruneBefore(_ context.Context, date schedule.Date) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, e := range r.entries {
		if e.Date.Before(date) {
			delete(r.entries, k)
			n++
		}
	}
	return n, nil
}

type fakeAlertRepo struct {
	mu      sync.Mutex
	rows    map[string]schedule.Date
	markErr error
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{rows: make(map[string]schedule.Date)}
}

func alertKey(subscriberID int64, eventTime string, eventDate schedule.Date) string {
	return fmt.Sprintf("%d|%s|%s", subscriberID, eventTime, eventDate)
}

func (r *fakeAlertRepo) WasSent(_ context.Context, subscriberID int64, eventTime string, eventDate schedule.Date) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[alertKey(subscriberID, eventTime, eventDate)]
	return ok, nil
}

func (r *fakeAlertRepo) MarkSent(_ context.Context, a *alert.SentAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markErr != nil {
		return r.markErr
	}
	r.rows[alertKey(a.SubscriberID, a.EventTime, a.EventDate)] = a.EventDate
	return nil
}

func (r *fakeAlertRepo) PruneBefore(_ context.Context, date schedule.Date) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, d := range r.rows {
		if d.Before(date) {
			delete(r.rows, k)
			n++
		}
	}
	return n, nil
}

type fakeDirectory struct {
	addresses []*subscriber.Address
	settings  map[string]*subscriber.Settings
}

func (d *fakeDirectory) ListAllAddresses(_ context.Context) ([]*subscriber.Address, error) {
	return d.addresses, nil
}

func (d *fakeDirectory) NotificationSettings(_ context.Context, subscriberID int64, addressLabel string) (*subscriber.Settings, error) {
	if s, ok := d.settings[fmt.Sprintf("%d|%s", subscriberID, addressLabel)]; ok {
		return s, nil
	}
	return &subscriber.Settings{
		NotificationsEnabled:   true,
		NewScheduleEnabled:     true,
		ScheduleChangesEnabled: true,
	}, nil
}

type sentMsg struct {
	chatID   int64
	text     string
	photoURL string
}

type fakeClient struct {
	mu      sync.Mutex
	sent    []sentMsg
	sendErr error
}

func (c *fakeClient) SendMessage(_ context.Context, chatID int64, text string, _ *telebot.SendOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, sentMsg{chatID: chatID, text: text})
	return nil
}

func (c *fakeClient) SendPhoto(_ context.Context, chatID int64, photoURL, caption string, _ *telebot.SendOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, sentMsg{chatID: chatID, text: caption, photoURL: photoURL})
	return nil
}

type fakeFetcher struct {
	page    *source.Page
	pageErr error
}

func (f *fakeFetcher) FetchPage(_ context.Context) (*source.Page, error) {
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return f.page, nil
}

func (f *fakeFetcher) FetchImage(_ context.Context, _ string) (image.Image, error) {
	// Forces the page text-layer fallback; bitmap classification is
	// covered by the grid package tests.
	return nil, errors.New("image unavailable")
}

// ---- harness ----

type harness struct {
	svc       *MonitorService
	cacheRepo *fakeCacheRepo
	alertRepo *fakeAlertRepo
	directory *fakeDirectory
	client    *fakeClient
	fetcher   *fakeFetcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)

	h := &harness{
		cacheRepo: newFakeCacheRepo(),
		alertRepo: newFakeAlertRepo(),
		directory: &fakeDirectory{settings: make(map[string]*subscriber.Settings)},
		client:    &fakeClient{},
		fetcher:   &fakeFetcher{page: &source.Page{}},
	}
	h.svc = NewMonitorService(
		h.cacheRepo, h.alertRepo, h.directory, h.fetcher, h.client,
		kyiv, 30*time.Minute, logrus.NewEntry(l),
	)
	h.svc.SetClock(testNow)
	return h
}

func (h *harness) addAddress(subscriberID int64, label string, sq schedule.SubqueueID) {
	h.directory.addresses = append(h.directory.addresses, &subscriber.Address{
		SubscriberID: subscriberID,
		Label:        label,
		Subqueue:     sq,
	})
}

func (h *harness) putCache(date schedule.Date, sq schedule.SubqueueID, text string) {
	_ = h.cacheRepo.Put(context.Background(), &schedule.CacheEntry{
		Date: date, Subqueue: sq, Text: text, ImageToken: "tok", HasData: true,
	})
}

func tomorrowPage() *source.Page {
	return &source.Page{
		Images: []source.PageImage{{
			DateLabel: "ГПВ-18.01.2026",
			Date:      "2026-01-18",
			URL:       "https://example.com/gpv-18.png",
			Token:     "https://example.com/gpv-18.png",
		}},
		TextSchedules: map[schedule.Date]map[schedule.SubqueueID]string{
			"2026-01-18": {"1.1": "з 10:00 до 12:00"},
		},
	}
}

// ---- ingestion ----

func TestRunIngestionCycleEmptyCachePopulates(t *testing.T) {
	h := newHarness(t)
	h.fetcher.page = tomorrowPage()
	h.addAddress(100, "Дім", "1.1")

	updated, err := h.svc.RunIngestionCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []schedule.Date{"2026-01-18"}, updated)

	entry, err := h.cacheRepo.Get(context.Background(), "2026-01-18", "1.1")
	require.NoError(t, err)
	assert.Equal(t, "10:00-12:00", entry.Text)
	assert.True(t, entry.HasData)

	require.Len(t, h.client.sent, 1)
	msg := h.client.sent[0]
	assert.Equal(t, int64(100), msg.chatID)
	assert.Contains(t, msg.text, "НОВИЙ ГРАФІК НА 18.01.2026")
	assert.Contains(t, msg.text, "Дім")
	assert.Equal(t, "https://example.com/gpv-18.png", msg.photoURL)
}

func TestRunIngestionCycleIdenticalSecondRunIsQuiet(t *testing.T) {
	h := newHarness(t)
	h.fetcher.page = tomorrowPage()
	h.addAddress(100, "Дім", "1.1")

	_, err := h.svc.RunIngestionCycle(context.Background())
	require.NoError(t, err)

	updated, err := h.svc.RunIngestionCycle(context.Background())
	require.NoError(t, err)
	assert.Empty(t, updated)
	assert.Len(t, h.client.sent, 1, "no second notification for an unchanged schedule")
}

func TestRunIngestionCycleTokenAdvanceRenotifies(t *testing.T) {
	h := newHarness(t)
	h.fetcher.page = tomorrowPage()
	h.addAddress(100, "Дім", "1.1")

	_, err := h.svc.RunIngestionCycle(context.Background())
	require.NoError(t, err)

	// Republished image under a new URL, same text layer.
	h.fetcher.page = tomorrowPage()
	h.fetcher.page.Images[0].URL = "https://example.com/gpv-18-v2.png"
	h.fetcher.page.Images[0].Token = "https://example.com/gpv-18-v2.png"

	updated, err := h.svc.RunIngestionCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []schedule.Date{"2026-01-18"}, updated)
	assert.Len(t, h.client.sent, 2)
}

func TestRunIngestionCycleFetchErrorLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	h.putCache("2026-01-17", "1.1", "10:00-12:00")
	h.fetcher.pageErr = errors.New("connection refused")

	updated, err := h.svc.RunIngestionCycle(context.Background())
	assert.Error(t, err)
	assert.Empty(t, updated)
	assert.Empty(t, h.client.sent)

	entry, err := h.cacheRepo.Get(context.Background(), "2026-01-17", "1.1")
	require.NoError(t, err)
	assert.Equal(t, "10:00-12:00", entry.Text)
}

func TestRunIngestionCycleUrgentChangeForToday(t *testing.T) {
	h := newHarness(t)
	h.putCache("2026-01-17", "1.1", "10:00-12:00")
	h.addAddress(100, "Дім", "1.1")
	h.fetcher.page = &source.Page{
		Images: []source.PageImage{{
			Date:  "2026-01-17",
			URL:   "https://example.com/gpv-17-v2.png",
			Token: "https://example.com/gpv-17-v2.png",
		}},
		TextSchedules: map[schedule.Date]map[schedule.SubqueueID]string{
			"2026-01-17": {"1.1": "з 14:00 до 16:00"},
		},
	}

	updated, err := h.svc.RunIngestionCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []schedule.Date{"2026-01-17"}, updated)

	require.Len(t, h.client.sent, 1)
	msg := h.client.sent[0]
	assert.Contains(t, msg.text, "ТЕРМІНОВА ЗМІНА ГРАФІКА НА СЬОГОДНІ (17.01.2026)")
	assert.Empty(t, msg.photoURL, "today's change goes out as plain text")
}

func TestRunIngestionCyclePrunesStaleCacheEntries(t *testing.T) {
	h := newHarness(t)
	h.putCache("2026-01-16", "1.1", "01:00-02:00")
	h.putCache("2026-01-17", "1.1", "10:00-12:00")
	h.putCache("2026-01-18", "1.1", "10:00-12:00")

	_, err := h.svc.RunIngestionCycle(context.Background())
	require.NoError(t, err)

	_, err = h.cacheRepo.Get(context.Background(), "2026-01-16", "1.1")
	assert.ErrorIs(t, err, idb.ErrCacheEntryNotFound)
	_, err = h.cacheRepo.Get(context.Background(), "2026-01-17", "1.1")
	assert.NoError(t, err)
	_, err = h.cacheRepo.Get(context.Background(), "2026-01-18", "1.1")
	assert.NoError(t, err)
}

// ---- transition alerts ----

func TestCheckUpcomingTransitionsSendsOnceAndDeduplicates(t *testing.T) {
	h := newHarness(t)
	h.addAddress(100, "Дім", "1.1")
	h.putCache("2026-01-17", "1.1", "10:00-12:00")

	require.NoError(t, h.svc.CheckUpcomingTransitions(context.Background(), testNow()))
	require.Len(t, h.client.sent, 1)
	msg := h.client.sent[0]
	assert.Equal(t, int64(100), msg.chatID)
	assert.Contains(t, msg.text, "ВІДКЛЮЧЕННЯ ЕЛЕКТРОЕНЕРГІЇ")
	assert.Contains(t, msg.text, "10:20")
	assert.Contains(t, msg.text, "Дім")

	require.NoError(t, h.svc.CheckUpcomingTransitions(context.Background(), testNow()))
	assert.Len(t, h.client.sent, 1, "second check must not resend the same event")
}

func TestCheckUpcomingTransitionsGroupsAddressesIntoOneMessage(t *testing.T) {
	h := newHarness(t)
	h.addAddress(100, "Офіс", "1.2")
	h.addAddress(100, "Дім", "1.1")
	h.putCache("2026-01-17", "1.1", "10:00-12:00")
	h.putCache("2026-01-17", "1.2", "10:00-12:00")

	require.NoError(t, h.svc.CheckUpcomingTransitions(context.Background(), testNow()))
	require.Len(t, h.client.sent, 1)
	assert.Contains(t, h.client.sent[0].text, "Дім, Офіс")
}

func TestCheckUpcomingTransitionsSendFailureRetriesNextCheck(t *testing.T) {
	h := newHarness(t)
	h.addAddress(100, "Дім", "1.1")
	h.putCache("2026-01-17", "1.1", "10:00-12:00")

	h.client.sendErr = errors.New("telegram: 502")
	require.NoError(t, h.svc.CheckUpcomingTransitions(context.Background(), testNow()))
	assert.Empty(t, h.client.sent)

	sent, err := h.alertRepo.WasSent(context.Background(), 100, "10:20", "2026-01-17")
	require.NoError(t, err)
	assert.False(t, sent, "no sent-log row without a confirmed delivery")

	h.client.sendErr = nil
	require.NoError(t, h.svc.CheckUpcomingTransitions(context.Background(), testNow()))
	assert.Len(t, h.client.sent, 1)

	sent, err = h.alertRepo.WasSent(context.Background(), 100, "10:20", "2026-01-17")
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestCheckUpcomingTransitionsMarkSentFailurePropagates(t *testing.T) {
	h := newHarness(t)
	h.addAddress(100, "Дім", "1.1")
	h.putCache("2026-01-17", "1.1", "10:00-12:00")
	h.alertRepo.markErr = errors.New("db gone")

	err := h.svc.CheckUpcomingTransitions(context.Background(), testNow())
	assert.Error(t, err)
	assert.Len(t, h.client.sent, 1, "delivery happened before the bookkeeping failed")
}

func TestCheckUpcomingTransitionsRecoveryAlert(t *testing.T) {
	h := newHarness(t)
	h.addAddress(100, "Дім", "1.1")
	h.putCache("2026-01-17", "1.1", "08:00-10:00")

	require.NoError(t, h.svc.CheckUpcomingTransitions(context.Background(), testNow()))
	require.Len(t, h.client.sent, 1)
	assert.Contains(t, h.client.sent[0].text, "ВІДНОВЛЕННЯ ЕЛЕКТРОЕНЕРГІЇ")
}

func TestCheckUpcomingTransitionsMidnightContinuitySilent(t *testing.T) {
	h := newHarness(t)
	h.addAddress(100, "Дім", "1.1")
	h.putCache("2026-01-17", "1.1", "22:00-24:00")
	h.putCache("2026-01-18", "1.1", "00:00-01:00")

	now := time.Date(2026, 1, 17, 23, 40, 0, 0, kyiv)
	require.NoError(t, h.svc.CheckUpcomingTransitions(context.Background(), now))
	assert.Empty(t, h.client.sent, "outage continuing across midnight is not a transition")
}

func TestCheckUpcomingTransitionsDisabledGlobalSwitch(t *testing.T) {
	h := newHarness(t)
	h.addAddress(100, "Дім", "1.1")
	h.putCache("2026-01-17", "1.1", "10:00-12:00")
	h.directory.settings["100|"] = &subscriber.Settings{NotificationsEnabled: false}

	require.NoError(t, h.svc.CheckUpcomingTransitions(context.Background(), testNow()))
	assert.Empty(t, h.client.sent)
}

func TestCheckUpcomingTransitionsNoScheduleNoAlert(t *testing.T) {
	h := newHarness(t)
	h.addAddress(100, "Дім", "1.1")

	require.NoError(t, h.svc.CheckUpcomingTransitions(context.Background(), testNow()))
	assert.Empty(t, h.client.sent)
}

// ---- queries ----

func TestGetNormalizedSchedule(t *testing.T) {
	h := newHarness(t)
	h.putCache("2026-01-17", "1.1", "10:00-12:00")

	text, ok, err := h.svc.GetNormalizedSchedule(context.Background(), "2026-01-17", "1.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "10:00-12:00", text)

	_, ok, err = h.svc.GetNormalizedSchedule(context.Background(), "2026-01-17", "4.2")
	require.NoError(t, err)
	assert.False(t, ok)
}

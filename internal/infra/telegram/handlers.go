package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"outage_notification_bot/internal/app"
	"outage_notification_bot/internal/domain/schedule"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

var subqueueArgRe = regexp.MustCompile(`^\d{1,2}\.\d$`)

// RegisterBotHandlers wires the monitor's exposed operations to bot
// commands: /refresh (admin-only manual ingestion) and /schedule
// (read-only cached schedule lookup). Everything conversational beyond
// these lives in the front-end, not here.
func RegisterBotHandlers(
	ctx context.Context,
	b *telebot.Bot,
	queryService *app.QueryService,
	loc *time.Location,
	baseLogger *logrus.Entry,
) {
	b.Handle("/refresh", func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler":   "/refresh",
			"sender_id": c.Sender().ID,
		})
		logCtx.Info("Command received")

		updated, err := queryService.ManualRefresh(ctx, c.Sender().ID)
		if err != nil {
			if err == app.ErrNotAuthorized {
				logCtx.Warn("Unauthorized refresh attempt")
				return c.Send("У вас немає прав для виконання цієї команди.")
			}
			logCtx.WithError(err).Error("Manual refresh failed")
			return c.Send("Не вдалося оновити графік. Спробуйте пізніше.")
		}

		if len(updated) == 0 {
			return c.Send("Графік перевірено, змін немає.")
		}
		dates := make([]string, 0, len(updated))
		for _, d := range updated {
			dates = append(dates, string(d))
		}
		return c.Send(fmt.Sprintf("Графік оновлено. Змінені дати: %s", strings.Join(dates, ", ")))
	})

	b.Handle("/schedule", func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(logrus.Fields{
			"handler":   "/schedule",
			"sender_id": c.Sender().ID,
		})

		args := c.Args()
		// Expected: /schedule <subqueue> [YYYY-MM-DD]
		if len(args) < 1 || len(args) > 2 || !subqueueArgRe.MatchString(args[0]) {
			return c.Send("Формат команди: /schedule <підчерга> [дата], наприклад /schedule 3.1 або /schedule 3.1 2026-01-17")
		}
		sq := schedule.SubqueueID(args[0])

		date := schedule.DateOf(time.Now().In(loc))
		if len(args) == 2 {
			t, err := time.ParseInLocation("2006-01-02", args[1], loc)
			if err != nil {
				return c.Send("Невірний формат дати. Використовуйте YYYY-MM-DD.")
			}
			date = schedule.DateOf(t)
		}

		text, err := queryService.FormattedSchedule(ctx, date, sq)
		if err != nil {
			if err == app.ErrScheduleNotFound {
				return c.Send(fmt.Sprintf("Графік для підчерги %s на %s ще не опубліковано.", sq, date.Display()))
			}
			logCtx.WithError(err).Error("Schedule lookup failed")
			return c.Send("Не вдалося отримати графік. Спробуйте пізніше.")
		}
		return c.Send(text, &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	})
}

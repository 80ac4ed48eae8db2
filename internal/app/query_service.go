package app

import (
	"context"
	"fmt"
	"strings"

	"outage_notification_bot/internal/domain/schedule"
)

// Custom application-level errors for the query surface.
var (
	ErrNotAuthorized    = fmt.Errorf("performing user is not authorized as an admin")
	ErrScheduleNotFound = fmt.Errorf("no schedule cached for the requested date and subqueue")
)

// QueryService exposes the engine's read-only schedule lookups and the
// admin-gated manual refresh to the presentation layer.
type QueryService struct {
	monitor         Monitor
	adminTelegramID int64
}

func NewQueryService(m Monitor, adminTelegramID int64) *QueryService {
	return &QueryService{monitor: m, adminTelegramID: adminTelegramID}
}

// ManualRefresh runs one ingestion cycle on demand. Only the configured
// admin may trigger it.
func (s *QueryService) ManualRefresh(ctx context.Context, performingUserID int64) ([]schedule.Date, error) {
	if performingUserID != s.adminTelegramID {
		return nil, ErrNotAuthorized
	}
	return s.monitor.RunIngestionCycle(ctx)
}

// FormattedSchedule renders the cached schedule for a (date, subqueue)
// as chronologically labeled periods covering the whole day.
func (s *QueryService) FormattedSchedule(ctx context.Context, date schedule.Date, sq schedule.SubqueueID) (string, error) {
	text, ok, err := s.monitor.GetNormalizedSchedule(ctx, date, sq)
	if err != nil {
		return "", fmt.Errorf("schedule lookup failed: %w", err)
	}
	if !ok {
		return "", ErrScheduleNotFound
	}

	lines := schedule.FormatPeriods(schedule.ToIntervalSet(text))
	var b strings.Builder
	fmt.Fprintf(&b, "📅 <b>%s</b>\n📍 Підчерга: <b>%s</b>\n\n", date.Display(), sq)
	b.WriteString(strings.Join(lines, "\n"))
	return b.String(), nil
}

package alert

import (
	"context"

	"outage_notification_bot/internal/domain/schedule"
)

// Repository is the persisted sent-log preventing duplicate delivery of
// the same transition notification.
type Repository interface {
	WasSent(ctx context.Context, subscriberID int64, eventTime string, eventDate schedule.Date) (bool, error)
	// MarkSent must only be called after a confirmed send; a row for an
	// unconfirmed message would silently drop the retry.
	MarkSent(ctx context.Context, a *SentAlert) error
	// PruneBefore deletes rows whose event date is strictly before the
	// given date.
	PruneBefore(ctx context.Context, date schedule.Date) (int64, error)
}

package subscriber

import "outage_notification_bot/internal/domain/schedule"

// Address is one saved location of a subscriber, bound to the subqueue
// whose outage schedule applies to it.
type Address struct {
	SubscriberID int64
	Label        string
	Subqueue     schedule.SubqueueID
	IsMain       bool
}

// Settings are the notification switches for a subscriber, either
// global (empty address label) or per address. A message is only sent
// when both the global and the per-address switch are on.
type Settings struct {
	NotificationsEnabled   bool
	NewScheduleEnabled     bool
	ScheduleChangesEnabled bool
}

package alert

import (
	"time"

	"outage_notification_bot/internal/domain/schedule"
)

// Status is the computed supply state of a subqueue at an instant.
type Status string

const (
	StatusOn       Status = "on"
	StatusPossible Status = "possible"
	StatusOff      Status = "off"
)

// Transition is a change in computed status between two sampled
// instants. At is the probe instant the new status was observed at, not
// the interpolated boundary.
type Transition struct {
	From Status
	To   Status
	At   time.Time
}

// SentAlert records one delivered transition notification. The
// (SubscriberID, EventTime, EventDate) triple is the dedup key: the
// detector recomputes the same upcoming transition every check until it
// leaves the lookahead window, and this row is what keeps the second
// and later hits silent.
type SentAlert struct {
	SubscriberID int64
	EventTime    string // "HH:MM"
	EventDate    schedule.Date
}

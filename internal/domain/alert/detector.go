package alert

import (
	"time"

	"outage_notification_bot/internal/domain/schedule"
)

// StatusAt computes the supply status of a subqueue at an instant from
// today's and tomorrow's interval sets, each anchored to its own
// midnight relative to dayStart. Off wins over possible for the same
// instant; anything uncovered is on.
func StatusAt(today, tomorrow schedule.IntervalSet, dayStart, instant time.Time) Status {
	tomorrowStart := dayStart.Add(24 * time.Hour)
	if inAny(today.Guaranteed, dayStart, instant) || inAny(tomorrow.Guaranteed, tomorrowStart, instant) {
		return StatusOff
	}
	if inAny(today.Possible, dayStart, instant) || inAny(tomorrow.Possible, tomorrowStart, instant) {
		return StatusPossible
	}
	return StatusOn
}

func inAny(intervals []schedule.HourInterval, dayStart, instant time.Time) bool {
	for _, iv := range intervals {
		start := dayStart.Add(time.Duration(iv.Start) * time.Hour)
		end := dayStart.Add(time.Duration(iv.End) * time.Hour)
		if !instant.Before(start) && instant.Before(end) {
			return true
		}
	}
	return false
}

// NextTransition probes the status at now and at now+horizon and
// reports a transition when they differ, timestamped at the probe
// instant. The two-point probe is a fixed-cost check: status flapping
// strictly inside the window is not observed.
func NextTransition(today, tomorrow schedule.IntervalSet, dayStart, now time.Time, horizon time.Duration) *Transition {
	probe := now.Add(horizon)
	current := StatusAt(today, tomorrow, dayStart, now)
	future := StatusAt(today, tomorrow, dayStart, probe)
	if current == future {
		return nil
	}
	return &Transition{From: current, To: future, At: probe}
}

package schedule

import "time"

// SubqueueID names a service group sharing one outage schedule,
// formatted "<group>.<phase>", e.g. "3.1".
type SubqueueID string

// Date is a calendar day key in ISO form "2006-01-02". ISO keys compare
// chronologically as plain strings, which the cache pruning relies on.
type Date string

const dateLayout = "2006-01-02"

// DateOf returns the Date of the given instant in its location.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return string(d) < string(other)
}

// Display renders the date the way messages show it to Ukrainian
// readers, "17.01.2026". Malformed dates pass through unchanged.
func (d Date) Display() string {
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return string(d)
	}
	return t.Format("02.01.2006")
}

// Time returns the midnight instant of the date in loc. The zero time
// is returned for malformed dates.
func (d Date) Time(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(dateLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Snapshot is the freshly ingested schedule state for one date:
// normalized text per subqueue plus the identity token of the source
// image, used to detect republication even when the grid content is
// unchanged.
type Snapshot struct {
	Date      Date
	Schedules map[SubqueueID]string
	ImageURL  string
	Token     string
}

// CacheEntry is the persisted normalized schedule text for one
// (date, subqueue), kept only for diffing against fresh snapshots.
type CacheEntry struct {
	Date       Date
	Subqueue   SubqueueID
	Text       string
	ImageToken string
	HasData    bool
}

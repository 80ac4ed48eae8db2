package schedule

import (
	"fmt"
	"regexp"
	"sort"
)

// HourInterval is a half-open hour range [Start, End) on a 24h clock.
// A schedule crossing midnight is stored as two intervals on adjacent
// dates, never as Start > End.
type HourInterval struct {
	Start int
	End   int
}

// IntervalSet holds the parsed outage intervals for one (date, subqueue).
// Guaranteed and Possible may overlap each other; guaranteed wins when
// computing a status.
type IntervalSet struct {
	Guaranteed []HourInterval
	Possible   []HourInterval
}

// IsEmpty reports whether the set contains no intervals at all.
func (s IntervalSet) IsEmpty() bool {
	return len(s.Guaranteed) == 0 && len(s.Possible) == 0
}

var intervalTokenRe = regexp.MustCompile(`(\d{1,2}):00-(\d{1,2}):00`)

// ParseIntervals extracts "HH:00-HH:00" tokens from schedule text.
// Malformed or out-of-range tokens are skipped, never fatal.
func ParseIntervals(text string) []HourInterval {
	if text == "" {
		return nil
	}
	var intervals []HourInterval
	for _, m := range intervalTokenRe.FindAllStringSubmatch(text, -1) {
		start := atoiHour(m[1])
		end := atoiHour(m[2])
		if start < 0 || end > 24 || start >= end {
			continue
		}
		intervals = append(intervals, HourInterval{Start: start, End: end})
	}
	return intervals
}

func atoiHour(s string) int {
	n := 0
	for _, c := range s {
		n = n*10 + int(c-'0')
	}
	return n
}

// MergeConsecutive sorts intervals by start and folds overlapping or
// adjacent pairs into one. Idempotent.
func MergeConsecutive(intervals []HourInterval) []HourInterval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]HourInterval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	merged := []HourInterval{sorted[0]}
	for _, cur := range sorted[1:] {
		last := &merged[len(merged)-1]
		if cur.Start <= last.End {
			if cur.End > last.End {
				last.End = cur.End
			}
		} else {
			merged = append(merged, cur)
		}
	}
	return merged
}

// Period markers used in formatted schedule lines.
const (
	markerOff      = "🔴"
	markerPossible = "🟡"
	markerOn       = "🟢"
)

type labeledPeriod struct {
	HourInterval
	marker string
}

// FormatPeriods renders the full day as chronologically sorted labeled
// lines: guaranteed outages, possible outages and the supply periods in
// between. Supply periods are derived with a running covered-until
// pointer over the merged outage union, so overlapping guaranteed and
// possible spans cannot produce duplicate supply segments.
func FormatPeriods(set IntervalSet) []string {
	var outages []labeledPeriod
	for _, iv := range MergeConsecutive(set.Guaranteed) {
		outages = append(outages, labeledPeriod{iv, markerOff})
	}
	for _, iv := range MergeConsecutive(set.Possible) {
		outages = append(outages, labeledPeriod{iv, markerPossible})
	}
	sort.Slice(outages, func(i, j int) bool { return outages[i].Start < outages[j].Start })

	all := make([]labeledPeriod, 0, len(outages)*2+1)
	covered := 0
	for _, o := range outages {
		if covered < o.Start {
			all = append(all, labeledPeriod{HourInterval{covered, o.Start}, markerOn})
		}
		if o.End > covered {
			covered = o.End
		}
		all = append(all, o)
	}
	if covered < 24 {
		all = append(all, labeledPeriod{HourInterval{covered, 24}, markerOn})
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Start < all[j].Start })

	lines := make([]string, 0, len(all))
	for _, p := range all {
		lines = append(lines, fmt.Sprintf("%s %02d:00-%02d:00", p.marker, p.Start, p.End))
	}
	return lines
}

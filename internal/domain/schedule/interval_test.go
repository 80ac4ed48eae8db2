package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIntervals(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []HourInterval
	}{
		{
			name: "plain list",
			text: "01:00-02:00, 03:00-04:00",
			want: []HourInterval{{1, 2}, {3, 4}},
		},
		{
			name: "single digit hours",
			text: "1:00-2:00",
			want: []HourInterval{{1, 2}},
		},
		{
			name: "malformed tokens skipped",
			text: "junk, 05:00-06:00, 99:00-07:00, 10:00-08:00",
			want: []HourInterval{{5, 6}},
		},
		{
			name: "end of day",
			text: "22:00-24:00",
			want: []HourInterval{{22, 24}},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseIntervals(tc.text))
		})
	}
}

func TestMergeConsecutive(t *testing.T) {
	tests := []struct {
		name string
		in   []HourInterval
		want []HourInterval
	}{
		{
			name: "adjacent fold",
			in:   []HourInterval{{1, 2}, {2, 3}},
			want: []HourInterval{{1, 3}},
		},
		{
			name: "overlapping fold",
			in:   []HourInterval{{1, 4}, {3, 6}},
			want: []HourInterval{{1, 6}},
		},
		{
			name: "unsorted input",
			in:   []HourInterval{{10, 12}, {1, 2}, {2, 4}},
			want: []HourInterval{{1, 4}, {10, 12}},
		},
		{
			name: "contained interval",
			in:   []HourInterval{{1, 6}, {2, 3}},
			want: []HourInterval{{1, 6}},
		},
		{
			name: "disjoint untouched",
			in:   []HourInterval{{1, 2}, {4, 5}},
			want: []HourInterval{{1, 2}, {4, 5}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MergeConsecutive(tc.in))
		})
	}
}

func TestMergeConsecutiveIdempotent(t *testing.T) {
	in := []HourInterval{{5, 7}, {1, 2}, {2, 3}, {6, 9}}
	once := MergeConsecutive(in)
	twice := MergeConsecutive(once)
	assert.Equal(t, once, twice)
}

func TestMergeConsecutiveDoesNotMutateInput(t *testing.T) {
	in := []HourInterval{{4, 5}, {1, 2}}
	MergeConsecutive(in)
	assert.Equal(t, []HourInterval{{4, 5}, {1, 2}}, in)
}

func TestFormatPeriodsFullDay(t *testing.T) {
	set := IntervalSet{
		Guaranteed: []HourInterval{{1, 3}},
		Possible:   []HourInterval{{5, 6}},
	}
	assert.Equal(t, []string{
		"🟢 00:00-01:00",
		"🔴 01:00-03:00",
		"🟢 03:00-05:00",
		"🟡 05:00-06:00",
		"🟢 06:00-24:00",
	}, FormatPeriods(set))
}

func TestFormatPeriodsOverlappingClassesNoDuplicateOnSegments(t *testing.T) {
	// Possible span inside the guaranteed one: the covered-until pointer
	// must not re-open a supply period under the overlap.
	set := IntervalSet{
		Guaranteed: []HourInterval{{2, 8}},
		Possible:   []HourInterval{{4, 6}},
	}
	assert.Equal(t, []string{
		"🟢 00:00-02:00",
		"🔴 02:00-08:00",
		"🟡 04:00-06:00",
		"🟢 08:00-24:00",
	}, FormatPeriods(set))
}

func TestFormatPeriodsEmptySetIsAllOn(t *testing.T) {
	assert.Equal(t, []string{"🟢 00:00-24:00"}, FormatPeriods(IntervalSet{}))
}

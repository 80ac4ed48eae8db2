package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func snapshotFixture() Snapshot {
	return Snapshot{
		Date: "2026-01-17",
		Schedules: map[SubqueueID]string{
			"1.1": "01:00-03:00",
			"3.2": "10:00-12:00; 14:00-15:00",
		},
		Token: "https://example.com/img/v1.png",
	}
}

func cachedFromSnapshot(s Snapshot) map[SubqueueID]*CacheEntry {
	cached := make(map[SubqueueID]*CacheEntry)
	for sq, text := range s.Schedules {
		cached[sq] = &CacheEntry{
			Date:       s.Date,
			Subqueue:   sq,
			Text:       text,
			ImageToken: s.Token,
			HasData:    true,
		}
	}
	return cached
}

func TestDiffSnapshotEmptyCacheEverythingNew(t *testing.T) {
	fresh := snapshotFixture()
	diff := DiffSnapshot(fresh, map[SubqueueID]*CacheEntry{})
	assert.Equal(t, []SubqueueID{"1.1", "3.2"}, diff.New)
	assert.Empty(t, diff.Changed)
}

func TestDiffSnapshotIdenticalCacheIsEmpty(t *testing.T) {
	fresh := snapshotFixture()
	diff := DiffSnapshot(fresh, cachedFromSnapshot(fresh))
	assert.True(t, diff.IsEmpty())
}

func TestDiffSnapshotTextChange(t *testing.T) {
	fresh := snapshotFixture()
	cached := cachedFromSnapshot(fresh)
	cached["1.1"].Text = "02:00-04:00"
	diff := DiffSnapshot(fresh, cached)
	assert.Empty(t, diff.New)
	assert.Equal(t, []SubqueueID{"1.1"}, diff.Changed)
}

func TestDiffSnapshotTokenAdvanceWithUnchangedText(t *testing.T) {
	// The source can republish a corrected image before its text layer
	// regenerates; the token advance alone must count as a change.
	fresh := snapshotFixture()
	cached := cachedFromSnapshot(fresh)
	for _, e := range cached {
		e.ImageToken = "https://example.com/img/v0.png"
	}
	diff := DiffSnapshot(fresh, cached)
	assert.Empty(t, diff.New)
	assert.Equal(t, []SubqueueID{"1.1", "3.2"}, diff.Changed)
}

func TestDiffSnapshotEntryWithoutDataCountsAsNew(t *testing.T) {
	fresh := snapshotFixture()
	cached := cachedFromSnapshot(fresh)
	cached["3.2"].HasData = false
	cached["3.2"].Text = ""
	diff := DiffSnapshot(fresh, cached)
	assert.Equal(t, []SubqueueID{"3.2"}, diff.New)
	assert.Empty(t, diff.Changed)
}

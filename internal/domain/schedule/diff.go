package schedule

import "sort"

// DiffResult lists the subqueues whose schedule appeared or changed in a
// fresh snapshot relative to the cache.
type DiffResult struct {
	New     []SubqueueID
	Changed []SubqueueID
}

// IsEmpty reports whether the diff found nothing to announce.
func (d DiffResult) IsEmpty() bool {
	return len(d.New) == 0 && len(d.Changed) == 0
}

// DiffSnapshot compares a fresh snapshot against the cached entries for
// the same date. A subqueue is "new" when the cache has no data for it,
// "changed" when the normalized text differs, or when the image token
// advanced while the text stayed equal — the source can republish a
// corrected image before its text layer regenerates.
func DiffSnapshot(fresh Snapshot, cached map[SubqueueID]*CacheEntry) DiffResult {
	var result DiffResult
	for subqueue, text := range fresh.Schedules {
		entry, ok := cached[subqueue]
		switch {
		case !ok || !entry.HasData:
			result.New = append(result.New, subqueue)
		case entry.Text != text:
			result.Changed = append(result.Changed, subqueue)
		case entry.ImageToken != fresh.Token:
			result.Changed = append(result.Changed, subqueue)
		}
	}
	sortSubqueues(result.New)
	sortSubqueues(result.Changed)
	return result
}

func sortSubqueues(ids []SubqueueID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

package schedule

import "context"

// Repository defines the durable (date, subqueue) -> schedule text store
// backing the differ and the read-only schedule queries.
type Repository interface {
	Get(ctx context.Context, date Date, subqueue SubqueueID) (*CacheEntry, error)
	ListByDate(ctx context.Context, date Date) ([]*CacheEntry, error)
	Put(ctx context.Context, entry *CacheEntry) error
	// PruneBefore deletes entries dated strictly before the given date
	// and returns the number of rows removed. Future dates absent from
	// the latest fetch are never touched.
	PruneBefore(ctx context.Context, date Date) (int64, error)
}

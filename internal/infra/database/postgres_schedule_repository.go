package database

import (
	"context"
	"database/sql"
	"fmt"

	"outage_notification_bot/internal/domain/schedule"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// ErrCacheEntryNotFound is returned when no schedule text is cached for
// a (date, subqueue).
var ErrCacheEntryNotFound = fmt.Errorf("schedule cache entry not found")

type PostgresScheduleRepository struct {
	db *sql.DB
}

func NewPostgresScheduleRepository(db *sql.DB) *PostgresScheduleRepository {
	return &PostgresScheduleRepository{db: db}
}

func (r *PostgresScheduleRepository) Get(ctx context.Context, date schedule.Date, subqueue schedule.SubqueueID) (*schedule.CacheEntry, error) {
	query := `SELECT date, subqueue, schedule_text, image_token, has_data
               FROM schedule_cache WHERE date = $1 AND subqueue = $2`
	entry := schedule.CacheEntry{}
	err := r.db.QueryRowContext(ctx, query, string(date), string(subqueue)).Scan(
		&entry.Date, &entry.Subqueue, &entry.Text, &entry.ImageToken, &entry.HasData,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCacheEntryNotFound
		}
		return nil, fmt.Errorf("error getting schedule cache entry: %w", err)
	}
	return &entry, nil
}

func (r *PostgresScheduleRepository) ListByDate(ctx context.Context, date schedule.Date) ([]*schedule.CacheEntry, error) {
	query := `SELECT date, subqueue, schedule_text, image_token, has_data
               FROM schedule_cache WHERE date = $1 ORDER BY subqueue`
	rows, err := r.db.QueryContext(ctx, query, string(date))
	if err != nil {
		return nil, fmt.Errorf("error listing schedule cache entries for date %s: %w", date, err)
	}
	defer rows.Close()

	entries := make([]*schedule.CacheEntry, 0)
	for rows.Next() {
		entry := schedule.CacheEntry{}
		if err := rows.Scan(&entry.Date, &entry.Subqueue, &entry.Text, &entry.ImageToken, &entry.HasData); err != nil {
			return nil, fmt.Errorf("error scanning schedule cache row: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule cache rows: %w", err)
	}
	return entries, nil
}

// Put upserts an entry. Last writer wins: snapshot content is
// idempotently re-derived from the source every cycle.
func (r *PostgresScheduleRepository) Put(ctx context.Context, entry *schedule.CacheEntry) error {
	query := `INSERT INTO schedule_cache (date, subqueue, schedule_text, image_token, has_data)
               VALUES ($1, $2, $3, $4, $5)
               ON CONFLICT (date, subqueue) DO UPDATE
               SET schedule_text = EXCLUDED.schedule_text,
                   image_token = EXCLUDED.image_token,
                   has_data = EXCLUDED.has_data,
                   updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		string(entry.Date), string(entry.Subqueue), entry.Text, entry.ImageToken, entry.HasData)
	if err != nil {
		return fmt.Errorf("error upserting schedule cache entry (%s, %s): %w", entry.Date, entry.Subqueue, err)
	}
	return nil
}

func (r *PostgresScheduleRepository) PruneBefore(ctx context.Context, date schedule.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedule_cache WHERE date < $1`, string(date))
	if err != nil {
		return 0, fmt.Errorf("error pruning schedule cache before %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading pruned row count: %w", err)
	}
	return n, nil
}

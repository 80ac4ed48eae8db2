package database

import (
	"context"
	"database/sql"
	"fmt"

	"outage_notification_bot/internal/domain/alert"
	"outage_notification_bot/internal/domain/schedule"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type PostgresAlertRepository struct {
	db *sql.DB
}

func NewPostgresAlertRepository(db *sql.DB) *PostgresAlertRepository {
	return &PostgresAlertRepository{db: db}
}

func (r *PostgresAlertRepository) WasSent(ctx context.Context, subscriberID int64, eventTime string, eventDate schedule.Date) (bool, error) {
	query := `SELECT 1 FROM sent_alerts WHERE subscriber_id = $1 AND event_time = $2 AND event_date = $3`
	var one int
	err := r.db.QueryRowContext(ctx, query, subscriberID, eventTime, string(eventDate)).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("error checking sent alert: %w", err)
	}
	return true, nil
}

func (r *PostgresAlertRepository) MarkSent(ctx context.Context, a *alert.SentAlert) error {
	query := `INSERT INTO sent_alerts (subscriber_id, event_time, event_date)
               VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, a.SubscriberID, a.EventTime, string(a.EventDate))
	if err != nil {
		return fmt.Errorf("error recording sent alert for subscriber %d: %w", a.SubscriberID, err)
	}
	return nil
}

func (r *PostgresAlertRepository) PruneBefore(ctx context.Context, date schedule.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sent_alerts WHERE event_date < $1`, string(date))
	if err != nil {
		return 0, fmt.Errorf("error pruning sent alerts before %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error reading pruned row count: %w", err)
	}
	return n, nil
}

package database

import (
	"context"
	"database/sql"
	"fmt"

	"outage_notification_bot/internal/domain/subscriber"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// PostgresSubscriberDirectory is a read-only view over the address book
// and notification settings owned by the conversational front-end.
type PostgresSubscriberDirectory struct {
	db *sql.DB
}

func NewPostgresSubscriberDirectory(db *sql.DB) *PostgresSubscriberDirectory {
	return &PostgresSubscriberDirectory{db: db}
}

func (r *PostgresSubscriberDirectory) ListAllAddresses(ctx context.Context) ([]*subscriber.Address, error) {
	query := `SELECT subscriber_id, name, subqueue, is_main
               FROM addresses ORDER BY subscriber_id, name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing subscriber addresses: %w", err)
	}
	defer rows.Close()

	addresses := make([]*subscriber.Address, 0)
	for rows.Next() {
		a := subscriber.Address{}
		if err := rows.Scan(&a.SubscriberID, &a.Label, &a.Subqueue, &a.IsMain); err != nil {
			return nil, fmt.Errorf("error scanning address row: %w", err)
		}
		addresses = append(addresses, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating address rows: %w", err)
	}
	return addresses, nil
}

// NotificationSettings returns the switches for a subscriber; the empty
// address label selects the global row. A subscriber without a settings
// row gets everything enabled, matching the defaults the front-end
// seeds.
func (r *PostgresSubscriberDirectory) NotificationSettings(ctx context.Context, subscriberID int64, addressLabel string) (*subscriber.Settings, error) {
	var row *sql.Row
	if addressLabel == "" {
		row = r.db.QueryRowContext(ctx,
			`SELECT notifications_enabled, new_schedule_enabled, schedule_changes_enabled
              FROM subscriber_notifications WHERE subscriber_id = $1 AND address_name IS NULL`, subscriberID)
	} else {
		row = r.db.QueryRowContext(ctx,
			`SELECT notifications_enabled, new_schedule_enabled, schedule_changes_enabled
              FROM subscriber_notifications WHERE subscriber_id = $1 AND address_name = $2`, subscriberID, addressLabel)
	}

	s := subscriber.Settings{}
	err := row.Scan(&s.NotificationsEnabled, &s.NewScheduleEnabled, &s.ScheduleChangesEnabled)
	if err != nil {
		if err == sql.ErrNoRows {
			return &subscriber.Settings{NotificationsEnabled: true, NewScheduleEnabled: true, ScheduleChangesEnabled: true}, nil
		}
		return nil, fmt.Errorf("error getting notification settings for subscriber %d: %w", subscriberID, err)
	}
	return &s, nil
}

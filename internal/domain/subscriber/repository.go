package subscriber

import "context"

// Directory exposes the subscriber address book and notification
// settings maintained by the conversational front-end. The monitor only
// reads it.
type Directory interface {
	ListAllAddresses(ctx context.Context) ([]*Address, error)
	// NotificationSettings returns the switches for a subscriber; an
	// empty addressLabel selects the global row. Missing rows default
	// to everything enabled.
	NotificationSettings(ctx context.Context, subscriberID int64, addressLabel string) (*Settings, error)
}

package telegram

import (
	"context"

	"gopkg.in/telebot.v3"
)

// Client defines the outbound message channel used by the monitor,
// decoupling it from the concrete bot library. Sends may suspend on
// network I/O; implementations are expected to pace themselves against
// the channel's flood limits.
type Client interface {
	SendMessage(ctx context.Context, recipientChatID int64, text string, options *telebot.SendOptions) error
	// SendPhoto sends an image by URL with a caption; the transport
	// fetches the URL itself.
	SendPhoto(ctx context.Context, recipientChatID int64, photoURL, caption string, options *telebot.SendOptions) error
}

package telegram

import (
	"context"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the domain telegram.Client interface using
// gopkg.in/telebot.v3. Every send first waits on a shared rate limiter
// so bulk dispatch stays under Telegram's flood limits; the wait honors
// the caller's context, so one slow subscriber cannot wedge a cancelled
// cycle.
type TelebotAdapter struct {
	bot     *telebot.Bot
	limiter *rate.Limiter
}

func NewTelebotAdapter(b *telebot.Bot, sendRatePerSec int) *TelebotAdapter {
	if sendRatePerSec <= 0 {
		sendRatePerSec = 20
	}
	return &TelebotAdapter{
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(sendRatePerSec), 1),
	}
}

// SendMessage sends a text message to the given chat.
func (tba *TelebotAdapter) SendMessage(ctx context.Context, recipientChatID int64, text string, options *telebot.SendOptions) error {
	if err := tba.limiter.Wait(ctx); err != nil {
		return err
	}
	if options == nil {
		options = &telebot.SendOptions{}
	}
	_, err := tba.bot.Send(&telebot.User{ID: recipientChatID}, text, options)
	return err
}

// SendPhoto sends a photo by URL with a caption; Telegram fetches the
// URL itself.
func (tba *TelebotAdapter) SendPhoto(ctx context.Context, recipientChatID int64, photoURL, caption string, options *telebot.SendOptions) error {
	if err := tba.limiter.Wait(ctx); err != nil {
		return err
	}
	if options == nil {
		options = &telebot.SendOptions{}
	}
	photo := &telebot.Photo{File: telebot.FromURL(photoURL), Caption: caption}
	_, err := tba.bot.Send(&telebot.User{ID: recipientChatID}, photo, options)
	return err
}

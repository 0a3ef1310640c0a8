// Package telegram forwards notifications to a Telegram chat through a bot.
package telegram

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// Sender delivers a notification to the configured chat.
type Sender interface {
	SendNotification(ctx context.Context, title, body string) error
}

// chattableSender is the part of *tgbotapi.BotAPI the sender uses.
type chattableSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type botSender struct {
	api    chattableSender
	chatID int64
}

// NewBotSender authenticates the bot token (one getMe call) and returns a
// Sender posting to chatID.
func NewBotSender(token string, chatID int64) (Sender, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	if chatID == 0 {
		return nil, fmt.Errorf("telegram chat id is empty")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telegram bot: %w", err)
	}
	log.Printf("[telegram] authorized as %s", api.Self.UserName)

	return newSender(api, chatID), nil
}

func newSender(api chattableSender, chatID int64) Sender {
	return &botSender{api: api, chatID: chatID}
}

// SendNotification posts "title\nbody" as plain text.
// The bot API call does not take a context; ctx is only checked before sending.
func (s *botSender) SendNotification(ctx context.Context, title, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(s.chatID, title+"\n"+body)
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

type fakeAPI struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestSendNotification(t *testing.T) {
	api := &fakeAPI{}
	s := newSender(api, 42)

	if err := s.SendNotification(context.Background(), "Nuevo mensaje", "521: hola"); err != nil {
		t.Fatalf("SendNotification: %v", err)
	}
	if len(api.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(api.sent))
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want MessageConfig", api.sent[0])
	}
	if msg.Text != "Nuevo mensaje\n521: hola" {
		t.Errorf("text = %q", msg.Text)
	}
}

func TestSendNotificationErrors(t *testing.T) {
	api := &fakeAPI{err: errors.New("chat not found")}
	s := newSender(api, 42)

	if err := s.SendNotification(context.Background(), "t", "b"); err == nil {
		t.Error("expected send error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	api.sent = nil
	if err := s.SendNotification(ctx, "t", "b"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(api.sent) != 0 {
		t.Error("sent on cancelled context")
	}
}

func TestNewBotSenderValidates(t *testing.T) {
	if _, err := NewBotSender("", 1); err == nil {
		t.Error("expected error for empty token")
	}
	if _, err := NewBotSender("123:abc", 0); err == nil {
		t.Error("expected error for empty chat id")
	}
}

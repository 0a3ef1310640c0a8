// Package services holds the daemon's business logic.
//
// Each service is an interface plus a private struct returned by its
// constructor. Services depend on repository interfaces, backend.API and
// ws.EventPublisher, never on concrete transports.
package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/conectabot/inbox/engine"
	"github.com/conectabot/inbox/models"
	"github.com/conectabot/inbox/pkg/email"
	"github.com/conectabot/inbox/pkg/i18n"
	"github.com/conectabot/inbox/pkg/telegram"
	"github.com/conectabot/inbox/repository"
	"github.com/conectabot/inbox/ws"
)

// sinkTimeout bounds one external delivery (email, Telegram).
const sinkTimeout = 10 * time.Second

// Notifier delivers notifications raised by a reconcile pass.
type Notifier interface {
	// Dispatch fans every notification out to the UI, the log and the
	// configured external sinks. Delivery failures are logged, not returned.
	Dispatch(ctx context.Context, notifications []models.Notification)

	// Recent returns the newest logged notifications.
	Recent(ctx context.Context, limit int) ([]models.Notification, error)

	// Purge drops logged notifications older than retention.
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// NotifierConfig lists the optional sinks. Nil senders are skipped.
type NotifierConfig struct {
	Email    email.EmailSender
	EmailTo  string
	Telegram telegram.Sender
	Locale   string
}

type notifier struct {
	hub       ws.EventPublisher
	logRepo   repository.NotificationLogRepository
	email     email.EmailSender
	emailTo   string
	telegram  telegram.Sender
	localizer *i18n.Localizer
	clock     clock.Clock
}

// NewNotifier creates a Notifier. A nil clk uses the wall clock.
func NewNotifier(
	hub ws.EventPublisher,
	logRepo repository.NotificationLogRepository,
	cfg NotifierConfig,
	clk clock.Clock,
) Notifier {
	if clk == nil {
		clk = clock.New()
	}
	n := &notifier{
		hub:       hub,
		logRepo:   logRepo,
		telegram:  cfg.Telegram,
		localizer: i18n.NewLocalizer(cfg.Locale),
		clock:     clk,
	}
	if cfg.Email != nil && cfg.EmailTo != "" {
		n.email = cfg.Email
		n.emailTo = cfg.EmailTo
	}
	return n
}

func (n *notifier) Dispatch(ctx context.Context, notifications []models.Notification) {
	for _, notification := range notifications {
		notification.ID = uuid.New().String()
		notification.CreatedAt = n.clock.Now().UTC()

		log.Printf("[notify] %s: %s", notification.ConversationID, notification.Text)

		n.hub.BroadcastToAll(ws.Event{
			Op:   ws.OpNotify,
			Data: notification,
		})

		if err := n.logRepo.Append(ctx, notification); err != nil {
			log.Printf("[notify] failed to log notification for %s: %v", notification.ConversationID, err)
		}

		n.deliverExternal(ctx, notification)
	}
}

// deliverExternal sends to email and Telegram in parallel and waits for both.
// The fallback text is translated to the configured locale.
func (n *notifier) deliverExternal(ctx context.Context, notification models.Notification) {
	if n.email == nil && n.telegram == nil {
		return
	}

	text := notification.Text
	if text == engine.FallbackNotificationText {
		text = n.localizer.T("notify.fallback_text")
	}

	title := n.localizer.T("notify.title")
	body := n.localizer.TWithParams("notify.body", map[string]string{
		"number": notification.ConversationID,
		"text":   text,
	})

	sinkCtx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	var g errgroup.Group

	if n.email != nil {
		name := notification.DisplayName
		if name == "" {
			name = notification.ConversationID
		}
		msg := email.Message{
			To:      n.emailTo,
			Subject: n.localizer.TWithParams("notify.email_subject", map[string]string{"name": name}),
			Title:   title,
			Body:    body,
			Footer:  n.localizer.T("notify.email_open"),
		}
		g.Go(func() error {
			if err := n.email.SendNotification(sinkCtx, msg); err != nil {
				return fmt.Errorf("email: %w", err)
			}
			return nil
		})
	}

	if n.telegram != nil {
		g.Go(func() error {
			if err := n.telegram.SendNotification(sinkCtx, title, body); err != nil {
				return fmt.Errorf("telegram: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("[notify] external delivery failed for %s: %v", notification.ConversationID, err)
	}
}

func (n *notifier) Recent(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return n.logRepo.Recent(ctx, limit)
}

func (n *notifier) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := n.clock.Now().Add(-retention)
	purged, err := n.logRepo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		log.Printf("[notify] purged %d notifications older than %s", purged, retention)
	}
	return purged, nil
}

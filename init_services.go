package main

import (
	"database/sql"
	"log"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/conectabot/inbox/backend"
	"github.com/conectabot/inbox/config"
	"github.com/conectabot/inbox/engine"
	"github.com/conectabot/inbox/pkg/email"
	"github.com/conectabot/inbox/pkg/ratelimit"
	"github.com/conectabot/inbox/pkg/telegram"
	"github.com/conectabot/inbox/services"
	"github.com/conectabot/inbox/ws"
)

// Services holds the business logic layer.
type Services struct {
	Conversation services.ConversationService
	Timeline     services.TimelineService
	Marker       services.MarkerService
	Notifier     services.Notifier
}

// RateLimiters holds the limiters that own cleanup goroutines and must be
// closed on shutdown.
type RateLimiters struct {
	Message     *ratelimit.MessageRateLimiter
	AuthFailure *ratelimit.FailureLimiter
}

// Close stops every limiter.
func (rl *RateLimiters) Close() {
	rl.Message.Close()
	rl.AuthFailure.Close()
}

// initServices builds the services in dependency order:
// notifier → timeline → conversation → marker.
func initServices(
	cfg *config.Config,
	db *sql.DB,
	repos *Repositories,
	api backend.API,
	store *engine.Store,
	hub *ws.Hub,
) (*Services, *RateLimiters, error) {
	loc, err := cfg.Display.Location()
	if err != nil {
		return nil, nil, err
	}

	limiters := &RateLimiters{
		// 5 messages per conversation per 10s, then a 30s cooldown.
		Message: ratelimit.NewMessageRateLimiter(5, 10*time.Second, 30*time.Second),
		// 10 bad UI tokens per IP per 5 minutes.
		AuthFailure: ratelimit.NewFailureLimiter(10, 5*time.Minute),
	}

	notifier := services.NewNotifier(hub, repos.NotificationLog, initSinks(cfg), clock.New())

	timeline := services.NewTimelineService(
		api,
		clock.New(),
		cfg.Backend.PollInterval,
		engine.NewDayFormatter(cfg.Display.Locale, loc),
		hub,
	)

	conversation := services.NewConversationService(
		db,
		repos.ConversationState,
		repos.Marker,
		api,
		store,
		hub,
		notifier,
		timeline,
		limiters.Message,
	)

	marker := services.NewMarkerService(db, repos.Marker, conversation, hub)

	return &Services{
		Conversation: conversation,
		Timeline:     timeline,
		Marker:       marker,
		Notifier:     notifier,
	}, limiters, nil
}

// initSinks builds the optional external notification sinks. An unconfigured
// or unreachable sink stays nil and the notifier skips it.
func initSinks(cfg *config.Config) services.NotifierConfig {
	nc := services.NotifierConfig{Locale: cfg.Display.Locale}

	if cfg.Email.APIKey != "" && cfg.Email.To != "" {
		nc.Email = email.NewResendSender(cfg.Email.APIKey, cfg.Email.From)
		nc.EmailTo = cfg.Email.To
		log.Printf("[main] email notifications enabled (to=%s)", cfg.Email.To)
	}

	if cfg.Telegram.BotToken != "" {
		sender, err := telegram.NewBotSender(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			log.Printf("[main] telegram notifications disabled: %v", err)
		} else {
			nc.Telegram = sender
			log.Printf("[main] telegram notifications enabled (chat=%d)", cfg.Telegram.ChatID)
		}
	}

	return nc
}

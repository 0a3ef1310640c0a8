// Package main is the entry point of the ConectaBot inbox daemon.
//
// main wires every layer together, in order:
//  1. Config
//  2. Backend client (optional Google login)
//  3. Database and i18n
//  4. Repositories, hub, services, handlers
//  5. Routes, CORS, HTTP server
//  6. Pollers and graceful shutdown
//
// There are no globals; everything is built here and passed down.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/conectabot/inbox/backend"
	"github.com/conectabot/inbox/config"
	"github.com/conectabot/inbox/database"
	"github.com/conectabot/inbox/engine"
	"github.com/conectabot/inbox/middleware"
	"github.com/conectabot/inbox/pkg/i18n"
	"github.com/conectabot/inbox/ws"
)

const (
	// notificationRetention bounds the notification log.
	notificationRetention = 7 * 24 * time.Hour
	purgeInterval         = time.Hour
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] conectabot inbox starting...")

	if err := run(); err != nil {
		log.Fatalf("[main] %v", err)
	}
	log.Println("[main] stopped")
}

func run() error {
	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log.Printf("[main] config loaded (addr=%s, backend=%s, poll=%s)",
		cfg.Server.Addr(), cfg.Backend.BaseURL, cfg.Backend.PollInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── 2. Backend ───
	api, err := initBackend(ctx, &cfg.Backend)
	if err != nil {
		return err
	}

	// ─── 3. Database + i18n ───
	db, err := database.New(cfg.Database.Path, database.Migrations())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := i18n.Load(i18n.Locales()); err != nil {
		return fmt.Errorf("failed to load i18n translations: %w", err)
	}

	// ─── 4. Layers ───
	repos := initRepositories(db.Conn)
	store := engine.NewStore()
	hub := ws.NewHub()

	svcs, limiters, err := initServices(cfg, db.Conn, repos, api, store, hub)
	if err != nil {
		return err
	}
	defer limiters.Close()
	defer svcs.Timeline.Close()

	registerHubCallbacks(hub, svcs.Conversation)

	if err := svcs.Conversation.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore conversations: %w", err)
	}

	conversationPoller := engine.NewPoller("conversations", clock.New(), cfg.Backend.PollInterval, svcs.Conversation.Sync)
	purgePoller := engine.NewPoller("notification-purge", clock.New(), purgeInterval, func(ctx context.Context) error {
		n, err := svcs.Notifier.Purge(ctx, notificationRetention)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Printf("[main] purged %d old notifications", n)
		}
		return nil
	})

	authMw := middleware.NewAuthMiddleware(cfg.Server.UIToken, limiters.AuthFailure)
	if !authMw.Enabled() {
		log.Println("[main] UI_TOKEN is empty, local API is unauthenticated")
	}
	h := initHandlers(svcs, conversationPoller, hub, authMw)

	// ─── 5. HTTP ───
	mux := http.NewServeMux()
	initRoutes(mux, h, authMw)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      c.Handler(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── 6. Run ───
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(ctx) })
	g.Go(func() error { return svcs.Timeline.Run(ctx) })
	g.Go(func() error { return conversationPoller.Run(ctx) })
	g.Go(func() error { return purgePoller.Run(ctx) })

	g.Go(func() error {
		log.Printf("[main] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("[main] shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// initBackend creates the ConectaBot client. When only an id token is
// configured it is exchanged for a bearer token first.
func initBackend(ctx context.Context, cfg *config.BackendConfig) (*backend.Client, error) {
	client := backend.NewClient(cfg.BaseURL, cfg.Token, cfg.Email, cfg.Timeout)

	if cfg.Token == "" {
		token, err := client.GoogleLogin(ctx, cfg.IDToken)
		if err != nil {
			return nil, fmt.Errorf("google login failed: %w", err)
		}
		client.SetCredentials(token, cfg.Email)
		log.Println("[main] signed in with google id token")
		cfg.Token = token
	}

	if info, err := backend.ParseToken(cfg.Token); err != nil {
		log.Printf("[main] could not read token claims: %v", err)
	} else if info.Expired(time.Now()) {
		log.Printf("[main] WARNING: backend token expired at %s", info.ExpiresAt.Format(time.RFC3339))
	} else if !info.ExpiresAt.IsZero() {
		log.Printf("[main] backend token valid until %s", info.ExpiresAt.Format(time.RFC3339))
	}

	if strings.TrimSpace(client.Email()) == "" {
		return nil, fmt.Errorf("caller email unknown: set CONECTABOT_EMAIL or use a token with an email claim")
	}
	log.Printf("[main] backend client ready (email=%s)", client.Email())

	return client, nil
}

// Package config manages the daemon's configuration in one place.
// Values come from environment variables; a .env file is loaded first when present.
//
// Config gathers every setting into one struct so packages receive what they
// need instead of calling os.Getenv on their own.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every configuration value of the daemon.
// Each section is its own struct, one concern per struct.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Backend  BackendConfig
	Display  DisplayConfig
	Email    EmailConfig
	Telegram TelegramConfig
}

// ServerConfig holds the local UI API settings.
type ServerConfig struct {
	Host        string
	Port        int
	UIToken     string   // Empty disables auth on the local API
	CORSOrigins []string // Allowed UI origins
}

// DatabaseConfig holds the SQLite settings.
type DatabaseConfig struct {
	Path string // e.g. ./data/conectabot.db
}

// BackendConfig holds the ConectaBot API settings.
type BackendConfig struct {
	BaseURL      string
	Token        string        // Bearer token
	Email        string        // Caller email; derived from the token when empty
	IDToken      string        // Optional Google id token exchanged for Token at startup
	PollInterval time.Duration // Delay between the end of one poll and the start of the next
	Timeout      time.Duration // Per-request timeout
}

// DisplayConfig controls how day headers are rendered.
type DisplayConfig struct {
	Locale   string // es, en
	Timezone string // IANA name or "Local"
}

// EmailConfig configures the Resend notification sink.
// The sink is disabled when APIKey or To is empty.
type EmailConfig struct {
	APIKey string
	From   string
	To     string
}

// TelegramConfig configures the Telegram notification sink.
// The sink is disabled when BotToken is empty.
type TelegramConfig struct {
	BotToken string
	ChatID   int64
}

// Load builds a Config from the environment.
// A .env file is loaded first when it exists; a missing file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("SERVER_PORT", "9190"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	pollInterval, err := time.ParseDuration(getEnv("POLL_INTERVAL", "2500ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}
	if pollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive")
	}

	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	var chatID int64
	if raw := getEnv("TELEGRAM_CHAT_ID", ""); raw != "" {
		chatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}

	token := getEnv("CONECTABOT_TOKEN", "")
	idToken := getEnv("CONECTABOT_ID_TOKEN", "")
	if token == "" && idToken == "" {
		return nil, fmt.Errorf("CONECTABOT_TOKEN or CONECTABOT_ID_TOKEN environment variable is required")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("SERVER_HOST", "127.0.0.1"),
			Port:        port,
			UIToken:     getEnv("UI_TOKEN", ""),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "./data/conectabot.db"),
		},
		Backend: BackendConfig{
			BaseURL:      strings.TrimRight(getEnv("CONECTABOT_API_URL", "https://api.conectabot.org"), "/"),
			Token:        token,
			Email:        getEnv("CONECTABOT_EMAIL", ""),
			IDToken:      idToken,
			PollInterval: pollInterval,
			Timeout:      timeout,
		},
		Display: DisplayConfig{
			Locale:   getEnv("DISPLAY_LOCALE", "es"),
			Timezone: getEnv("DISPLAY_TIMEZONE", "Local"),
		},
		Email: EmailConfig{
			APIKey: getEnv("RESEND_API_KEY", ""),
			From:   getEnv("RESEND_FROM", "ConectaBot <noreply@conectabot.org>"),
			To:     getEnv("NOTIFY_EMAIL_TO", ""),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:   chatID,
		},
	}

	return cfg, nil
}

// Addr returns the listen address of the local API (e.g. "127.0.0.1:9190").
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Location resolves the display time zone.
func (c *DisplayConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TIMEZONE: %w", err)
	}
	return loc, nil
}

// getEnv reads an environment variable, returning fallback when it is unset.
func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

// splitList splits a comma separated value, dropping empty items.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

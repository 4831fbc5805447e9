package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ChatBaseURL string
	ChatWSURL   string

	BotPrefix string

	AkinatorBaseURL string

	RedisURL    string
	DatabaseURL string

	MALUser     string
	MALPassword string

	AllowedRooms []string

	// Session lifecycle knobs for the guessing game.
	SessionIdleTimeout time.Duration
	ReaperInterval     time.Duration

	// Per-call deadline for the external guess service.
	AkinatorTimeout time.Duration
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		AkinatorBaseURL:    "http://api-en4.akinator.com/ws",
		SessionIdleTimeout: 5 * time.Minute,
		ReaperInterval:     time.Minute,
		AkinatorTimeout:    10 * time.Second,
	}

	cfg.ChatBaseURL = strings.TrimSpace(os.Getenv("CHAT_BASE_URL"))
	cfg.ChatWSURL = strings.TrimSpace(os.Getenv("CHAT_WS_URL"))
	cfg.BotPrefix = strings.TrimSpace(os.Getenv("BOT_PREFIX"))

	if v := strings.TrimSpace(os.Getenv("AKINATOR_BASE_URL")); v != "" {
		cfg.AkinatorBaseURL = strings.TrimRight(v, "/")
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	cfg.MALUser = strings.TrimSpace(os.Getenv("MAL_USER"))
	cfg.MALPassword = strings.TrimSpace(os.Getenv("MAL_PASSWORD"))

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ROOMS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			s := strings.TrimSpace(p)
			if s != "" {
				cfg.AllowedRooms = append(cfg.AllowedRooms, s)
			}
		}
	}

	if v := strings.TrimSpace(os.Getenv("SESSION_IDLE_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionIdleTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("REAPER_INTERVAL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ReaperInterval = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("AKINATOR_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AkinatorTimeout = time.Duration(n) * time.Second
		}
	}

	if cfg.ChatBaseURL == "" {
		return nil, errors.New("CHAT_BASE_URL is required")
	}
	if cfg.ChatWSURL == "" {
		return nil, errors.New("CHAT_WS_URL is required")
	}
	if cfg.BotPrefix == "" {
		return nil, errors.New("BOT_PREFIX is required")
	}

	return cfg, nil
}

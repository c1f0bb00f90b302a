package config

import (
	"os"
	"strings"
)

type AppConfig struct {
	ListenAddr string

	DatabaseURL string
	RedisURL    string

	MessageDir string

	AllowedOrigins []string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr: ":8000",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}

	// DATABASE_URL is optional: without it the server keeps accounts and
	// game records in memory, which is enough for local play.
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	// REDIS_URL is optional: without it the online-user listing is disabled.
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	cfg.MessageDir = strings.TrimSpace(os.Getenv("MESSAGE_DIR"))

	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		for _, p := range strings.Split(v, ",") {
			s := strings.TrimSpace(p)
			if s != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, s)
			}
		}
	}

	return cfg, nil
}

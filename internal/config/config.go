package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port               string
	DatabaseURL        string
	SessionTTL         time.Duration
	PollInterval       time.Duration
	PollBatchSize      int
	OutboxRetention    time.Duration
	ReconcileInterval  time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int
	NotificationLimit  int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:               port,
		DatabaseURL:        os.Getenv("DB_DSN"),
		SessionTTL:         readDurationSeconds("SESSION_TTL_SECONDS", 43200),
		PollInterval:       readDurationSeconds("REALTIME_POLL_SECONDS", 1),
		PollBatchSize:      readInt("REALTIME_BATCH_SIZE", 100),
		OutboxRetention:    readDurationSeconds("OUTBOX_RETENTION_SECONDS", 3600),
		ReconcileInterval:  readDurationSeconds("RECONCILE_INTERVAL_SECONDS", 300),
		RateLimitPerMinute: readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:     readInt("RATE_LIMIT_BURST", 30),
		NotificationLimit:  readInt("NOTIFICATION_LIST_LIMIT", 100),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process level configuration so main stays lean.
type Config struct {
	Addr          string
	LogLevel      string
	JWTSigningKey string

	// PostgresURL selects the Postgres-backed stores when set; empty means
	// in-memory stores (development and tests).
	PostgresURL string

	// RedisURL selects the Redis match feed when set; empty means the
	// in-process feed.
	RedisURL     string
	MatchChannel string

	// KafkaBrokers selects the Kafka stock ledger sink when set; empty means
	// the in-memory ledger store.
	KafkaBrokers []string
	LedgerTopic  string

	// ListenTimeout bounds how long a verification waits for a match event;
	// ResolveTimeout bounds a single identity lookup.
	ListenTimeout  time.Duration
	ResolveTimeout time.Duration

	// SuccessDelay holds the verified state on screen before reporting, so
	// the cashier sees who matched before the discount is applied.
	SuccessDelay time.Duration
}

// FromEnv builds a Config from environment variables with development defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:             envOr("BOTICA_ADDR", ":8080"),
		LogLevel:         envOr("BOTICA_LOG_LEVEL", "info"),
		JWTSigningKey:    envOr("BOTICA_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresURL:      os.Getenv("BOTICA_POSTGRES_URL"),
		RedisURL:         os.Getenv("BOTICA_REDIS_URL"),
		MatchChannel:     envOr("BOTICA_MATCH_CHANNEL", "botica.matches"),
		LedgerTopic:      envOr("BOTICA_LEDGER_TOPIC", "botica.stock.ledger"),
		ListenTimeout:    envDurationOr("BOTICA_LISTEN_TIMEOUT", 120*time.Second),
		ResolveTimeout:   envDurationOr("BOTICA_RESOLVE_TIMEOUT", 15*time.Second),
		SuccessDelay:     envDurationOr("BOTICA_SUCCESS_DELAY", 2*time.Second),
	}

	if brokers := os.Getenv("BOTICA_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

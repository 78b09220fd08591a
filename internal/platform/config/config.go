package config

import (
	"os"
	"strings"
	"time"
)

// Config is the full service configuration, assembled from environment
// variables so main stays lean. Empty Postgres, Redis, and Kafka settings
// select in-memory fallbacks, which keeps local development broker-free.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka    Kafka
	Auth     Auth
	SLA      SLA
}

type Server struct {
	Addr string
}

type Postgres struct {
	URL string
}

type Redis struct {
	URL string
}

type Kafka struct {
	Brokers []string
	Topic   string
}

type Auth struct {
	JWTSigningKey string
	TokenTTL      time.Duration
}

type SLA struct {
	PollInterval     time.Duration
	Backoff          time.Duration
	WarningThreshold time.Duration
}

// FromEnv builds the config with development defaults.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: envOr("TAKEDOWN_ADDR", ":8080"),
		},
		Postgres: Postgres{
			URL: os.Getenv("TAKEDOWN_POSTGRES_URL"),
		},
		Redis: Redis{
			URL: os.Getenv("TAKEDOWN_REDIS_URL"),
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("TAKEDOWN_KAFKA_BROKERS")),
			Topic:   envOr("TAKEDOWN_KAFKA_TOPIC", "takedown.notifications"),
		},
		Auth: Auth{
			// Development default; override in any shared environment.
			JWTSigningKey: envOr("TAKEDOWN_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			TokenTTL:      durationOr("TAKEDOWN_TOKEN_TTL", time.Hour),
		},
		SLA: SLA{
			PollInterval:     durationOr("TAKEDOWN_SLA_POLL_INTERVAL", 5*time.Minute),
			Backoff:          durationOr("TAKEDOWN_SLA_BACKOFF", time.Minute),
			WarningThreshold: durationOr("TAKEDOWN_SLA_WARNING_THRESHOLD", 2*time.Hour),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitNonEmpty(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

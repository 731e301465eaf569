// Package config builds runtime configuration from the environment so main
// stays lean. A local .env file is honored in development; real deployments
// set the variables directly.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	Addr        string
	DatabaseURL string

	Redis  RedisConfig
	Portal PortalConfig
	Kafka  KafkaConfig

	// MaxValidationRetries bounds how many failed validation rounds a
	// transaction may accumulate before it is abandoned.
	MaxValidationRetries int
}

// RedisConfig configures the idempotency store connection. An empty URL
// disables Redis; the in-memory store is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PortalConfig configures the government portal client. An empty BaseURL
// selects the in-process fake, for development and tests.
type PortalConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// KafkaConfig configures the audit trail forwarder. Empty brokers disable
// forwarding; the trail is still kept in the store.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv loads a .env file when present and reads TAXPILOT_* variables.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr:        envOr("TAXPILOT_ADDR", ":8080"),
		DatabaseURL: os.Getenv("TAXPILOT_DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("TAXPILOT_REDIS_URL"),
			PoolSize:     envInt("TAXPILOT_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("TAXPILOT_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("TAXPILOT_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("TAXPILOT_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("TAXPILOT_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Portal: PortalConfig{
			BaseURL:   os.Getenv("TAXPILOT_PORTAL_BASE_URL"),
			APIKey:    os.Getenv("TAXPILOT_PORTAL_API_KEY"),
			APISecret: os.Getenv("TAXPILOT_PORTAL_API_SECRET"),
			Timeout:   envDuration("TAXPILOT_PORTAL_TIMEOUT", 15*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: envList("TAXPILOT_KAFKA_BROKERS"),
			Topic:   envOr("TAXPILOT_KAFKA_AUDIT_TOPIC", "taxpilot.audit"),
		},
		MaxValidationRetries: envInt("TAXPILOT_MAX_VALIDATION_RETRIES", 3),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
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

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

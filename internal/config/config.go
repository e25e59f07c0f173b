package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Feed drivers supported by FEED_DRIVER.
const (
	FeedDriverPostgres = "postgres"
	FeedDriverRedis    = "redis"
)

// DefaultFeedChannel is the NOTIFY channel used by the courses trigger in
// migrations/000001_create_courses.up.sql. The postgres driver must listen on it.
const DefaultFeedChannel = "course_changes"

// ErrMissingProvider is returned by Validate when the course database
// endpoint or access key is not configured.
var ErrMissingProvider = errors.New("course provider is not configured")

// Config holds all application configuration.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string

	// DatabaseURL is the provider endpoint and DatabaseAccessKey the provider
	// access key. Both are required; the key is used as the connection password.
	DatabaseURL       string
	DatabaseAccessKey string
	MaxDBConns        int32

	FeedDriver  string
	FeedChannel string
	RedisURL    string

	JWTSecret  string
	JWTExpiry  time.Duration
	BcryptCost int

	// CatalogFile overrides the embedded program/technology catalog when set.
	CatalogFile string

	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string

	// LoginRateLimit is the number of admin login attempts allowed per IP per minute.
	LoginRateLimit int
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // .env is optional

	return &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		GinMode:           getEnv("GIN_MODE", "debug"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "pretty"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DatabaseAccessKey: getEnv("DATABASE_ACCESS_KEY", ""),
		MaxDBConns:        int32(getEnvInt("MAX_DB_CONNS", 8)),
		FeedDriver:        strings.ToLower(getEnv("FEED_DRIVER", FeedDriverPostgres)),
		FeedChannel:       getEnv("FEED_CHANNEL", DefaultFeedChannel),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:         getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 12)) * time.Hour,
		BcryptCost:        getEnvInt("BCRYPT_COST", 10),
		CatalogFile:       getEnv("CATALOG_FILE", ""),
		AllowedOrigins:    parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		LoginRateLimit:    getEnvInt("LOGIN_RATE_LIMIT", 10),
	}
}

// Validate reports configuration problems that make the catalog unusable.
// A missing provider endpoint or access key wraps ErrMissingProvider.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.DatabaseURL) == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if strings.TrimSpace(c.DatabaseAccessKey) == "" {
		missing = append(missing, "DATABASE_ACCESS_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMissingProvider, strings.Join(missing, ", "))
	}

	switch c.FeedDriver {
	case FeedDriverPostgres:
		if c.FeedChannel != DefaultFeedChannel {
			return fmt.Errorf("FEED_CHANNEL %q is not supported by the postgres feed driver: the courses trigger notifies %q",
				c.FeedChannel, DefaultFeedChannel)
		}
	case FeedDriverRedis:
		if strings.TrimSpace(c.FeedChannel) == "" {
			return errors.New("FEED_CHANNEL must not be empty")
		}
	default:
		return fmt.Errorf("unsupported FEED_DRIVER %q", c.FeedDriver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
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

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

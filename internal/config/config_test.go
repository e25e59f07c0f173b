package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:       "postgres://app@localhost:5432/coursehub",
		DatabaseAccessKey: "secret",
		FeedDriver:        FeedDriverPostgres,
		FeedChannel:       DefaultFeedChannel,
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cfg := validConfig()
	cfg.FeedDriver = FeedDriverRedis
	assert.NoError(t, cfg.Validate())
}

func TestValidateReportsMissingProvider(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseAccessKey = "  "
	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingProvider))
	assert.Contains(t, err.Error(), "DATABASE_ACCESS_KEY")
	assert.NotContains(t, err.Error(), "DATABASE_URL")

	cfg.DatabaseURL = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL, DATABASE_ACCESS_KEY")
}

func TestValidateRejectsUnknownFeedDriver(t *testing.T) {
	cfg := validConfig()
	cfg.FeedDriver = "kafka"
	err := cfg.Validate()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingProvider))
}

func TestValidateFeedChannel(t *testing.T) {
	cfg := validConfig()
	cfg.FeedChannel = "catalog_events"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog_events")
	assert.False(t, errors.Is(err, ErrMissingProvider))

	// Redis channels are published by the service itself, so any name works.
	cfg.FeedDriver = FeedDriverRedis
	assert.NoError(t, cfg.Validate())

	cfg.FeedChannel = " "
	assert.Error(t, cfg.Validate())
}

func TestLoadDefaultsFeedChannel(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app@db/coursehub")
	t.Setenv("DATABASE_ACCESS_KEY", "k")
	t.Setenv("FEED_DRIVER", "")
	t.Setenv("FEED_CHANNEL", "")

	cfg := Load()
	assert.Equal(t, FeedDriverPostgres, cfg.FeedDriver)
	assert.Equal(t, DefaultFeedChannel, cfg.FeedChannel)
	assert.NoError(t, cfg.Validate())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app@db/coursehub")
	t.Setenv("DATABASE_ACCESS_KEY", "k")
	t.Setenv("FEED_DRIVER", "REDIS")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("LOGIN_RATE_LIMIT", "not-a-number")

	cfg := Load()
	assert.Equal(t, FeedDriverRedis, cfg.FeedDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 10, cfg.LoginRateLimit)
	assert.NoError(t, cfg.Validate())
}

func TestCourseChangesChannelIsNamespaced(t *testing.T) {
	assert.Equal(t, "catalog:course_changes", CacheKey.CourseChangesChannel("course_changes"))
}

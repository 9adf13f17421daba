package config

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Defaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.edu/v1")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.edu/v1", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSeconds)
	assert.Equal(t, 300, cfg.Cache.TTLSeconds)
	assert.Equal(t, 1000, cfg.Cache.MaxEntries)
	assert.Equal(t, []string{"/filter-options/*"}, cfg.Cache.CacheableEndpoints)
	assert.Equal(t, 24, cfg.Session.DurationHours)
	assert.Equal(t, 30, cfg.Session.WarningWindowMinutes)
	assert.False(t, cfg.Observe.Enabled)
}

func TestConfig_RequiresBaseURL(t *testing.T) {
	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestConfig_RejectsRelativeBaseURL(t *testing.T) {
	t.Setenv("API_BASE_URL", "/just/a/path")

	_, err := Load(context.Background())
	assert.ErrorContains(t, err, "must be absolute")
}

func TestConfig_CacheOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.edu/v1")
	t.Setenv("CACHE_TTL_SECS", "60")
	t.Setenv("CACHE_ENDPOINT_PATTERNS", "/filter-options/*,/terms")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Cache.TTLSeconds)
	assert.Equal(t, []string{"/filter-options/*", "/terms"}, cfg.Cache.CacheableEndpoints)
}

func TestConfig_RejectsInvalidCachePattern(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.edu/v1")
	t.Setenv("CACHE_ENDPOINT_PATTERNS", "/filter-options/[")

	_, err := Load(context.Background())
	assert.ErrorContains(t, err, "invalid cache endpoint pattern")
}

func TestConfig_RejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.edu/v1")
	t.Setenv("API_TIMEOUT_SECS", "0")

	_, err := Load(context.Background())
	assert.ErrorContains(t, err, "API_TIMEOUT_SECS")
}

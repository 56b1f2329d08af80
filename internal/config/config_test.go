package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TEXTGEN_API_KEY", "")
	t.Setenv("TEXTGEN_SKIP", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, "Asia/Jakarta", cfg.Location.String())
	assert.Equal(t, "07:30", cfg.DefaultSchool.EntranceTime)
	assert.Equal(t, -6.2, cfg.DefaultSchool.Coordinates.Lat)
	assert.Equal(t, 106.8166, cfg.DefaultSchool.Coordinates.Lng)
	assert.Equal(t, 100.0, cfg.DefaultSchool.RadiusLimit)
	assert.True(t, cfg.TextGenSkip)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("ACCESS_TTL", "5m")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("DEFAULT_RADIUS_METERS", "250.5")
	t.Setenv("TEXTGEN_API_KEY", "k")
	t.Setenv("TEXTGEN_SKIP", "")
	t.Setenv("SCHOOL_TIMEZONE", "UTC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.StoreBackend)
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.Equal(t, 250.5, cfg.DefaultSchool.RadiusLimit)
	assert.False(t, cfg.TextGenSkip)
	assert.Equal(t, time.UTC, cfg.Location)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("ACCESS_TTL", "soon")
	t.Setenv("RATE_LIMIT_PER_MIN", "many")
	t.Setenv("TEXTGEN_SKIP", "maybe")
	t.Setenv("TEXTGEN_API_KEY", "k")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMin)
	assert.False(t, cfg.TextGenSkip)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv("SCHOOL_TIMEZONE", "Mars/Olympus")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("SCHOOL_TIMEZONE", "UTC")
	t.Setenv("DEFAULT_RADIUS_METERS", "0")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("DEFAULT_RADIUS_METERS", "100")
	t.Setenv("DEFAULT_ENTRANCE_TIME", "7.30")
	_, err = Load()
	assert.Error(t, err)
}

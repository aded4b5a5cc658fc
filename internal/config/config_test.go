package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, DefaultQuotePolicy(), cfg.Quote)
	assert.False(t, cfg.Storage.Enabled())
	assert.Equal(t, 10*time.Second, cfg.Redis.CartLockTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("QUOTE_VALIDITY_DAYS", "14")
	t.Setenv("QUOTE_PRICE_CHANGE_THRESHOLD", "2.5")
	t.Setenv("QUOTE_ALLOW_EXPIRED", "true")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("S3_BUCKET", "proofs")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Quote.ValidityDays)
	assert.Equal(t, 2.5, cfg.Quote.PriceChangeThreshold)
	assert.True(t, cfg.Quote.AllowExpiredQuotes)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Storage.Enabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
}

func TestLoadRejectsNonPositiveValidity(t *testing.T) {
	t.Setenv("QUOTE_VALIDITY_DAYS", "0")
	_, err := Load()
	assert.Error(t, err)
}

package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper(overrides map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range overrides {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(newTestViper(nil))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, "SYP", cfg.BaseCurrency)
	assert.Equal(t, []string{"SYP", "USD", "EUR"}, cfg.SupportedCurrencies)
	assert.Equal(t, []string{"USD", "EUR"}, cfg.DisplayCurrencies)
	assert.Equal(t, 5*time.Minute, cfg.RateCacheTTL)
	assert.True(t, decimal.NewFromInt(10000).Equal(cfg.FallbackRates["USD"]))
	assert.True(t, decimal.NewFromInt(11000).Equal(cfg.FallbackRates["EUR"]))
	_, hasBase := cfg.FallbackRates["SYP"]
	assert.False(t, hasBase)
}

func TestFromViper_Overrides(t *testing.T) {
	cfg, err := fromViper(newTestViper(map[string]any{
		"STORAGE_DRIVER":       "MEMORY",
		"SUPPORTED_CURRENCIES": " syp, usd ",
		"FALLBACK_RATE_USD":    "12500.5",
		"RATE_CACHE_TTL":       "not-a-duration",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example",
	}))
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, []string{"SYP", "USD"}, cfg.SupportedCurrencies)
	assert.True(t, decimal.RequireFromString("12500.5").Equal(cfg.FallbackRates["USD"]))
	assert.Equal(t, 5*time.Minute, cfg.RateCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)

	conv := cfg.ConversionConfig()
	assert.Equal(t, "SYP", conv.BaseCurrency)
	assert.Len(t, conv.FallbackAnchors, 1)
}

func TestFromViper_InvalidValues(t *testing.T) {
	_, err := fromViper(newTestViper(map[string]any{"STORAGE_DRIVER": "sqlite"}))
	assert.Error(t, err)

	_, err = fromViper(newTestViper(map[string]any{"FALLBACK_RATE_EUR": "-3"}))
	assert.Error(t, err)
}

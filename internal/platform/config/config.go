package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	StorageDriver  string
	MigrationsPath string

	JWTSecret string
	JWTIssuer string

	BaseCurrency        string
	SupportedCurrencies []string
	DisplayCurrencies   []string
	FallbackRates       map[string]decimal.Decimal

	RedisURL          string
	RateCacheTTL      time.Duration
	NotificationQueue string
	WorkerConcurrency int

	RateLimit          string // ulule formatted, e.g. "100-M"
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", true)
	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	v.SetDefault("JWT_ISSUER", "pharmacy-identity")
	v.SetDefault("BASE_CURRENCY", "SYP")
	v.SetDefault("SUPPORTED_CURRENCIES", "SYP,USD,EUR")
	v.SetDefault("DISPLAY_CURRENCIES", "USD,EUR")
	v.SetDefault("FALLBACK_RATE_USD", "10000")
	v.SetDefault("FALLBACK_RATE_EUR", "11000")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("RATE_CACHE_TTL", "5m")
	v.SetDefault("NOTIFICATION_QUEUE", "default")
	v.SetDefault("WORKER_CONCURRENCY", 5)
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:       v.GetString("PGSQL_URL"),
		Port:              v.GetString("PORT"),
		IsProduction:      v.GetBool("IS_PRODUCTION"),
		EnableDBCheck:     v.GetBool("ENABLE_DB_CHECK"),
		StorageDriver:     strings.ToLower(v.GetString("STORAGE_DRIVER")),
		MigrationsPath:    v.GetString("MIGRATIONS_PATH"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		JWTIssuer:         v.GetString("JWT_ISSUER"),
		BaseCurrency:      strings.ToUpper(v.GetString("BASE_CURRENCY")),
		RedisURL:          v.GetString("REDIS_URL"),
		NotificationQueue: v.GetString("NOTIFICATION_QUEUE"),
		WorkerConcurrency: v.GetInt("WORKER_CONCURRENCY"),
		RateLimit:         v.GetString("RATE_LIMIT"),
	}

	cfg.SupportedCurrencies = splitList(v.GetString("SUPPORTED_CURRENCIES"), true)
	cfg.DisplayCurrencies = splitList(v.GetString("DISPLAY_CURRENCIES"), true)
	cfg.CORSAllowedOrigins = splitList(v.GetString("CORS_ALLOWED_ORIGINS"), false)

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			log.Println("Warning: PGSQL_URL environment variable not set.")
		}
	case StorageMemory:
		log.Println("Warning: STORAGE_DRIVER=memory, data will not survive a restart.")
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	ttlStr := v.GetString("RATE_CACHE_TTL")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		ttl = 5 * time.Minute
		log.Printf("Warning: Invalid value for RATE_CACHE_TTL ('%s'). Defaulting to %s.\n", ttlStr, ttl)
	}
	cfg.RateCacheTTL = ttl

	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = 5
	}

	// One FALLBACK_RATE_<CODE> per supported non-base currency.
	cfg.FallbackRates = make(map[string]decimal.Decimal)
	for _, code := range cfg.SupportedCurrencies {
		if code == cfg.BaseCurrency {
			continue
		}
		raw := v.GetString("FALLBACK_RATE_" + code)
		if raw == "" {
			log.Printf("Warning: FALLBACK_RATE_%s not set. %s will have no fallback rate.\n", code, code)
			continue
		}
		rate, err := decimal.NewFromString(raw)
		if err != nil || !rate.IsPositive() {
			return nil, fmt.Errorf("invalid FALLBACK_RATE_%s %q: must be a positive decimal", code, raw)
		}
		cfg.FallbackRates[code] = rate
	}

	return cfg, nil
}

// ConversionConfig derives the conversion settings handed to the exchange rate service.
func (c *Config) ConversionConfig() domain.ConversionConfig {
	anchors := make(map[string]decimal.Decimal, len(c.FallbackRates))
	for k, v := range c.FallbackRates {
		anchors[k] = v
	}
	return domain.ConversionConfig{
		BaseCurrency:        c.BaseCurrency,
		SupportedCurrencies: append([]string(nil), c.SupportedCurrencies...),
		DisplayCurrencies:   append([]string(nil), c.DisplayCurrencies...),
		FallbackAnchors:     anchors,
	}
}

func splitList(raw string, upper bool) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if upper {
			part = strings.ToUpper(part)
		}
		out = append(out, part)
	}
	return out
}

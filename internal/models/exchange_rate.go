package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is a row of exchange_rates. At most one row per ordered pair is active.
type ExchangeRate struct {
	ExchangeRateID   string          `json:"exchangeRateID"` // Primary Key (UUID)
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"` // NUMERIC(20,6)
	EffectiveFrom    time.Time       `json:"effectiveFrom"`
	EffectiveTo      *time.Time      `json:"effectiveTo"` // Nullable, set on deactivation
	IsActive         bool            `json:"isActive"`
	Source           string          `json:"source"`
	Notes            *string         `json:"notes"` // Nullable
	AuditFields
}

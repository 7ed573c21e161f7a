package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default exchange rate sources.
const (
	RateSourceManual      = "MANUAL"
	RateSourceAutoReverse = "AUTO_REVERSE"
)

// ExchangeRate is one row of the rate directory for an ordered currency pair.
type ExchangeRate struct {
	ExchangeRateID   string          `json:"exchangeRateID"`
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
	EffectiveFrom    time.Time       `json:"effectiveFrom"`
	EffectiveTo      *time.Time      `json:"effectiveTo,omitempty"`
	IsActive         bool            `json:"isActive"`
	Source           string          `json:"source"`
	Notes            string          `json:"notes,omitempty"`
	AuditFields
}

// SetRateRequest carries a new manual rate for an ordered pair.
type SetRateRequest struct {
	FromCurrencyCode string
	ToCurrencyCode   string
	Rate             decimal.Decimal
	Source           string
	Notes            string
}

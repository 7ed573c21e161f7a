package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// ExchangeRateReaderSvc defines read operations over the rate directory.
type ExchangeRateReaderSvc interface {
	GetRate(ctx context.Context, rateID string) (*domain.ExchangeRate, error)
	ListActiveRates(ctx context.Context) ([]domain.ExchangeRate, error)
	RateHistory(ctx context.Context, fromCode, toCode string) ([]domain.ExchangeRate, error)
	// RatePair returns the active rows of both directions of a pair.
	RatePair(ctx context.Context, codeA, codeB string) ([]domain.ExchangeRate, error)
}

// ExchangeRateWriterSvc defines write operations over the rate directory.
type ExchangeRateWriterSvc interface {
	// SetRate activates a new rate for the pair and derives the reverse pair.
	SetRate(ctx context.Context, req domain.SetRateRequest, userID string) (*domain.ExchangeRate, error)
	// DeactivateRate closes an active rate together with the active reverse rate.
	DeactivateRate(ctx context.Context, rateID string, userID string) error
}

// CurrencyConverterSvc converts amounts into other currencies.
type CurrencyConverterSvc interface {
	// Rate fails only for a pair that neither the directory nor the fallback anchors support.
	Rate(ctx context.Context, fromCode, toCode string) (domain.RateQuote, error)
	// Convert never fails; an unsupported pair yields a FAILED conversion of the original amount.
	Convert(ctx context.Context, amount decimal.Decimal, fromCode, toCode string) domain.Conversion
	BaseCurrency() string
	IsSupported(code string) bool
}

// ExchangeRateSvcFacade combines all exchange rate-related service interfaces.
type ExchangeRateSvcFacade interface {
	ExchangeRateReaderSvc
	ExchangeRateWriterSvc
	CurrencyConverterSvc
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// SetExchangeRateRequest defines the structure for setting the active rate of a pair.
type SetExchangeRateRequest struct {
	FromCurrencyCode string          `json:"fromCurrencyCode" binding:"required,currency"`
	ToCurrencyCode   string          `json:"toCurrencyCode" binding:"required,currency"`
	Rate             decimal.Decimal `json:"rate"`
	Source           string          `json:"source" binding:"max=64"`
	Notes            string          `json:"notes" binding:"max=500"`
}

// ConvertRequest asks for an amount in another currency.
type ConvertRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	FromCurrencyCode string          `json:"fromCurrencyCode" binding:"required,currency"`
	ToCurrencyCode   string          `json:"toCurrencyCode" binding:"required,currency"`
}

// ExchangeRateResponse defines the structure for API responses containing exchange rate details.
type ExchangeRateResponse struct {
	ExchangeRateID   string          `json:"exchangeRateID"`
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
	EffectiveFrom    time.Time       `json:"effectiveFrom"`
	EffectiveTo      *time.Time      `json:"effectiveTo,omitempty"`
	IsActive         bool            `json:"isActive"`
	Source           string          `json:"source"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	CreatedBy        string          `json:"createdBy"`
	LastUpdatedAt    time.Time       `json:"lastUpdatedAt"`
	LastUpdatedBy    string          `json:"lastUpdatedBy"`
}

// ToExchangeRateResponse converts a domain.ExchangeRate to ExchangeRateResponse DTO
func ToExchangeRateResponse(rate *domain.ExchangeRate) ExchangeRateResponse {
	return ExchangeRateResponse{
		ExchangeRateID:   rate.ExchangeRateID,
		FromCurrencyCode: rate.FromCurrencyCode,
		ToCurrencyCode:   rate.ToCurrencyCode,
		Rate:             rate.Rate,
		EffectiveFrom:    rate.EffectiveFrom,
		EffectiveTo:      rate.EffectiveTo,
		IsActive:         rate.IsActive,
		Source:           rate.Source,
		Notes:            rate.Notes,
		CreatedAt:        rate.CreatedAt,
		CreatedBy:        rate.CreatedBy,
		LastUpdatedAt:    rate.LastUpdatedAt,
		LastUpdatedBy:    rate.LastUpdatedBy,
	}
}

// ToListExchangeRateResponse converts a slice of domain rates to response DTOs.
func ToListExchangeRateResponse(rates []domain.ExchangeRate) []ExchangeRateResponse {
	responses := make([]ExchangeRateResponse, len(rates))
	for i := range rates {
		responses[i] = ToExchangeRateResponse(&rates[i])
	}
	return responses
}

// RateQuoteResponse is the rate a conversion would use right now.
type RateQuoteResponse struct {
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
	Provenance       string          `json:"provenance"`
	ExchangeRateID   string          `json:"exchangeRateID,omitempty"`
}

// ToRateQuoteResponse converts a domain.RateQuote.
func ToRateQuoteResponse(q domain.RateQuote) RateQuoteResponse {
	return RateQuoteResponse{
		FromCurrencyCode: q.From,
		ToCurrencyCode:   q.To,
		Rate:             q.Rate,
		Provenance:       string(q.Provenance),
		ExchangeRateID:   q.RateID,
	}
}

// ConversionResponse is an amount expressed in another currency.
type ConversionResponse struct {
	OriginalAmount   decimal.Decimal `json:"originalAmount"`
	Amount           decimal.Decimal `json:"amount"`
	FromCurrencyCode string          `json:"fromCurrencyCode"`
	ToCurrencyCode   string          `json:"toCurrencyCode"`
	Rate             decimal.Decimal `json:"rate"`
	Provenance       string          `json:"provenance"`
	ExchangeRateID   string          `json:"exchangeRateID,omitempty"`
	ConvertedAt      time.Time       `json:"convertedAt"`
	Error            string          `json:"error,omitempty"`
}

// ToConversionResponse converts a domain.Conversion.
func ToConversionResponse(c domain.Conversion) ConversionResponse {
	return ConversionResponse{
		OriginalAmount:   c.OriginalAmount,
		Amount:           c.Amount,
		FromCurrencyCode: c.From,
		ToCurrencyCode:   c.To,
		Rate:             c.Rate,
		Provenance:       string(c.Provenance),
		ExchangeRateID:   c.RateID,
		ConvertedAt:      c.ConvertedAt,
		Error:            c.Error,
	}
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Provenance tells where a rate came from.
type Provenance string

const (
	ProvenanceIdentity Provenance = "IDENTITY"
	ProvenanceDirect   Provenance = "DIRECT"
	ProvenanceInverse  Provenance = "INVERSE"
	ProvenanceFallback Provenance = "FALLBACK"
	ProvenanceFailed   Provenance = "FAILED"
)

// RateQuote is a rate for an ordered pair together with its provenance.
type RateQuote struct {
	From       string          `json:"from"`
	To         string          `json:"to"`
	Rate       decimal.Decimal `json:"rate"`
	Provenance Provenance      `json:"provenance"`
	RateID     string          `json:"rateID,omitempty"` // set for DIRECT and INVERSE quotes
}

// Conversion is the result of converting an amount. A FAILED conversion carries the
// original amount unchanged, a rate of 1 and To equal to From.
type Conversion struct {
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	Amount         decimal.Decimal `json:"amount"`
	From           string          `json:"from"`
	To             string          `json:"to"`
	Rate           decimal.Decimal `json:"rate"`
	Provenance     Provenance      `json:"provenance"`
	RateID         string          `json:"rateID,omitempty"`
	ConvertedAt    time.Time       `json:"convertedAt"`
	Error          string          `json:"error,omitempty"`
}

// Source maps a conversion provenance onto the ledger's conversion source tag.
func (c Conversion) Source() ConversionSource {
	switch c.Provenance {
	case ProvenanceIdentity:
		return SourceNoConversion
	case ProvenanceDirect, ProvenanceInverse:
		return SourceExchangeRate
	case ProvenanceFallback:
		return SourceFallbackRate
	default:
		return SourceConversionFailed
	}
}

// ConversionConfig holds the base currency and the static anchor rates used
// when no stored rate exists. Anchors are base-currency units per one unit
// of the keyed currency (e.g. USD: 10000 means 1 USD = 10000 SYP).
type ConversionConfig struct {
	BaseCurrency        string
	SupportedCurrencies []string
	DisplayCurrencies   []string
	FallbackAnchors     map[string]decimal.Decimal
}

// IsSupported reports whether code is one of the configured currencies.
func (c ConversionConfig) IsSupported(code string) bool {
	if code == c.BaseCurrency {
		return true
	}
	for _, s := range c.SupportedCurrencies {
		if s == code {
			return true
		}
	}
	return false
}

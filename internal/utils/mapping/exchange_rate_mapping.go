package mapping

import (
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	"github.com/uqar-pharmacy/moneybox/internal/models"
)

// ToModelExchangeRate converts a domain ExchangeRate to a model ExchangeRate
func ToModelExchangeRate(d domain.ExchangeRate) models.ExchangeRate {
	return models.ExchangeRate{
		ExchangeRateID:   d.ExchangeRateID,
		FromCurrencyCode: d.FromCurrencyCode,
		ToCurrencyCode:   d.ToCurrencyCode,
		Rate:             d.Rate,
		EffectiveFrom:    d.EffectiveFrom,
		EffectiveTo:      d.EffectiveTo,
		IsActive:         d.IsActive,
		Source:           d.Source,
		Notes:            nullableString(d.Notes),
		AuditFields:      ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainExchangeRate converts a model ExchangeRate to a domain ExchangeRate
func ToDomainExchangeRate(m models.ExchangeRate) domain.ExchangeRate {
	return domain.ExchangeRate{
		ExchangeRateID:   m.ExchangeRateID,
		FromCurrencyCode: m.FromCurrencyCode,
		ToCurrencyCode:   m.ToCurrencyCode,
		Rate:             m.Rate,
		EffectiveFrom:    m.EffectiveFrom,
		EffectiveTo:      m.EffectiveTo,
		IsActive:         m.IsActive,
		Source:           m.Source,
		Notes:            derefString(m.Notes),
		AuditFields:      ToDomainAuditFields(m.AuditFields),
	}
}

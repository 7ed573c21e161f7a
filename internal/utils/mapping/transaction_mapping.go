package mapping

import (
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	"github.com/uqar-pharmacy/moneybox/internal/models"
)

// ToModelTransaction converts a domain Transaction to a model Transaction
func ToModelTransaction(d domain.Transaction) models.Transaction {
	metadata := d.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return models.Transaction{
		TransactionID:       d.TransactionID,
		MoneyBoxID:          d.MoneyBoxID,
		TransactionType:     string(d.TransactionType),
		Amount:              d.Amount,
		BalanceBefore:       d.BalanceBefore,
		BalanceAfter:        d.BalanceAfter,
		Description:         d.Description,
		ReferenceID:         nullableString(d.ReferenceID),
		ReferenceType:       nullableString(d.ReferenceType),
		OriginalAmount:      d.OriginalAmount,
		OriginalCurrency:    d.OriginalCurrency,
		ConvertedAmount:     d.ConvertedAmount,
		ConvertedCurrency:   d.ConvertedCurrency,
		ExchangeRate:        d.ExchangeRate,
		ConversionTimestamp: d.ConversionTimestamp,
		ConversionSource:    string(d.ConversionSource),
		OperationStatus:     string(d.OperationStatus),
		ErrorMessage:        nullableString(d.ErrorMessage),
		ActorUserID:         d.Actor.ID(),
		ActorUserType:       d.Actor.UserType,
		ActorIPAddress:      nullableString(d.Actor.IPAddress),
		ActorUserAgent:      nullableString(d.Actor.UserAgent),
		ActorSessionID:      nullableString(d.Actor.SessionID),
		Metadata:            metadata,
		CreatedAt:           d.CreatedAt,
		CreatedBy:           d.CreatedBy,
	}
}

// ToDomainTransaction converts a model Transaction to a domain Transaction
func ToDomainTransaction(m models.Transaction) domain.Transaction {
	d := domain.Transaction{
		TransactionID:       m.TransactionID,
		MoneyBoxID:          m.MoneyBoxID,
		TransactionType:     domain.TransactionType(m.TransactionType),
		Amount:              m.Amount,
		BalanceBefore:       m.BalanceBefore,
		BalanceAfter:        m.BalanceAfter,
		Description:         m.Description,
		ReferenceID:         derefString(m.ReferenceID),
		ReferenceType:       derefString(m.ReferenceType),
		OriginalAmount:      m.OriginalAmount,
		OriginalCurrency:    m.OriginalCurrency,
		ConvertedAmount:     m.ConvertedAmount,
		ConvertedCurrency:   m.ConvertedCurrency,
		ExchangeRate:        m.ExchangeRate,
		ConversionTimestamp: m.ConversionTimestamp,
		ConversionSource:    domain.ConversionSource(m.ConversionSource),
		OperationStatus:     domain.OperationStatus(m.OperationStatus),
		ErrorMessage:        derefString(m.ErrorMessage),
		Actor: domain.Actor{
			UserID:    m.ActorUserID,
			UserType:  m.ActorUserType,
			IPAddress: derefString(m.ActorIPAddress),
			UserAgent: derefString(m.ActorUserAgent),
			SessionID: derefString(m.ActorSessionID),
		},
		CreatedAt: m.CreatedAt,
		CreatedBy: m.CreatedBy,
	}
	if len(m.Metadata) > 0 {
		d.Metadata = m.Metadata
	}
	return d
}

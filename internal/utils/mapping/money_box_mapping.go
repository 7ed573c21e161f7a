package mapping

import (
	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	"github.com/uqar-pharmacy/moneybox/internal/models"
)

// ToModelMoneyBox converts a domain MoneyBox to a model MoneyBox
func ToModelMoneyBox(d domain.MoneyBox) models.MoneyBox {
	m := models.MoneyBox{
		MoneyBoxID:     d.MoneyBoxID,
		PharmacyID:     d.PharmacyID,
		Status:         string(d.Status),
		CurrentBalance: d.CurrentBalance,
		InitialBalance: d.InitialBalance,
		LastReconciled: d.LastReconciled,
		Currency:       d.Currency,
		AuditFields:    ToModelAuditFields(d.AuditFields),
	}
	if d.ReconciledBalance != nil {
		m.ReconciledBalance = decimal.NewNullDecimal(*d.ReconciledBalance)
	}
	return m
}

// ToDomainMoneyBox converts a model MoneyBox to a domain MoneyBox
func ToDomainMoneyBox(m models.MoneyBox) domain.MoneyBox {
	d := domain.MoneyBox{
		MoneyBoxID:     m.MoneyBoxID,
		PharmacyID:     m.PharmacyID,
		Status:         domain.MoneyBoxStatus(m.Status),
		CurrentBalance: m.CurrentBalance,
		InitialBalance: m.InitialBalance,
		LastReconciled: m.LastReconciled,
		Currency:       m.Currency,
		AuditFields:    ToDomainAuditFields(m.AuditFields),
	}
	if m.ReconciledBalance.Valid {
		v := m.ReconciledBalance.Decimal
		d.ReconciledBalance = &v
	}
	return d
}

package mapping

import (
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	"github.com/uqar-pharmacy/moneybox/internal/models"
)

// ToModelCustomerDebt converts a domain CustomerDebt to a model CustomerDebt
func ToModelCustomerDebt(d domain.CustomerDebt) models.CustomerDebt {
	return models.CustomerDebt{
		DebtID:          d.DebtID,
		PharmacyID:      d.PharmacyID,
		CustomerID:      d.CustomerID,
		Amount:          d.Amount,
		PaidAmount:      d.PaidAmount,
		RemainingAmount: d.RemainingAmount,
		Status:          string(d.Status),
		DueDate:         d.DueDate,
		PaidAt:          d.PaidAt,
		PaymentMethod:   string(d.PaymentMethod),
		Notes:           nullableString(d.Notes),
		AuditFields:     ToModelAuditFields(d.AuditFields),
	}
}

// ToDomainCustomerDebt converts a model CustomerDebt to a domain CustomerDebt
func ToDomainCustomerDebt(m models.CustomerDebt) domain.CustomerDebt {
	return domain.CustomerDebt{
		DebtID:          m.DebtID,
		PharmacyID:      m.PharmacyID,
		CustomerID:      m.CustomerID,
		Amount:          m.Amount,
		PaidAmount:      m.PaidAmount,
		RemainingAmount: m.RemainingAmount,
		Status:          domain.DebtStatus(m.Status),
		DueDate:         m.DueDate,
		PaidAt:          m.PaidAt,
		PaymentMethod:   domain.PaymentMethod(m.PaymentMethod),
		Notes:           derefString(m.Notes),
		AuditFields:     ToDomainAuditFields(m.AuditFields),
	}
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerDebt is a row of customer_debts.
type CustomerDebt struct {
	DebtID          string          `json:"debtID"` // Primary Key (UUID)
	PharmacyID      string          `json:"pharmacyID"`
	CustomerID      string          `json:"customerID"`
	Amount          decimal.Decimal `json:"amount"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Status          string          `json:"status"`
	DueDate         time.Time       `json:"dueDate"`
	PaidAt          *time.Time      `json:"paidAt"` // Nullable
	PaymentMethod   string          `json:"paymentMethod"`
	Notes           *string         `json:"notes"` // Nullable
	AuditFields
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyBox is a row of money_boxes.
type MoneyBox struct {
	MoneyBoxID        string              `json:"moneyBoxID"`     // Primary Key (UUID)
	PharmacyID        string              `json:"pharmacyID"`     // Unique
	Status            string              `json:"status"`         // OPEN or CLOSED
	CurrentBalance    decimal.Decimal     `json:"currentBalance"` // NUMERIC(20,2), base currency
	InitialBalance    decimal.Decimal     `json:"initialBalance"`
	ReconciledBalance decimal.NullDecimal `json:"reconciledBalance"` // Nullable
	LastReconciled    *time.Time          `json:"lastReconciled"`    // Nullable
	Currency          string              `json:"currency"`
	AuditFields
}

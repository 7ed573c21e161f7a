package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyBoxStatus indicates whether a money box accepts manual cash movements.
type MoneyBoxStatus string

const (
	MoneyBoxOpen   MoneyBoxStatus = "OPEN"
	MoneyBoxClosed MoneyBoxStatus = "CLOSED"
)

// IsValid reports whether the status is a known value.
func (s MoneyBoxStatus) IsValid() bool {
	return s == MoneyBoxOpen || s == MoneyBoxClosed
}

// MoneyBox is the running cash balance of a single pharmacy, always held in the base currency.
type MoneyBox struct {
	MoneyBoxID        string           `json:"moneyBoxID"`
	PharmacyID        string           `json:"pharmacyID"` // one box per pharmacy
	Status            MoneyBoxStatus   `json:"status"`
	CurrentBalance    decimal.Decimal  `json:"currentBalance"`
	InitialBalance    decimal.Decimal  `json:"initialBalance"`
	ReconciledBalance *decimal.Decimal `json:"reconciledBalance,omitempty"`
	LastReconciled    *time.Time       `json:"lastReconciled,omitempty"`
	Currency          string           `json:"currency"`
	AuditFields
}

// IsOpen reports whether manual transactions may be added.
func (m MoneyBox) IsOpen() bool {
	return m.Status == MoneyBoxOpen
}

// MoneyBoxView is a money box with its balance rendered in the display currencies.
type MoneyBoxView struct {
	MoneyBox        MoneyBox
	DisplayBalances []Conversion
}

// Reconciliation is the outcome of a cash count.
type Reconciliation struct {
	MoneyBox   MoneyBox
	Expected   decimal.Decimal
	Actual     decimal.Decimal
	Difference decimal.Decimal
	Adjustment *Transaction // nil when the count matched
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebtStatus is the lifecycle state of a customer debt.
type DebtStatus string

const (
	DebtActive  DebtStatus = "ACTIVE"
	DebtPaid    DebtStatus = "PAID"
	DebtOverdue DebtStatus = "OVERDUE"
)

// PaymentMethod says how a debt payment was collected. Only CASH touches the money box.
type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "CASH"
	PaymentBankAccount PaymentMethod = "BANK_ACCOUNT"
)

// IsValid reports whether m is a known payment method.
func (m PaymentMethod) IsValid() bool {
	return m == PaymentCash || m == PaymentBankAccount
}

// CustomerDebt is an amount a customer owes a pharmacy.
type CustomerDebt struct {
	DebtID          string          `json:"debtID"`
	PharmacyID      string          `json:"pharmacyID"`
	CustomerID      string          `json:"customerID"`
	Amount          decimal.Decimal `json:"amount"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Status          DebtStatus      `json:"status"`
	DueDate         time.Time       `json:"dueDate"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	Notes           string          `json:"notes,omitempty"`
	AuditFields
}

// ApplyPayment adds amount to the paid total and moves the status: PAID once nothing
// remains, OVERDUE when something remains past the due date. It does not check the
// amount against the remaining balance; callers reject overpayments first.
func (d *CustomerDebt) ApplyPayment(amount decimal.Decimal, now time.Time) {
	d.PaidAmount = d.PaidAmount.Add(amount)
	d.RemainingAmount = d.Amount.Sub(d.PaidAmount)
	switch {
	case d.RemainingAmount.LessThanOrEqual(decimal.Zero):
		d.Status = DebtPaid
		paidAt := now
		d.PaidAt = &paidAt
	case now.After(d.DueDate):
		d.Status = DebtOverdue
	}
	d.LastUpdatedAt = now
}

// IsOverdue reports whether the debt still has a balance after its due date.
func (d CustomerDebt) IsOverdue(asOf time.Time) bool {
	return d.Status != DebtPaid && d.RemainingAmount.IsPositive() && asOf.After(d.DueDate)
}

// DebtAllocation is the share of a FIFO payment applied to one debt.
type DebtAllocation struct {
	DebtID          string          `json:"debtID"`
	OriginalAmount  decimal.Decimal `json:"originalAmount"`
	AmountPaid      decimal.Decimal `json:"amountPaid"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Status          DebtStatus      `json:"status"`
	DueDate         time.Time       `json:"dueDate"`
}

// SettlementReport describes the outcome of a bulk payment.
type SettlementReport struct {
	PharmacyID         string
	CustomerID         string
	RequestedAmount    decimal.Decimal
	TotalAllocated     decimal.Decimal
	TotalRemainingDebt decimal.Decimal
	PaymentMethod      PaymentMethod
	Allocations        []DebtAllocation
	LedgerEntry        *Transaction
}

// DebtStatusTotal is the aggregate of all debts in one status.
type DebtStatusTotal struct {
	Status          DebtStatus
	Count           int64
	Amount          decimal.Decimal
	PaidAmount      decimal.Decimal
	RemainingAmount decimal.Decimal
}

// DebtStatistics summarises a pharmacy's debts.
type DebtStatistics struct {
	PharmacyID       string
	TotalDebts       int64
	ActiveDebts      int64
	PaidDebts        int64
	OverdueDebts     int64
	TotalAmount      decimal.Decimal
	TotalPaid        decimal.Decimal
	TotalRemaining   decimal.Decimal
	OverdueRemaining decimal.Decimal
}

// DebtPaymentNotification is emitted after a committed debt payment.
type DebtPaymentNotification struct {
	PharmacyID      string          `json:"pharmacyID"`
	CustomerID      string          `json:"customerID"`
	DebtID          string          `json:"debtID"`
	AmountPaid      decimal.Decimal `json:"amountPaid"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Status          DebtStatus      `json:"status"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	PaidAt          time.Time       `json:"paidAt"`
}

// CreateDebtRequest describes a new deferred payment.
type CreateDebtRequest struct {
	CustomerID    string
	Amount        decimal.Decimal
	DueDate       time.Time
	PaymentMethod PaymentMethod
	Notes         string
}

package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// CreateDebtRequest records a deferred payment owed by a customer.
type CreateDebtRequest struct {
	CustomerID    string          `json:"customerID" binding:"required,max=64"`
	Amount        decimal.Decimal `json:"amount"`
	DueDate       time.Time       `json:"dueDate" binding:"required"`
	PaymentMethod string          `json:"paymentMethod" binding:"omitempty,oneof=CASH BANK_ACCOUNT"`
	Notes         string          `json:"notes" binding:"max=500"`
}

// ToDomain converts the request into the service input.
func (r CreateDebtRequest) ToDomain() domain.CreateDebtRequest {
	return domain.CreateDebtRequest{
		CustomerID:    r.CustomerID,
		Amount:        r.Amount,
		DueDate:       r.DueDate,
		PaymentMethod: domain.PaymentMethod(r.PaymentMethod),
		Notes:         r.Notes,
	}
}

// DebtPaymentRequest pays one debt or, for auto-pay, a customer's debts oldest first.
type DebtPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" binding:"omitempty,oneof=CASH BANK_ACCOUNT"`
	Notes         string          `json:"notes" binding:"max=500"`
}

// DebtResponse defines the API representation of a customer debt.
type DebtResponse struct {
	DebtID          string          `json:"debtID"`
	PharmacyID      string          `json:"pharmacyID"`
	CustomerID      string          `json:"customerID"`
	Amount          decimal.Decimal `json:"amount"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	Status          string          `json:"status"`
	DueDate         time.Time       `json:"dueDate"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	PaymentMethod   string          `json:"paymentMethod"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	CreatedBy       string          `json:"createdBy"`
	LastUpdatedAt   time.Time       `json:"lastUpdatedAt"`
	LastUpdatedBy   string          `json:"lastUpdatedBy"`
}

// ToDebtResponse converts a domain.CustomerDebt to DebtResponse DTO
func ToDebtResponse(d *domain.CustomerDebt) DebtResponse {
	return DebtResponse{
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
		Notes:           d.Notes,
		CreatedAt:       d.CreatedAt,
		CreatedBy:       d.CreatedBy,
		LastUpdatedAt:   d.LastUpdatedAt,
		LastUpdatedBy:   d.LastUpdatedBy,
	}
}

// ToListDebtResponse converts a slice of domain debts.
func ToListDebtResponse(debts []domain.CustomerDebt) []DebtResponse {
	responses := make([]DebtResponse, len(debts))
	for i := range debts {
		responses[i] = ToDebtResponse(&debts[i])
	}
	return responses
}

// SettlementResponse reports how a bulk payment was spread.
type SettlementResponse struct {
	CustomerID         string                  `json:"customerID"`
	RequestedAmount    decimal.Decimal         `json:"requestedAmount"`
	TotalAllocated     decimal.Decimal         `json:"totalAllocated"`
	TotalRemainingDebt decimal.Decimal         `json:"totalRemainingDebt"`
	PaymentMethod      string                  `json:"paymentMethod"`
	Allocations        []domain.DebtAllocation `json:"allocations"`
	LedgerEntry        *TransactionResponse    `json:"ledgerEntry,omitempty"`
}

// ToSettlementResponse converts a domain.SettlementReport.
func ToSettlementResponse(r *domain.SettlementReport) SettlementResponse {
	resp := SettlementResponse{
		CustomerID:         r.CustomerID,
		RequestedAmount:    r.RequestedAmount,
		TotalAllocated:     r.TotalAllocated,
		TotalRemainingDebt: r.TotalRemainingDebt,
		PaymentMethod:      string(r.PaymentMethod),
		Allocations:        r.Allocations,
	}
	if resp.Allocations == nil {
		resp.Allocations = []domain.DebtAllocation{}
	}
	if r.LedgerEntry != nil {
		entry := ToTransactionResponse(r.LedgerEntry)
		resp.LedgerEntry = &entry
	}
	return resp
}

// DebtStatisticsResponse summarises a pharmacy's debts.
type DebtStatisticsResponse struct {
	TotalDebts       int64           `json:"totalDebts"`
	ActiveDebts      int64           `json:"activeDebts"`
	PaidDebts        int64           `json:"paidDebts"`
	OverdueDebts     int64           `json:"overdueDebts"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	TotalPaid        decimal.Decimal `json:"totalPaid"`
	TotalRemaining   decimal.Decimal `json:"totalRemaining"`
	OverdueRemaining decimal.Decimal `json:"overdueRemaining"`
}

// ToDebtStatisticsResponse converts a domain.DebtStatistics.
func ToDebtStatisticsResponse(s *domain.DebtStatistics) DebtStatisticsResponse {
	return DebtStatisticsResponse{
		TotalDebts:       s.TotalDebts,
		ActiveDebts:      s.ActiveDebts,
		PaidDebts:        s.PaidDebts,
		OverdueDebts:     s.OverdueDebts,
		TotalAmount:      s.TotalAmount,
		TotalPaid:        s.TotalPaid,
		TotalRemaining:   s.TotalRemaining,
		OverdueRemaining: s.OverdueRemaining,
	}
}

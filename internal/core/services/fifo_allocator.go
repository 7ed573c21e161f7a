package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// FIFOResult is the outcome of spreading one payment over several debts.
type FIFOResult struct {
	// Updated holds the debts that received part of the payment, already
	// carrying their new paid/remaining amounts and status.
	Updated     []domain.CustomerDebt
	Allocations []domain.DebtAllocation
	Allocated   decimal.Decimal
	Unallocated decimal.Decimal
}

// AllocateFIFO applies payment to debts oldest first. Each debt gets
// min(payment left, debt remaining) and the walk stops once the payment is used.
// The input slice is not modified.
func AllocateFIFO(debts []domain.CustomerDebt, payment decimal.Decimal, now time.Time) FIFOResult {
	ordered := make([]domain.CustomerDebt, len(debts))
	copy(ordered, debts)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		}
		return ordered[i].DebtID < ordered[j].DebtID
	})

	res := FIFOResult{Allocated: decimal.Zero, Unallocated: payment}
	for _, debt := range ordered {
		if !res.Unallocated.IsPositive() {
			break
		}
		if !debt.RemainingAmount.IsPositive() {
			continue
		}
		share := decimal.Min(res.Unallocated, debt.RemainingAmount)
		debt.ApplyPayment(share, now)

		res.Updated = append(res.Updated, debt)
		res.Allocations = append(res.Allocations, domain.DebtAllocation{
			DebtID:          debt.DebtID,
			OriginalAmount:  debt.Amount,
			AmountPaid:      share,
			RemainingAmount: debt.RemainingAmount,
			Status:          debt.Status,
			DueDate:         debt.DueDate,
		})
		res.Allocated = res.Allocated.Add(share)
		res.Unallocated = res.Unallocated.Sub(share)
	}
	return res
}

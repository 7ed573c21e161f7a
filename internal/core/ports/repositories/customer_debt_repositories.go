package repositories

import (
	"context"
	"time"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// CustomerDebtReader defines read operations for customer debts.
type CustomerDebtReader interface {
	FindDebtByID(ctx context.Context, debtID string) (*domain.CustomerDebt, error)
	// ListDebtsByCustomer returns all debts of a customer, oldest first.
	ListDebtsByCustomer(ctx context.Context, pharmacyID, customerID string) ([]domain.CustomerDebt, error)
	// ListOverdueDebts returns unpaid debts whose due date is before asOf.
	ListOverdueDebts(ctx context.Context, pharmacyID string, asOf time.Time) ([]domain.CustomerDebt, error)
	SummarizeDebts(ctx context.Context, pharmacyID string) ([]domain.DebtStatusTotal, error)
}

// CustomerDebtWriter defines write operations for customer debts.
type CustomerDebtWriter interface {
	SaveDebt(ctx context.Context, debt domain.CustomerDebt) error
}

// DebtTx is the handle available inside a debt unit of work.
type DebtTx interface {
	LockDebt(ctx context.Context, debtID string) (*domain.CustomerDebt, error)
	// LockActiveDebtsByCustomer locks the customer's ACTIVE debts ordered oldest first.
	LockActiveDebtsByCustomer(ctx context.Context, pharmacyID, customerID string) ([]domain.CustomerDebt, error)
	UpdateDebtPayment(ctx context.Context, debt domain.CustomerDebt) error
	DeleteDebt(ctx context.Context, debtID string) error
}

// CustomerDebtRepositoryFacade combines all debt repository interfaces.
type CustomerDebtRepositoryFacade interface {
	CustomerDebtReader
	CustomerDebtWriter
	DebtUnitOfWork
}

package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// MoneyBoxReader defines read operations for money boxes.
type MoneyBoxReader interface {
	// FindMoneyBoxByID returns apperrors.ErrNotFound when no box has the id.
	FindMoneyBoxByID(ctx context.Context, moneyBoxID string) (*domain.MoneyBox, error)
	// FindMoneyBoxByPharmacyID returns apperrors.ErrNotFound when the pharmacy has no box.
	FindMoneyBoxByPharmacyID(ctx context.Context, pharmacyID string) (*domain.MoneyBox, error)
}

// MoneyBoxWriter defines write operations for money boxes that do not move the balance.
type MoneyBoxWriter interface {
	// SaveMoneyBox inserts a box. A second box for the same pharmacy yields apperrors.ErrDuplicate.
	SaveMoneyBox(ctx context.Context, box domain.MoneyBox) error
	UpdateMoneyBoxStatus(ctx context.Context, moneyBoxID string, status domain.MoneyBoxStatus, userID string, now time.Time) error
	UpdateReconciliation(ctx context.Context, moneyBoxID string, reconciled decimal.Decimal, userID string, now time.Time) error
}

// LedgerTx is the handle available inside a ledger unit of work.
type LedgerTx interface {
	// InsertMoneyBox creates a box inside the unit, so it can be opened together
	// with its first entry. A second box for the pharmacy yields apperrors.ErrDuplicate.
	InsertMoneyBox(ctx context.Context, box domain.MoneyBox) error
	// LockMoneyBox reads the box and holds it until the unit ends.
	LockMoneyBox(ctx context.Context, moneyBoxID string) (*domain.MoneyBox, error)
	UpdateMoneyBoxBalance(ctx context.Context, moneyBoxID string, balance decimal.Decimal, userID string, now time.Time) error
	SaveTransaction(ctx context.Context, txn domain.Transaction) error
}

// MoneyBoxRepositoryFacade combines all money box repository interfaces.
type MoneyBoxRepositoryFacade interface {
	MoneyBoxReader
	MoneyBoxWriter
	LedgerUnitOfWork
}

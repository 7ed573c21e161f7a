package services

import (
	"context"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// LedgerSvc is the single recording entry point of the money box ledger.
type LedgerSvc interface {
	// Record converts, applies and persists one movement. When persistence fails it
	// stores a FAILED compensating row and returns it next to an ErrInternal error.
	Record(ctx context.Context, req domain.RecordRequest) (*domain.Transaction, error)
	// RecordForPharmacy resolves the pharmacy's money box and calls Record.
	RecordForPharmacy(ctx context.Context, pharmacyID string, req domain.RecordRequest) (*domain.Transaction, error)
	// OpenMoneyBox creates box and records req as its first entry atomically.
	OpenMoneyBox(ctx context.Context, box domain.MoneyBox, req domain.RecordRequest) (*domain.Transaction, error)
}

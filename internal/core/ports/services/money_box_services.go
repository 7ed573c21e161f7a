package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// MoneyBoxReaderSvc defines read operations for a pharmacy's money box.
type MoneyBoxReaderSvc interface {
	GetMoneyBox(ctx context.Context, pharmacyID string) (*domain.MoneyBoxView, error)
	ListTransactions(ctx context.Context, pharmacyID string, filter domain.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error)
	PeriodSummary(ctx context.Context, pharmacyID string, from, to time.Time) (*domain.PeriodSummary, error)
	AuditTrail(ctx context.Context, pharmacyID, referenceType, referenceID string) ([]domain.Transaction, error)
	FailedOperations(ctx context.Context, pharmacyID string, from, to time.Time) (*domain.FailedOperationsAnalysis, error)
	ConversionAnalytics(ctx context.Context, pharmacyID string, from, to time.Time) (*domain.ConversionAnalytics, error)
}

// MoneyBoxWriterSvc defines write operations for a pharmacy's money box.
type MoneyBoxWriterSvc interface {
	CreateMoneyBox(ctx context.Context, pharmacyID string, initialBalance decimal.Decimal, currency string, actor domain.Actor) (*domain.MoneyBox, error)
	UpdateStatus(ctx context.Context, pharmacyID string, status domain.MoneyBoxStatus, actor domain.Actor) (*domain.MoneyBox, error)
	AddManualTransaction(ctx context.Context, pharmacyID string, amount decimal.Decimal, currency, description string, actor domain.Actor) (*domain.Transaction, error)
	Reconcile(ctx context.Context, pharmacyID string, actualCount decimal.Decimal, notes string, actor domain.Actor) (*domain.Reconciliation, error)
}

// MoneyBoxSvcFacade combines all money box service interfaces.
type MoneyBoxSvcFacade interface {
	MoneyBoxReaderSvc
	MoneyBoxWriterSvc
}

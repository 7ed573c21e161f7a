package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// DebtReaderSvc defines read operations for customer debts.
type DebtReaderSvc interface {
	GetDebt(ctx context.Context, pharmacyID, debtID string) (*domain.CustomerDebt, error)
	ListCustomerDebts(ctx context.Context, pharmacyID, customerID string) ([]domain.CustomerDebt, error)
	ListOverdueDebts(ctx context.Context, pharmacyID string) ([]domain.CustomerDebt, error)
	DebtStatistics(ctx context.Context, pharmacyID string) (*domain.DebtStatistics, error)
}

// DebtWriterSvc defines debt creation and settlement.
type DebtWriterSvc interface {
	CreateDebt(ctx context.Context, pharmacyID string, req domain.CreateDebtRequest, actor domain.Actor) (*domain.CustomerDebt, error)
	PayDebt(ctx context.Context, pharmacyID, debtID string, amount decimal.Decimal, method domain.PaymentMethod, notes string, actor domain.Actor) (*domain.CustomerDebt, error)
	// AutoPay spreads amount over the customer's active debts, oldest first.
	AutoPay(ctx context.Context, pharmacyID, customerID string, amount decimal.Decimal, method domain.PaymentMethod, notes string, actor domain.Actor) (*domain.SettlementReport, error)
	DeleteDebt(ctx context.Context, pharmacyID, debtID string, actor domain.Actor) error
}

// DebtSvcFacade combines all debt service interfaces.
type DebtSvcFacade interface {
	DebtReaderSvc
	DebtWriterSvc
}

// DebtPaymentNotifier publishes committed debt payments to interested parties.
type DebtPaymentNotifier interface {
	NotifyDebtPayment(ctx context.Context, n domain.DebtPaymentNotification) error
}

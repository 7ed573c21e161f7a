package handlers_test

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portssvc "github.com/uqar-pharmacy/moneybox/internal/core/ports/services"
)

// --- Mock MoneyBoxService ---
type MockMoneyBoxService struct {
	mock.Mock
}

var _ portssvc.MoneyBoxSvcFacade = (*MockMoneyBoxService)(nil)

func (m *MockMoneyBoxService) GetMoneyBox(ctx context.Context, pharmacyID string) (*domain.MoneyBoxView, error) {
	args := m.Called(ctx, pharmacyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MoneyBoxView), args.Error(1)
}
func (m *MockMoneyBoxService) ListTransactions(ctx context.Context, pharmacyID string, filter domain.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	args := m.Called(ctx, pharmacyID, filter, limit, nextToken)
	var next *string
	if args.Get(1) != nil {
		next = args.Get(1).(*string)
	}
	if args.Get(0) == nil {
		return nil, next, args.Error(2)
	}
	return args.Get(0).([]domain.Transaction), next, args.Error(2)
}
func (m *MockMoneyBoxService) PeriodSummary(ctx context.Context, pharmacyID string, from, to time.Time) (*domain.PeriodSummary, error) {
	args := m.Called(ctx, pharmacyID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PeriodSummary), args.Error(1)
}
func (m *MockMoneyBoxService) FailedOperations(ctx context.Context, pharmacyID string, from, to time.Time) (*domain.FailedOperationsAnalysis, error) {
	args := m.Called(ctx, pharmacyID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FailedOperationsAnalysis), args.Error(1)
}
func (m *MockMoneyBoxService) ConversionAnalytics(ctx context.Context, pharmacyID string, from, to time.Time) (*domain.ConversionAnalytics, error) {
	args := m.Called(ctx, pharmacyID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConversionAnalytics), args.Error(1)
}
func (m *MockMoneyBoxService) AuditTrail(ctx context.Context, pharmacyID, referenceType, referenceID string) ([]domain.Transaction, error) {
	args := m.Called(ctx, pharmacyID, referenceType, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}
func (m *MockMoneyBoxService) CreateMoneyBox(ctx context.Context, pharmacyID string, initialBalance decimal.Decimal, currency string, actor domain.Actor) (*domain.MoneyBox, error) {
	args := m.Called(ctx, pharmacyID, initialBalance, currency, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MoneyBox), args.Error(1)
}
func (m *MockMoneyBoxService) UpdateStatus(ctx context.Context, pharmacyID string, status domain.MoneyBoxStatus, actor domain.Actor) (*domain.MoneyBox, error) {
	args := m.Called(ctx, pharmacyID, status, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MoneyBox), args.Error(1)
}
func (m *MockMoneyBoxService) AddManualTransaction(ctx context.Context, pharmacyID string, amount decimal.Decimal, currency, description string, actor domain.Actor) (*domain.Transaction, error) {
	args := m.Called(ctx, pharmacyID, amount, currency, description, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockMoneyBoxService) Reconcile(ctx context.Context, pharmacyID string, actualCount decimal.Decimal, notes string, actor domain.Actor) (*domain.Reconciliation, error) {
	args := m.Called(ctx, pharmacyID, actualCount, notes, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reconciliation), args.Error(1)
}

// --- Mock LedgerService ---
type MockLedgerService struct {
	mock.Mock
}

var _ portssvc.LedgerSvc = (*MockLedgerService)(nil)

func (m *MockLedgerService) Record(ctx context.Context, req domain.RecordRequest) (*domain.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockLedgerService) RecordForPharmacy(ctx context.Context, pharmacyID string, req domain.RecordRequest) (*domain.Transaction, error) {
	args := m.Called(ctx, pharmacyID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockLedgerService) OpenMoneyBox(ctx context.Context, box domain.MoneyBox, req domain.RecordRequest) (*domain.Transaction, error) {
	args := m.Called(ctx, box, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// --- Mock ExchangeRateService ---
type MockExchangeRateService struct {
	mock.Mock
}

var _ portssvc.ExchangeRateSvcFacade = (*MockExchangeRateService)(nil)

func (m *MockExchangeRateService) GetRate(ctx context.Context, rateID string) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, rateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}
func (m *MockExchangeRateService) ListActiveRates(ctx context.Context) ([]domain.ExchangeRate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExchangeRate), args.Error(1)
}
func (m *MockExchangeRateService) RatePair(ctx context.Context, codeA, codeB string) ([]domain.ExchangeRate, error) {
	args := m.Called(ctx, codeA, codeB)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExchangeRate), args.Error(1)
}
func (m *MockExchangeRateService) RateHistory(ctx context.Context, fromCode, toCode string) ([]domain.ExchangeRate, error) {
	args := m.Called(ctx, fromCode, toCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ExchangeRate), args.Error(1)
}
func (m *MockExchangeRateService) SetRate(ctx context.Context, req domain.SetRateRequest, userID string) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, req, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}
func (m *MockExchangeRateService) DeactivateRate(ctx context.Context, rateID string, userID string) error {
	args := m.Called(ctx, rateID, userID)
	return args.Error(0)
}
func (m *MockExchangeRateService) Rate(ctx context.Context, fromCode, toCode string) (domain.RateQuote, error) {
	args := m.Called(ctx, fromCode, toCode)
	return args.Get(0).(domain.RateQuote), args.Error(1)
}
func (m *MockExchangeRateService) Convert(ctx context.Context, amount decimal.Decimal, fromCode, toCode string) domain.Conversion {
	args := m.Called(ctx, amount, fromCode, toCode)
	return args.Get(0).(domain.Conversion)
}
func (m *MockExchangeRateService) BaseCurrency() string {
	return m.Called().String(0)
}
func (m *MockExchangeRateService) IsSupported(code string) bool {
	return m.Called(code).Bool(0)
}

// --- Mock DebtService ---
type MockDebtService struct {
	mock.Mock
}

var _ portssvc.DebtSvcFacade = (*MockDebtService)(nil)

func (m *MockDebtService) GetDebt(ctx context.Context, pharmacyID, debtID string) (*domain.CustomerDebt, error) {
	args := m.Called(ctx, pharmacyID, debtID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerDebt), args.Error(1)
}
func (m *MockDebtService) ListCustomerDebts(ctx context.Context, pharmacyID, customerID string) ([]domain.CustomerDebt, error) {
	args := m.Called(ctx, pharmacyID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CustomerDebt), args.Error(1)
}
func (m *MockDebtService) ListOverdueDebts(ctx context.Context, pharmacyID string) ([]domain.CustomerDebt, error) {
	args := m.Called(ctx, pharmacyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CustomerDebt), args.Error(1)
}
func (m *MockDebtService) DebtStatistics(ctx context.Context, pharmacyID string) (*domain.DebtStatistics, error) {
	args := m.Called(ctx, pharmacyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DebtStatistics), args.Error(1)
}
func (m *MockDebtService) CreateDebt(ctx context.Context, pharmacyID string, req domain.CreateDebtRequest, actor domain.Actor) (*domain.CustomerDebt, error) {
	args := m.Called(ctx, pharmacyID, req, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerDebt), args.Error(1)
}
func (m *MockDebtService) PayDebt(ctx context.Context, pharmacyID, debtID string, amount decimal.Decimal, method domain.PaymentMethod, notes string, actor domain.Actor) (*domain.CustomerDebt, error) {
	args := m.Called(ctx, pharmacyID, debtID, amount, method, notes, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerDebt), args.Error(1)
}
func (m *MockDebtService) AutoPay(ctx context.Context, pharmacyID, customerID string, amount decimal.Decimal, method domain.PaymentMethod, notes string, actor domain.Actor) (*domain.SettlementReport, error) {
	args := m.Called(ctx, pharmacyID, customerID, amount, method, notes, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SettlementReport), args.Error(1)
}
func (m *MockDebtService) DeleteDebt(ctx context.Context, pharmacyID, debtID string, actor domain.Actor) error {
	args := m.Called(ctx, pharmacyID, debtID, actor)
	return args.Error(0)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/apperrors"
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portsrepo "github.com/uqar-pharmacy/moneybox/internal/core/ports/repositories"
	portssvc "github.com/uqar-pharmacy/moneybox/internal/core/ports/services"
)

const (
	defaultTransactionPageSize = 20
	maxTransactionPageSize     = 100
)

// Reference types written by money box operations.
const (
	ReferenceMoneyBox       = "MONEY_BOX"
	ReferenceManual         = "MANUAL"
	ReferenceReconciliation = "RECONCILIATION"
)

type moneyBoxService struct {
	BaseService
	boxRepo           portsrepo.MoneyBoxRepositoryFacade
	txnRepo           portsrepo.TransactionReader
	ledger            portssvc.LedgerSvc
	converter         portssvc.CurrencyConverterSvc
	displayCurrencies []string
}

// NewMoneyBoxService creates the pharmacy-facing money box service.
func NewMoneyBoxService(
	boxRepo portsrepo.MoneyBoxRepositoryFacade,
	txnRepo portsrepo.TransactionReader,
	ledger portssvc.LedgerSvc,
	converter portssvc.CurrencyConverterSvc,
	displayCurrencies []string,
	opts ...ServiceOption,
) portssvc.MoneyBoxSvcFacade {
	return &moneyBoxService{
		BaseService:       newBaseService(opts),
		boxRepo:           boxRepo,
		txnRepo:           txnRepo,
		ledger:            ledger,
		converter:         converter,
		displayCurrencies: displayCurrencies,
	}
}

var _ portssvc.MoneyBoxSvcFacade = (*moneyBoxService)(nil)

func (s *moneyBoxService) findBox(ctx context.Context, pharmacyID string) (*domain.MoneyBox, error) {
	if strings.TrimSpace(pharmacyID) == "" {
		return nil, fmt.Errorf("%w: pharmacy id is required", apperrors.ErrValidation)
	}
	return s.boxRepo.FindMoneyBoxByPharmacyID(ctx, pharmacyID)
}

func (s *moneyBoxService) CreateMoneyBox(ctx context.Context, pharmacyID string, initialBalance decimal.Decimal, currency string, actor domain.Actor) (*domain.MoneyBox, error) {
	if strings.TrimSpace(pharmacyID) == "" {
		return nil, fmt.Errorf("%w: pharmacy id is required", apperrors.ErrValidation)
	}
	if initialBalance.IsNegative() {
		return nil, fmt.Errorf("%w: initial balance must not be negative", apperrors.ErrValidation)
	}
	base := s.converter.BaseCurrency()
	currency = normalizeCurrency(currency)
	if currency == "" {
		currency = base
	}
	if !s.converter.IsSupported(currency) {
		return nil, fmt.Errorf("%w: currency %s is not supported", apperrors.ErrValidation, currency)
	}

	if _, err := s.boxRepo.FindMoneyBoxByPharmacyID(ctx, pharmacyID); err == nil {
		return nil, fmt.Errorf("%w: money box already exists for pharmacy %s", apperrors.ErrConflict, pharmacyID)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	initial := initialBalance
	if currency != base {
		initial = s.converter.Convert(ctx, initialBalance, currency, base).Amount
	}

	now := s.Now()
	box := domain.MoneyBox{
		MoneyBoxID:     uuid.NewString(),
		PharmacyID:     pharmacyID,
		Status:         domain.MoneyBoxOpen,
		CurrentBalance: decimal.Zero,
		InitialBalance: initial.Abs(),
		Currency:       base,
		AuditFields:    domain.NewAuditFields(actor.ID(), now),
	}
	if _, err := s.ledger.OpenMoneyBox(ctx, box, domain.RecordRequest{
		TransactionType:  domain.OpeningBalance,
		OriginalAmount:   initialBalance,
		OriginalCurrency: currency,
		Description:      "Opening balance",
		ReferenceID:      box.MoneyBoxID,
		ReferenceType:    ReferenceMoneyBox,
		Actor:            actor,
	}); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: money box already exists for pharmacy %s", apperrors.ErrConflict, pharmacyID)
		}
		return nil, err
	}

	s.LogInfo(ctx, "Money box created", slog.String("money_box_id", box.MoneyBoxID), slog.String("pharmacy_id", pharmacyID))
	return s.boxRepo.FindMoneyBoxByID(ctx, box.MoneyBoxID)
}

func (s *moneyBoxService) GetMoneyBox(ctx context.Context, pharmacyID string) (*domain.MoneyBoxView, error) {
	box, err := s.findBox(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}

	base := s.converter.BaseCurrency()
	view := &domain.MoneyBoxView{MoneyBox: *box}
	view.DisplayBalances = append(view.DisplayBalances, s.converter.Convert(ctx, box.CurrentBalance, base, base))
	for _, code := range s.displayCurrencies {
		if normalizeCurrency(code) == base {
			continue
		}
		view.DisplayBalances = append(view.DisplayBalances, s.converter.Convert(ctx, box.CurrentBalance, base, code))
	}
	return view, nil
}

func (s *moneyBoxService) UpdateStatus(ctx context.Context, pharmacyID string, status domain.MoneyBoxStatus, actor domain.Actor) (*domain.MoneyBox, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown money box status %q", apperrors.ErrValidation, status)
	}
	box, err := s.findBox(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	if box.Status == status {
		return box, nil
	}
	if err := s.boxRepo.UpdateMoneyBoxStatus(ctx, box.MoneyBoxID, status, actor.ID(), s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to update money box status", slog.String("money_box_id", box.MoneyBoxID))
		return nil, err
	}
	s.LogInfo(ctx, "Money box status updated", slog.String("money_box_id", box.MoneyBoxID), slog.String("status", string(status)))
	return s.boxRepo.FindMoneyBoxByID(ctx, box.MoneyBoxID)
}

// AddManualTransaction records a cash deposit (positive amount) or withdrawal (negative amount).
func (s *moneyBoxService) AddManualTransaction(ctx context.Context, pharmacyID string, amount decimal.Decimal, currency, description string, actor domain.Actor) (*domain.Transaction, error) {
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: amount must not be zero", apperrors.ErrValidation)
	}
	box, err := s.findBox(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	if !box.IsOpen() {
		return nil, fmt.Errorf("%w: money box %s is closed", apperrors.ErrConflict, box.MoneyBoxID)
	}

	txnType := domain.CashDeposit
	if amount.IsNegative() {
		txnType = domain.CashWithdrawal
	}
	if strings.TrimSpace(description) == "" {
		description = "Manual cash deposit"
		if txnType == domain.CashWithdrawal {
			description = "Manual cash withdrawal"
		}
	}

	return s.ledger.Record(ctx, domain.RecordRequest{
		MoneyBoxID:       box.MoneyBoxID,
		TransactionType:  txnType,
		OriginalAmount:   amount,
		OriginalCurrency: currency,
		Description:      description,
		ReferenceType:    ReferenceManual,
		Actor:            actor,
	})
}

// Reconcile compares a physical cash count with the running balance and books the difference.
func (s *moneyBoxService) Reconcile(ctx context.Context, pharmacyID string, actualCount decimal.Decimal, notes string, actor domain.Actor) (*domain.Reconciliation, error) {
	if actualCount.IsNegative() {
		return nil, fmt.Errorf("%w: actual cash count must not be negative", apperrors.ErrValidation)
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, fmt.Errorf("%w: reconciliation notes are required", apperrors.ErrValidation)
	}
	box, err := s.findBox(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	if !box.IsOpen() {
		return nil, fmt.Errorf("%w: money box %s is closed", apperrors.ErrConflict, box.MoneyBoxID)
	}

	result := &domain.Reconciliation{
		Expected:   box.CurrentBalance,
		Actual:     actualCount,
		Difference: actualCount.Sub(box.CurrentBalance),
	}

	if !result.Difference.IsZero() {
		adj, err := s.ledger.Record(ctx, domain.RecordRequest{
			MoneyBoxID:       box.MoneyBoxID,
			TransactionType:  domain.Adjustment,
			OriginalAmount:   result.Difference,
			OriginalCurrency: s.converter.BaseCurrency(),
			Description:      "Cash reconciliation: " + notes,
			ReferenceID:      box.MoneyBoxID,
			ReferenceType:    ReferenceReconciliation,
			Actor:            actor,
			Metadata: map[string]string{
				"expected_balance": result.Expected.String(),
				"actual_count":     actualCount.String(),
			},
		})
		if err != nil {
			return nil, err
		}
		if !adj.BalanceAfter.Equal(actualCount) {
			s.LogWarn(ctx, "Balance moved during reconciliation",
				slog.String("money_box_id", box.MoneyBoxID),
				slog.String("actual_count", actualCount.String()),
				slog.String("balance_after", adj.BalanceAfter.String()))
		}
		result.Adjustment = adj
	}

	if err := s.boxRepo.UpdateReconciliation(ctx, box.MoneyBoxID, actualCount, actor.ID(), s.Now()); err != nil {
		s.LogError(ctx, err, "Failed to store reconciliation", slog.String("money_box_id", box.MoneyBoxID))
		return nil, err
	}
	updated, err := s.boxRepo.FindMoneyBoxByID(ctx, box.MoneyBoxID)
	if err != nil {
		return nil, err
	}
	result.MoneyBox = *updated

	s.LogInfo(ctx, "Money box reconciled",
		slog.String("money_box_id", box.MoneyBoxID),
		slog.String("difference", result.Difference.String()))
	return result, nil
}

func (s *moneyBoxService) ListTransactions(ctx context.Context, pharmacyID string, filter domain.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, nil, fmt.Errorf("%w: unknown transaction type %q", apperrors.ErrValidation, filter.Type)
	}
	if filter.Status != "" && filter.Status != domain.OperationSuccess && filter.Status != domain.OperationFailed {
		return nil, nil, fmt.Errorf("%w: unknown operation status %q", apperrors.ErrValidation, filter.Status)
	}
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, nil, fmt.Errorf("%w: 'from' must be before 'to'", apperrors.ErrValidation)
	}
	if limit <= 0 {
		limit = defaultTransactionPageSize
	}
	if limit > maxTransactionPageSize {
		limit = maxTransactionPageSize
	}

	box, err := s.findBox(ctx, pharmacyID)
	if err != nil {
		return nil, nil, err
	}
	filter.MoneyBoxID = box.MoneyBoxID
	return s.txnRepo.ListTransactions(ctx, filter, limit, nextToken)
}

// PeriodSummary aggregates the box's activity created in [from, to).
func (s *moneyBoxService) PeriodSummary(ctx context.Context, pharmacyID string, from, to time.Time) (*domain.PeriodSummary, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: 'from' must be before 'to'", apperrors.ErrValidation)
	}
	box, err := s.findBox(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	totals, err := s.txnRepo.SummarizeTransactions(ctx, box.MoneyBoxID, from, to)
	if err != nil {
		s.LogError(ctx, err, "Failed to summarize transactions", slog.String("money_box_id", box.MoneyBoxID))
		return nil, err
	}
	return buildPeriodSummary(box.MoneyBoxID, from, to, totals), nil
}

func buildPeriodSummary(moneyBoxID string, from, to time.Time, totals []domain.TransactionTotal) *domain.PeriodSummary {
	summary := &domain.PeriodSummary{
		MoneyBoxID:   moneyBoxID,
		From:         from,
		To:           to,
		TotalRevenue: decimal.Zero,
		TotalExpense: decimal.Zero,
		NetAmount:    decimal.Zero,
		SuccessRate:  decimal.Zero,
		ByType:       make(map[domain.TransactionType]decimal.Decimal),
	}
	byCurrency := make(map[string]*domain.CurrencyBreakdown)

	for _, t := range totals {
		summary.TransactionCount += t.Count
		if t.OperationStatus == domain.OperationFailed {
			summary.FailedCount += t.Count
			continue
		}
		// The opening balance is a starting point, not revenue.
		if t.TransactionType != domain.OpeningBalance {
			summary.TotalRevenue = summary.TotalRevenue.Add(t.Inflow)
			summary.TotalExpense = summary.TotalExpense.Add(t.Outflow.Abs())
		}
		summary.ByType[t.TransactionType] = summary.ByType[t.TransactionType].Add(t.Net())

		cb, ok := byCurrency[t.OriginalCurrency]
		if !ok {
			cb = &domain.CurrencyBreakdown{Currency: t.OriginalCurrency, OriginalAmount: decimal.Zero, BaseAmount: decimal.Zero}
			byCurrency[t.OriginalCurrency] = cb
		}
		cb.Count += t.Count
		cb.OriginalAmount = cb.OriginalAmount.Add(t.OriginalAmount)
		cb.BaseAmount = cb.BaseAmount.Add(t.Net())
	}

	summary.NetAmount = summary.TotalRevenue.Sub(summary.TotalExpense)
	if summary.TransactionCount > 0 {
		succeeded := decimal.NewFromInt(summary.TransactionCount - summary.FailedCount)
		summary.SuccessRate = succeeded.Mul(decimal.NewFromInt(100)).DivRound(decimal.NewFromInt(summary.TransactionCount), amountScale)
	}

	for _, cb := range byCurrency {
		summary.ByCurrency = append(summary.ByCurrency, *cb)
	}
	sort.Slice(summary.ByCurrency, func(i, j int) bool {
		return summary.ByCurrency[i].Currency < summary.ByCurrency[j].Currency
	})
	return summary
}

func (s *moneyBoxService) AuditTrail(ctx context.Context, pharmacyID, referenceType, referenceID string) ([]domain.Transaction, error) {
	if strings.TrimSpace(referenceType) == "" || strings.TrimSpace(referenceID) == "" {
		return nil, fmt.Errorf("%w: reference type and id are required", apperrors.ErrValidation)
	}
	box, err := s.findBox(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	return s.txnRepo.ListTransactionsByReference(ctx, box.MoneyBoxID, referenceType, referenceID)
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/apperrors"
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portsrepo "github.com/uqar-pharmacy/moneybox/internal/core/ports/repositories"
	portssvc "github.com/uqar-pharmacy/moneybox/internal/core/ports/services"
	"github.com/uqar-pharmacy/moneybox/internal/platform/metrics"
)

// Reference types written by debt settlement.
const (
	ReferenceCustomerDebt  = "CUSTOMER_DEBT"
	ReferenceCustomerDebts = "CUSTOMER_DEBTS"
)

type debtService struct {
	BaseService
	debtRepo     portsrepo.CustomerDebtRepositoryFacade
	ledger       portssvc.LedgerSvc
	notifier     portssvc.DebtPaymentNotifier
	baseCurrency string
}

// NewDebtService creates the customer debt service. notifier may be nil.
func NewDebtService(
	debtRepo portsrepo.CustomerDebtRepositoryFacade,
	ledger portssvc.LedgerSvc,
	notifier portssvc.DebtPaymentNotifier,
	baseCurrency string,
	opts ...ServiceOption,
) portssvc.DebtSvcFacade {
	return &debtService{
		BaseService:  newBaseService(opts),
		debtRepo:     debtRepo,
		ledger:       ledger,
		notifier:     notifier,
		baseCurrency: baseCurrency,
	}
}

var _ portssvc.DebtSvcFacade = (*debtService)(nil)

func (s *debtService) CreateDebt(ctx context.Context, pharmacyID string, req domain.CreateDebtRequest, actor domain.Actor) (*domain.CustomerDebt, error) {
	if strings.TrimSpace(pharmacyID) == "" {
		return nil, fmt.Errorf("%w: pharmacy id is required", apperrors.ErrValidation)
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, fmt.Errorf("%w: customer id is required", apperrors.ErrValidation)
	}
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: debt amount must be positive", apperrors.ErrValidation)
	}
	if req.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due date is required", apperrors.ErrValidation)
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentCash
	}
	if !req.PaymentMethod.IsValid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", apperrors.ErrValidation, req.PaymentMethod)
	}

	now := s.Now()
	debt := domain.CustomerDebt{
		DebtID:          uuid.NewString(),
		PharmacyID:      pharmacyID,
		CustomerID:      req.CustomerID,
		Amount:          req.Amount,
		PaidAmount:      decimal.Zero,
		RemainingAmount: req.Amount,
		Status:          domain.DebtActive,
		DueDate:         req.DueDate.UTC(),
		PaymentMethod:   req.PaymentMethod,
		Notes:           strings.TrimSpace(req.Notes),
		AuditFields:     domain.NewAuditFields(actor.ID(), now),
	}
	if err := s.debtRepo.SaveDebt(ctx, debt); err != nil {
		s.LogError(ctx, err, "Failed to save customer debt", slog.String("customer_id", req.CustomerID))
		return nil, err
	}
	s.LogInfo(ctx, "Customer debt created",
		slog.String("debt_id", debt.DebtID),
		slog.String("customer_id", debt.CustomerID),
		slog.String("amount", debt.Amount.String()))
	return &debt, nil
}

func (s *debtService) GetDebt(ctx context.Context, pharmacyID, debtID string) (*domain.CustomerDebt, error) {
	debt, err := s.debtRepo.FindDebtByID(ctx, debtID)
	if err != nil {
		return nil, err
	}
	if debt.PharmacyID != pharmacyID {
		return nil, apperrors.NewNotFoundError("customer debt " + debtID)
	}
	return debt, nil
}

func (s *debtService) ListCustomerDebts(ctx context.Context, pharmacyID, customerID string) ([]domain.CustomerDebt, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: customer id is required", apperrors.ErrValidation)
	}
	return s.debtRepo.ListDebtsByCustomer(ctx, pharmacyID, customerID)
}

func (s *debtService) ListOverdueDebts(ctx context.Context, pharmacyID string) ([]domain.CustomerDebt, error) {
	return s.debtRepo.ListOverdueDebts(ctx, pharmacyID, s.Now())
}

func (s *debtService) DebtStatistics(ctx context.Context, pharmacyID string) (*domain.DebtStatistics, error) {
	totals, err := s.debtRepo.SummarizeDebts(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	stats := &domain.DebtStatistics{
		PharmacyID:       pharmacyID,
		TotalAmount:      decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalRemaining:   decimal.Zero,
		OverdueRemaining: decimal.Zero,
	}
	for _, t := range totals {
		stats.TotalDebts += t.Count
		stats.TotalAmount = stats.TotalAmount.Add(t.Amount)
		stats.TotalPaid = stats.TotalPaid.Add(t.PaidAmount)
		stats.TotalRemaining = stats.TotalRemaining.Add(t.RemainingAmount)
		switch t.Status {
		case domain.DebtActive:
			stats.ActiveDebts += t.Count
		case domain.DebtPaid:
			stats.PaidDebts += t.Count
		}
	}

	// A debt past its due date may still be stored as ACTIVE.
	overdue, err := s.debtRepo.ListOverdueDebts(ctx, pharmacyID, s.Now())
	if err != nil {
		return nil, err
	}
	stats.OverdueDebts = int64(len(overdue))
	for _, d := range overdue {
		stats.OverdueRemaining = stats.OverdueRemaining.Add(d.RemainingAmount)
	}
	return stats, nil
}

func validatePayment(amount decimal.Decimal, method *domain.PaymentMethod) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: payment amount must be positive", apperrors.ErrValidation)
	}
	if *method == "" {
		*method = domain.PaymentCash
	}
	if !method.IsValid() {
		return fmt.Errorf("%w: unknown payment method %q", apperrors.ErrValidation, *method)
	}
	return nil
}

func appendPaymentNote(existing string, amount decimal.Decimal, notes string) string {
	line := "Payment: " + amount.StringFixed(amountScale)
	if notes = strings.TrimSpace(notes); notes != "" {
		line += " - " + notes
	}
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}

// PayDebt applies a payment to one debt. Cash payments are also booked in the
// pharmacy's money box after the debt update has committed.
func (s *debtService) PayDebt(ctx context.Context, pharmacyID, debtID string, amount decimal.Decimal, method domain.PaymentMethod, notes string, actor domain.Actor) (*domain.CustomerDebt, error) {
	if err := validatePayment(amount, &method); err != nil {
		return nil, err
	}

	now := s.Now()
	var paid domain.CustomerDebt
	err := s.debtRepo.RunInDebtTx(ctx, func(ctx context.Context, tx portsrepo.DebtTx) error {
		debt, err := tx.LockDebt(ctx, debtID)
		if err != nil {
			return err
		}
		if debt.PharmacyID != pharmacyID {
			return apperrors.NewNotFoundError("customer debt " + debtID)
		}
		if debt.Status == domain.DebtPaid {
			return fmt.Errorf("%w: debt %s is already paid", apperrors.ErrConflict, debtID)
		}
		if debt.PaidAmount.Add(amount).GreaterThan(debt.Amount) {
			return fmt.Errorf("%w: payment of %s exceeds remaining debt amount %s and would leave a negative balance",
				apperrors.ErrConflict, amount.StringFixed(amountScale), debt.RemainingAmount.StringFixed(amountScale))
		}

		debt.ApplyPayment(amount, now)
		debt.PaymentMethod = method
		debt.Notes = appendPaymentNote(debt.Notes, amount, notes)
		debt.LastUpdatedBy = actor.ID()
		if err := tx.UpdateDebtPayment(ctx, *debt); err != nil {
			return err
		}
		paid = *debt
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DebtSettlements.WithLabelValues("single", string(method)).Inc()
	metrics.DebtSettledAmount.Add(amount.InexactFloat64())
	s.LogInfo(ctx, "Debt payment applied",
		slog.String("debt_id", paid.DebtID),
		slog.String("amount", amount.String()),
		slog.String("remaining", paid.RemainingAmount.String()),
		slog.String("status", string(paid.Status)))

	if method == domain.PaymentCash {
		s.bookCashPayment(ctx, pharmacyID, amount, ReferenceCustomerDebt, paid.DebtID,
			fmt.Sprintf("Debt payment from customer %s", paid.CustomerID), actor)
	}
	s.notify(ctx, paid, amount, now)
	return &paid, nil
}

// AutoPay spreads a bulk payment over the customer's ACTIVE debts, oldest first.
func (s *debtService) AutoPay(ctx context.Context, pharmacyID, customerID string, amount decimal.Decimal, method domain.PaymentMethod, notes string, actor domain.Actor) (*domain.SettlementReport, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: customer id is required", apperrors.ErrValidation)
	}
	if err := validatePayment(amount, &method); err != nil {
		return nil, err
	}

	all, err := s.debtRepo.ListDebtsByCustomer(ctx, pharmacyID, customerID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, apperrors.NewNotFoundError("debts for customer " + customerID)
	}

	now := s.Now()
	report := &domain.SettlementReport{
		PharmacyID:      pharmacyID,
		CustomerID:      customerID,
		RequestedAmount: amount,
		PaymentMethod:   method,
	}
	var updated []domain.CustomerDebt
	err = s.debtRepo.RunInDebtTx(ctx, func(ctx context.Context, tx portsrepo.DebtTx) error {
		active, err := tx.LockActiveDebtsByCustomer(ctx, pharmacyID, customerID)
		if err != nil {
			return err
		}
		if len(active) == 0 {
			return fmt.Errorf("%w: customer %s has no active debts", apperrors.ErrConflict, customerID)
		}
		outstanding := decimal.Zero
		for _, d := range active {
			outstanding = outstanding.Add(d.RemainingAmount)
		}
		if amount.GreaterThan(outstanding) {
			return fmt.Errorf("%w: payment of %s exceeds total remaining debt %s",
				apperrors.ErrConflict, amount.StringFixed(amountScale), outstanding.StringFixed(amountScale))
		}

		res := AllocateFIFO(active, amount, now)
		for i := range res.Updated {
			d := &res.Updated[i]
			d.PaymentMethod = method
			d.Notes = appendPaymentNote(d.Notes, res.Allocations[i].AmountPaid, notes)
			d.LastUpdatedBy = actor.ID()
			if err := tx.UpdateDebtPayment(ctx, *d); err != nil {
				return err
			}
		}
		report.Allocations = res.Allocations
		report.TotalAllocated = res.Allocated
		report.TotalRemainingDebt = outstanding.Sub(res.Allocated)
		updated = res.Updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DebtSettlements.WithLabelValues("fifo", string(method)).Inc()
	metrics.DebtSettledAmount.Add(report.TotalAllocated.InexactFloat64())
	s.LogInfo(ctx, "Bulk debt payment applied",
		slog.String("customer_id", customerID),
		slog.String("allocated", report.TotalAllocated.String()),
		slog.Int("debts_touched", len(report.Allocations)))

	if method == domain.PaymentCash && report.TotalAllocated.IsPositive() {
		report.LedgerEntry = s.bookCashPayment(ctx, pharmacyID, report.TotalAllocated, ReferenceCustomerDebts, customerID,
			fmt.Sprintf("Bulk debt payment from customer %s (%d debts)", customerID, len(report.Allocations)), actor)
	}
	for i, d := range updated {
		if report.Allocations[i].AmountPaid.IsZero() {
			continue
		}
		s.notify(ctx, d, report.Allocations[i].AmountPaid, now)
	}
	return report, nil
}

func (s *debtService) DeleteDebt(ctx context.Context, pharmacyID, debtID string, actor domain.Actor) error {
	err := s.debtRepo.RunInDebtTx(ctx, func(ctx context.Context, tx portsrepo.DebtTx) error {
		debt, err := tx.LockDebt(ctx, debtID)
		if err != nil {
			return err
		}
		if debt.PharmacyID != pharmacyID {
			return apperrors.NewNotFoundError("customer debt " + debtID)
		}
		if debt.Status == domain.DebtPaid {
			return fmt.Errorf("%w: paid debt %s cannot be deleted", apperrors.ErrConflict, debtID)
		}
		return tx.DeleteDebt(ctx, debtID)
	})
	if err != nil {
		return err
	}
	s.LogInfo(ctx, "Customer debt deleted", slog.String("debt_id", debtID), slog.String("deleted_by", actor.ID()))
	return nil
}

// bookCashPayment records a DEBT_PAYMENT in the money box. The debt side has
// already committed, so failures are logged and not returned.
func (s *debtService) bookCashPayment(ctx context.Context, pharmacyID string, amount decimal.Decimal, refType, refID, description string, actor domain.Actor) *domain.Transaction {
	txn, err := s.ledger.RecordForPharmacy(ctx, pharmacyID, domain.RecordRequest{
		TransactionType:  domain.DebtPayment,
		OriginalAmount:   amount,
		OriginalCurrency: s.baseCurrency,
		Description:      description,
		ReferenceID:      refID,
		ReferenceType:    refType,
		Actor:            actor,
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to book debt payment in money box",
			slog.String("pharmacy_id", pharmacyID),
			slog.String("reference_type", refType),
			slog.String("reference_id", refID))
	}
	return txn
}

func (s *debtService) notify(ctx context.Context, debt domain.CustomerDebt, amount decimal.Decimal, paidAt time.Time) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.NotifyDebtPayment(ctx, domain.DebtPaymentNotification{
		PharmacyID:      debt.PharmacyID,
		CustomerID:      debt.CustomerID,
		DebtID:          debt.DebtID,
		AmountPaid:      amount,
		RemainingAmount: debt.RemainingAmount,
		Status:          debt.Status,
		PaymentMethod:   debt.PaymentMethod,
		PaidAt:          paidAt,
	})
	if err != nil {
		s.LogWarn(ctx, "Failed to publish debt payment notification",
			slog.String("debt_id", debt.DebtID),
			slog.String("error", err.Error()))
	}
}

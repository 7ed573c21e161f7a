package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/apperrors"
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portsrepo "github.com/uqar-pharmacy/moneybox/internal/core/ports/repositories"
	portssvc "github.com/uqar-pharmacy/moneybox/internal/core/ports/services"
	"github.com/uqar-pharmacy/moneybox/internal/platform/metrics"
)

// ledgerService appends money box transactions and keeps the running balance.
type ledgerService struct {
	BaseService
	boxRepo   portsrepo.MoneyBoxRepositoryFacade
	txnRepo   portsrepo.TransactionWriter
	converter portssvc.CurrencyConverterSvc
}

// NewLedgerService creates the balance ledger.
func NewLedgerService(boxRepo portsrepo.MoneyBoxRepositoryFacade, txnRepo portsrepo.TransactionWriter, converter portssvc.CurrencyConverterSvc, opts ...ServiceOption) portssvc.LedgerSvc {
	return &ledgerService{
		BaseService: newBaseService(opts),
		boxRepo:     boxRepo,
		txnRepo:     txnRepo,
		converter:   converter,
	}
}

var _ portssvc.LedgerSvc = (*ledgerService)(nil)

func (s *ledgerService) validate(req *domain.RecordRequest) error {
	if strings.TrimSpace(req.MoneyBoxID) == "" {
		return fmt.Errorf("%w: money box id is required", apperrors.ErrValidation)
	}
	if !req.TransactionType.IsValid() {
		return fmt.Errorf("%w: unknown transaction type %q", apperrors.ErrValidation, req.TransactionType)
	}
	if req.OriginalAmount.IsZero() && req.TransactionType != domain.OpeningBalance {
		return fmt.Errorf("%w: amount must not be zero", apperrors.ErrValidation)
	}
	req.OriginalCurrency = normalizeCurrency(req.OriginalCurrency)
	if req.OriginalCurrency == "" {
		req.OriginalCurrency = s.converter.BaseCurrency()
	}
	if err := validateCurrencyCode(req.OriginalCurrency); err != nil {
		return err
	}
	if !s.converter.IsSupported(req.OriginalCurrency) {
		return fmt.Errorf("%w: currency %s is not supported", apperrors.ErrValidation, req.OriginalCurrency)
	}
	return nil
}

// toBase converts the request amount into the base currency.
func (s *ledgerService) toBase(ctx context.Context, req domain.RecordRequest) domain.Conversion {
	base := s.converter.BaseCurrency()
	if req.OriginalCurrency == base {
		return domain.Conversion{
			OriginalAmount: req.OriginalAmount,
			Amount:         req.OriginalAmount,
			From:           base,
			To:             base,
			Rate:           decimal.NewFromInt(1),
			Provenance:     domain.ProvenanceIdentity,
			ConvertedAt:    s.Now(),
		}
	}
	return s.converter.Convert(ctx, req.OriginalAmount, req.OriginalCurrency, base)
}

// newTransaction converts the request amount and prepares the row addressed to
// moneyBoxID. Balances are filled in once the box is locked.
func (s *ledgerService) newTransaction(ctx context.Context, req domain.RecordRequest, moneyBoxID string) domain.Transaction {
	conv := s.toBase(ctx, req)

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if conv.Error != "" {
		metadata["conversion_error"] = conv.Error
	}

	txn := domain.Transaction{
		TransactionID:       uuid.NewString(),
		MoneyBoxID:          moneyBoxID,
		TransactionType:     req.TransactionType,
		Description:         req.Description,
		ReferenceID:         req.ReferenceID,
		ReferenceType:       req.ReferenceType,
		OriginalAmount:      req.OriginalAmount,
		OriginalCurrency:    req.OriginalCurrency,
		ConvertedAmount:     conv.Amount,
		ConvertedCurrency:   conv.To,
		ExchangeRate:        conv.Rate,
		ConversionTimestamp: conv.ConvertedAt,
		ConversionSource:    conv.Source(),
		OperationStatus:     domain.OperationSuccess,
		Actor:               req.Actor,
		Metadata:            metadata,
		CreatedAt:           s.Now(),
		CreatedBy:           req.Actor.ID(),
	}
	if len(txn.Metadata) == 0 {
		txn.Metadata = nil
	}
	return txn
}

// apply locks the box, applies the type's sign policy and persists the new
// balance and the row through tx.
func apply(ctx context.Context, tx portsrepo.LedgerTx, txn *domain.Transaction) error {
	locked, err := tx.LockMoneyBox(ctx, txn.MoneyBoxID)
	if err != nil {
		return err
	}
	txn.BalanceBefore = locked.CurrentBalance
	txn.Amount, txn.BalanceAfter = txn.TransactionType.ApplyToBalance(locked.CurrentBalance, txn.ConvertedAmount)
	if err := tx.UpdateMoneyBoxBalance(ctx, locked.MoneyBoxID, txn.BalanceAfter, txn.CreatedBy, txn.CreatedAt); err != nil {
		return err
	}
	return tx.SaveTransaction(ctx, *txn)
}

func (s *ledgerService) recorded(ctx context.Context, txn domain.Transaction) {
	metrics.TransactionsRecorded.WithLabelValues(string(txn.TransactionType), string(txn.OperationStatus)).Inc()
	s.LogInfo(ctx, "Money box transaction recorded",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("money_box_id", txn.MoneyBoxID),
		slog.String("type", string(txn.TransactionType)),
		slog.String("amount", txn.Amount.String()),
		slog.String("balance_after", txn.BalanceAfter.String()),
		slog.String("conversion_source", string(txn.ConversionSource)))
}

// Record converts the amount, applies the type's sign policy to the locked balance
// and persists the balance and the row together.
func (s *ledgerService) Record(ctx context.Context, req domain.RecordRequest) (*domain.Transaction, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	box, err := s.boxRepo.FindMoneyBoxByID(ctx, req.MoneyBoxID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: failed to load money box %s: %w", apperrors.ErrInternal, req.MoneyBoxID, err)
	}

	txn := s.newTransaction(ctx, req, box.MoneyBoxID)
	err = s.boxRepo.RunInLedgerTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		return apply(ctx, tx, &txn)
	})
	if err != nil {
		return s.compensate(ctx, txn, box.CurrentBalance, err)
	}

	s.recorded(ctx, txn)
	return &txn, nil
}

// OpenMoneyBox inserts box and books its first entry in one unit. Nothing is
// left behind when the unit fails, so no compensating row is written.
func (s *ledgerService) OpenMoneyBox(ctx context.Context, box domain.MoneyBox, req domain.RecordRequest) (*domain.Transaction, error) {
	req.MoneyBoxID = box.MoneyBoxID
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	txn := s.newTransaction(ctx, req, box.MoneyBoxID)
	err := s.boxRepo.RunInLedgerTx(ctx, func(ctx context.Context, tx portsrepo.LedgerTx) error {
		if err := tx.InsertMoneyBox(ctx, box); err != nil {
			return err
		}
		return apply(ctx, tx, &txn)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, err
		}
		s.LogError(ctx, err, "Failed to open money box", slog.String("pharmacy_id", box.PharmacyID))
		return nil, fmt.Errorf("%w: failed to open money box for pharmacy %s: %w", apperrors.ErrInternal, box.PharmacyID, err)
	}

	s.recorded(ctx, txn)
	return &txn, nil
}

// compensate writes a zero-amount FAILED row for an attempt whose unit of work
// failed. The row is returned with the error so callers can reference it.
func (s *ledgerService) compensate(ctx context.Context, attempted domain.Transaction, lastKnownBalance decimal.Decimal, cause error) (*domain.Transaction, error) {
	s.LogError(ctx, cause, "Failed to record money box transaction, writing compensating entry",
		slog.String("money_box_id", attempted.MoneyBoxID),
		slog.String("type", string(attempted.TransactionType)))

	failed := attempted
	failed.TransactionID = uuid.NewString()
	failed.Amount = decimal.Zero
	failed.ConvertedAmount = decimal.Zero
	failed.ConvertedCurrency = attempted.OriginalCurrency
	failed.BalanceBefore = lastKnownBalance
	failed.BalanceAfter = lastKnownBalance
	failed.OperationStatus = domain.OperationFailed
	failed.ErrorMessage = cause.Error()

	// The caller's context may be the reason the unit failed.
	if err := s.txnRepo.SaveTransaction(context.WithoutCancel(ctx), failed); err != nil {
		metrics.CompensationFailures.Inc()
		s.LogError(ctx, err, "Failed to write compensating entry",
			slog.String("money_box_id", attempted.MoneyBoxID),
			slog.String("cause", cause.Error()))
		return nil, fmt.Errorf("%w: failed to record %s transaction (%w) and to write its compensating entry: %w",
			apperrors.ErrInternal, attempted.TransactionType, cause, err)
	}

	metrics.TransactionsRecorded.WithLabelValues(string(failed.TransactionType), string(failed.OperationStatus)).Inc()
	return &failed, fmt.Errorf("%w: failed to record %s transaction: %w", apperrors.ErrInternal, attempted.TransactionType, cause)
}

func (s *ledgerService) RecordForPharmacy(ctx context.Context, pharmacyID string, req domain.RecordRequest) (*domain.Transaction, error) {
	if strings.TrimSpace(pharmacyID) == "" {
		return nil, fmt.Errorf("%w: pharmacy id is required", apperrors.ErrValidation)
	}
	box, err := s.boxRepo.FindMoneyBoxByPharmacyID(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	req.MoneyBoxID = box.MoneyBoxID
	return s.Record(ctx, req)
}

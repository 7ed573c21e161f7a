package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/apperrors"
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// periodRows resolves the pharmacy's box and loads its rows created in [from, to).
func (s *moneyBoxService) periodRows(ctx context.Context, pharmacyID string, status domain.OperationStatus, from, to time.Time) (*domain.MoneyBox, []domain.Transaction, error) {
	if !from.Before(to) {
		return nil, nil, fmt.Errorf("%w: 'from' must be before 'to'", apperrors.ErrValidation)
	}
	box, err := s.findBox(ctx, pharmacyID)
	if err != nil {
		return nil, nil, err
	}
	txns, err := s.txnRepo.ListTransactionsInPeriod(ctx, box.MoneyBoxID, status, from, to)
	if err != nil {
		s.LogError(ctx, err, "Failed to load transactions for period", slog.String("money_box_id", box.MoneyBoxID))
		return nil, nil, err
	}
	return box, txns, nil
}

// FailedOperations groups the FAILED rows of [from, to) by type and reference type.
func (s *moneyBoxService) FailedOperations(ctx context.Context, pharmacyID string, from, to time.Time) (*domain.FailedOperationsAnalysis, error) {
	box, failed, err := s.periodRows(ctx, pharmacyID, domain.OperationFailed, from, to)
	if err != nil {
		return nil, err
	}

	analysis := &domain.FailedOperationsAnalysis{
		MoneyBoxID:      box.MoneyBoxID,
		From:            from,
		To:              to,
		TotalFailed:     int64(len(failed)),
		ByType:          make(map[domain.TransactionType]int64),
		ByReferenceType: make(map[string]int64),
		Failures:        make([]domain.FailureDetail, 0, len(failed)),
	}
	for _, t := range failed {
		analysis.ByType[t.TransactionType]++
		if t.ReferenceType != "" {
			analysis.ByReferenceType[t.ReferenceType]++
		}
		analysis.Failures = append(analysis.Failures, domain.FailureDetail{
			TransactionID:    t.TransactionID,
			TransactionType:  t.TransactionType,
			ReferenceType:    t.ReferenceType,
			ReferenceID:      t.ReferenceID,
			OriginalAmount:   t.OriginalAmount,
			OriginalCurrency: t.OriginalCurrency,
			ErrorMessage:     t.ErrorMessage,
			CreatedAt:        t.CreatedAt,
		})
	}
	return analysis, nil
}

// ConversionAnalytics aggregates the successful foreign-currency rows of [from, to)
// per ordered pair.
func (s *moneyBoxService) ConversionAnalytics(ctx context.Context, pharmacyID string, from, to time.Time) (*domain.ConversionAnalytics, error) {
	box, txns, err := s.periodRows(ctx, pharmacyID, domain.OperationSuccess, from, to)
	if err != nil {
		return nil, err
	}

	type pairKey struct{ from, to string }
	pairs := make(map[pairKey]*domain.CurrencyPairStats)
	rateSums := make(map[pairKey]decimal.Decimal)
	analytics := &domain.ConversionAnalytics{MoneyBoxID: box.MoneyBoxID, From: from, To: to}

	for _, t := range txns {
		if !t.IsMultiCurrency() {
			continue
		}
		analytics.TotalConversions++
		k := pairKey{t.OriginalCurrency, t.ConvertedCurrency}
		p, ok := pairs[k]
		if !ok {
			p = &domain.CurrencyPairStats{
				From:            k.from,
				To:              k.to,
				TotalOriginal:   decimal.Zero,
				TotalConverted:  decimal.Zero,
				MinRate:         t.ExchangeRate,
				MaxRate:         t.ExchangeRate,
				FirstConversion: t.ConversionTimestamp,
				LastConversion:  t.ConversionTimestamp,
			}
			pairs[k] = p
		}
		p.Count++
		p.TotalOriginal = p.TotalOriginal.Add(t.OriginalAmount)
		p.TotalConverted = p.TotalConverted.Add(t.ConvertedAmount)
		rateSums[k] = rateSums[k].Add(t.ExchangeRate)
		if t.ExchangeRate.LessThan(p.MinRate) {
			p.MinRate = t.ExchangeRate
		}
		if t.ExchangeRate.GreaterThan(p.MaxRate) {
			p.MaxRate = t.ExchangeRate
		}
		if t.ConversionTimestamp.Before(p.FirstConversion) {
			p.FirstConversion = t.ConversionTimestamp
		}
		if t.ConversionTimestamp.After(p.LastConversion) {
			p.LastConversion = t.ConversionTimestamp
		}
	}

	for k, p := range pairs {
		p.AverageRate = rateSums[k].DivRound(decimal.NewFromInt(p.Count), rateScale)
		analytics.Pairs = append(analytics.Pairs, *p)
	}
	sort.Slice(analytics.Pairs, func(i, j int) bool {
		if analytics.Pairs[i].From != analytics.Pairs[j].From {
			return analytics.Pairs[i].From < analytics.Pairs[j].From
		}
		return analytics.Pairs[i].To < analytics.Pairs[j].To
	})
	return analytics, nil
}

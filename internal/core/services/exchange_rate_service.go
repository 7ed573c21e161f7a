package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/uqar-pharmacy/moneybox/internal/apperrors"
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portsrepo "github.com/uqar-pharmacy/moneybox/internal/core/ports/repositories"
	portssvc "github.com/uqar-pharmacy/moneybox/internal/core/ports/services"
	"github.com/uqar-pharmacy/moneybox/internal/platform/metrics"
)

const (
	rateScale   int32 = 6
	amountScale int32 = 2
)

// exchangeRateService owns the rate directory and converts amounts with it.
type exchangeRateService struct {
	BaseService
	rateRepo portsrepo.ExchangeRateRepositoryFacade
	cfg      domain.ConversionConfig
}

// NewExchangeRateService creates the exchange rate directory and conversion service.
func NewExchangeRateService(rateRepo portsrepo.ExchangeRateRepositoryFacade, cfg domain.ConversionConfig, opts ...ServiceOption) portssvc.ExchangeRateSvcFacade {
	cfg.BaseCurrency = normalizeCurrency(cfg.BaseCurrency)
	return &exchangeRateService{
		BaseService: newBaseService(opts),
		rateRepo:    rateRepo,
		cfg:         cfg,
	}
}

var _ portssvc.ExchangeRateSvcFacade = (*exchangeRateService)(nil)

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// validateCurrencyCode checks that code is a well-formed ISO 4217 code.
func validateCurrencyCode(code string) error {
	if code == "" {
		return fmt.Errorf("%w: currency code is required", apperrors.ErrValidation)
	}
	if len(code) != 3 {
		return fmt.Errorf("%w: currency code %q must be 3 letters", apperrors.ErrValidation, code)
	}
	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Errorf("%w: %q is not an ISO 4217 currency code", apperrors.ErrValidation, code)
	}
	return nil
}

func (s *exchangeRateService) BaseCurrency() string {
	return s.cfg.BaseCurrency
}

func (s *exchangeRateService) IsSupported(code string) bool {
	return s.cfg.IsSupported(normalizeCurrency(code))
}

// Rate returns the rate for the ordered pair: identity, then the active stored
// row, then the inverse of the active row for the opposite pair, then the static
// fallback anchors.
func (s *exchangeRateService) Rate(ctx context.Context, fromCode, toCode string) (domain.RateQuote, error) {
	from, to := normalizeCurrency(fromCode), normalizeCurrency(toCode)
	if from == to {
		return domain.RateQuote{From: from, To: to, Rate: decimal.NewFromInt(1), Provenance: domain.ProvenanceIdentity}, nil
	}

	if stored, ok := s.activeRate(ctx, from, to); ok {
		return domain.RateQuote{From: from, To: to, Rate: stored.Rate, Provenance: domain.ProvenanceDirect, RateID: stored.ExchangeRateID}, nil
	}
	if opposite, ok := s.activeRate(ctx, to, from); ok {
		inverse := decimal.NewFromInt(1).DivRound(opposite.Rate, rateScale)
		return domain.RateQuote{From: from, To: to, Rate: inverse, Provenance: domain.ProvenanceInverse, RateID: opposite.ExchangeRateID}, nil
	}

	if rate, ok := s.fallbackRate(from, to); ok {
		return domain.RateQuote{From: from, To: to, Rate: rate, Provenance: domain.ProvenanceFallback}, nil
	}
	return domain.RateQuote{}, fmt.Errorf("%w: unsupported currency pair %s to %s", apperrors.ErrValidation, from, to)
}

// activeRate returns the pair's stored active row when it is usable.
func (s *exchangeRateService) activeRate(ctx context.Context, from, to string) (*domain.ExchangeRate, bool) {
	stored, err := s.rateRepo.FindActiveRate(ctx, from, to)
	switch {
	case err == nil && stored.Rate.IsPositive():
		return stored, true
	case err == nil:
		s.LogWarn(ctx, "Ignoring non-positive stored exchange rate", slog.String("rate_id", stored.ExchangeRateID))
	case !errors.Is(err, apperrors.ErrNotFound):
		s.LogError(ctx, err, "Exchange rate lookup failed", slog.String("from", from), slog.String("to", to))
	}
	return nil, false
}

// fallbackRate derives a rate from the static anchors, crossing through the
// base currency when neither side is the base.
func (s *exchangeRateService) fallbackRate(from, to string) (decimal.Decimal, bool) {
	anchor := func(code string) (decimal.Decimal, bool) {
		if code == s.cfg.BaseCurrency {
			return decimal.NewFromInt(1), true
		}
		a, ok := s.cfg.FallbackAnchors[code]
		return a, ok && a.IsPositive()
	}
	fromAnchor, ok := anchor(from)
	if !ok {
		return decimal.Zero, false
	}
	toAnchor, ok := anchor(to)
	if !ok {
		return decimal.Zero, false
	}
	if to == s.cfg.BaseCurrency {
		return fromAnchor, true
	}
	return fromAnchor.DivRound(toAnchor, rateScale), true
}

// Convert multiplies amount by the pair's rate and rounds to 2 decimal places, half-up.
func (s *exchangeRateService) Convert(ctx context.Context, amount decimal.Decimal, fromCode, toCode string) domain.Conversion {
	from, to := normalizeCurrency(fromCode), normalizeCurrency(toCode)
	now := s.Now()

	quote, err := s.Rate(ctx, from, to)
	if err != nil {
		s.LogWarn(ctx, "Currency conversion failed, keeping original amount",
			slog.String("from", from), slog.String("to", to), slog.String("error", err.Error()))
		metrics.Conversions.WithLabelValues(string(domain.ProvenanceFailed)).Inc()
		return domain.Conversion{
			OriginalAmount: amount,
			Amount:         amount,
			From:           from,
			To:             from,
			Rate:           decimal.NewFromInt(1),
			Provenance:     domain.ProvenanceFailed,
			ConvertedAt:    now,
			Error:          err.Error(),
		}
	}

	metrics.Conversions.WithLabelValues(string(quote.Provenance)).Inc()
	converted := amount
	if quote.Provenance != domain.ProvenanceIdentity {
		converted = amount.Mul(quote.Rate).Round(amountScale)
	}
	return domain.Conversion{
		OriginalAmount: amount,
		Amount:         converted,
		From:           from,
		To:             to,
		Rate:           quote.Rate,
		Provenance:     quote.Provenance,
		RateID:         quote.RateID,
		ConvertedAt:    now,
	}
}

// SetRate replaces the active rate of the pair and derives the reverse pair.
func (s *exchangeRateService) SetRate(ctx context.Context, req domain.SetRateRequest, userID string) (*domain.ExchangeRate, error) {
	from, to := normalizeCurrency(req.FromCurrencyCode), normalizeCurrency(req.ToCurrencyCode)
	if err := validateCurrencyCode(from); err != nil {
		return nil, err
	}
	if err := validateCurrencyCode(to); err != nil {
		return nil, err
	}
	if !req.Rate.IsPositive() {
		return nil, fmt.Errorf("%w: exchange rate must be positive", apperrors.ErrValidation)
	}
	if from == to {
		return nil, fmt.Errorf("%w: from and to currency codes cannot be the same", apperrors.ErrValidation)
	}

	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = domain.RateSourceManual
	}

	now := s.Now()
	primary := domain.ExchangeRate{
		ExchangeRateID:   uuid.NewString(),
		FromCurrencyCode: from,
		ToCurrencyCode:   to,
		Rate:             req.Rate,
		EffectiveFrom:    now,
		IsActive:         true,
		Source:           source,
		Notes:            req.Notes,
		AuditFields:      domain.NewAuditFields(userID, now),
	}

	if err := s.replaceActiveRate(ctx, primary, userID); err != nil {
		s.LogError(ctx, err, "Failed to set exchange rate", slog.String("from", from), slog.String("to", to))
		return nil, err
	}
	s.LogInfo(ctx, "Exchange rate set",
		slog.String("rate_id", primary.ExchangeRateID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("rate", primary.Rate.String()))

	s.createReverseRate(ctx, primary, userID)
	return &primary, nil
}

// replaceActiveRate deactivates the current row of the pair and inserts rate in one unit of work.
func (s *exchangeRateService) replaceActiveRate(ctx context.Context, rate domain.ExchangeRate, userID string) error {
	err := s.rateRepo.RunInRateTx(ctx, func(ctx context.Context, tx portsrepo.ExchangeRateTx) error {
		if _, err := tx.DeactivateActiveRate(ctx, rate.FromCurrencyCode, rate.ToCurrencyCode, userID, rate.EffectiveFrom); err != nil {
			return err
		}
		return tx.SaveExchangeRate(ctx, rate)
	})
	if errors.Is(err, apperrors.ErrDuplicate) {
		return fmt.Errorf("%w: another rate for %s to %s was activated concurrently", apperrors.ErrConflict, rate.FromCurrencyCode, rate.ToCurrencyCode)
	}
	return err
}

// createReverseRate activates 1/rate for the reverse pair. Failures are logged only.
func (s *exchangeRateService) createReverseRate(ctx context.Context, primary domain.ExchangeRate, userID string) {
	reverse := decimal.NewFromInt(1).DivRound(primary.Rate, rateScale)
	if !reverse.IsPositive() {
		s.LogWarn(ctx, "Reverse exchange rate rounds to zero, skipping",
			slog.String("rate_id", primary.ExchangeRateID), slog.String("rate", primary.Rate.String()))
		return
	}

	source := domain.RateSourceAutoReverse
	if primary.Source != "" {
		source = primary.Source + "_" + domain.RateSourceAutoReverse
	}
	notes := fmt.Sprintf("Auto-generated reverse rate from %s to %s.", primary.ToCurrencyCode, primary.FromCurrencyCode)
	if primary.Notes != "" {
		notes += " Original notes: " + primary.Notes
	}

	rate := primary
	rate.ExchangeRateID = uuid.NewString()
	rate.FromCurrencyCode = primary.ToCurrencyCode
	rate.ToCurrencyCode = primary.FromCurrencyCode
	rate.Rate = reverse
	rate.Source = source
	rate.Notes = notes

	if err := s.replaceActiveRate(ctx, rate, userID); err != nil {
		s.LogError(ctx, err, "Failed to create reverse exchange rate",
			slog.String("primary_rate_id", primary.ExchangeRateID),
			slog.String("from", rate.FromCurrencyCode),
			slog.String("to", rate.ToCurrencyCode))
	}
}

// DeactivateRate closes an active rate and the active rate of its reverse pair.
func (s *exchangeRateService) DeactivateRate(ctx context.Context, rateID string, userID string) error {
	rate, err := s.rateRepo.FindRateByID(ctx, rateID)
	if err != nil {
		return err
	}
	if !rate.IsActive {
		return fmt.Errorf("%w: exchange rate %s is already inactive", apperrors.ErrConflict, rateID)
	}

	now := s.Now()
	err = s.rateRepo.RunInRateTx(ctx, func(ctx context.Context, tx portsrepo.ExchangeRateTx) error {
		if _, err := tx.DeactivateActiveRate(ctx, rate.FromCurrencyCode, rate.ToCurrencyCode, userID, now); err != nil {
			return err
		}
		_, err := tx.DeactivateActiveRate(ctx, rate.ToCurrencyCode, rate.FromCurrencyCode, userID, now)
		return err
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to deactivate exchange rate", slog.String("rate_id", rateID))
		return err
	}
	s.LogInfo(ctx, "Exchange rate deactivated", slog.String("rate_id", rateID))
	return nil
}

func (s *exchangeRateService) GetRate(ctx context.Context, rateID string) (*domain.ExchangeRate, error) {
	if strings.TrimSpace(rateID) == "" {
		return nil, fmt.Errorf("%w: rate id is required", apperrors.ErrValidation)
	}
	return s.rateRepo.FindRateByID(ctx, rateID)
}

func (s *exchangeRateService) ListActiveRates(ctx context.Context) ([]domain.ExchangeRate, error) {
	return s.rateRepo.ListActiveRates(ctx)
}

func (s *exchangeRateService) RateHistory(ctx context.Context, fromCode, toCode string) ([]domain.ExchangeRate, error) {
	from, to := normalizeCurrency(fromCode), normalizeCurrency(toCode)
	if err := validateCurrencyCode(from); err != nil {
		return nil, err
	}
	if err := validateCurrencyCode(to); err != nil {
		return nil, err
	}
	return s.rateRepo.ListRateHistory(ctx, from, to)
}

// RatePair returns the active rows of both directions of a pair, a to b first.
// A direction without an active row is left out.
func (s *exchangeRateService) RatePair(ctx context.Context, codeA, codeB string) ([]domain.ExchangeRate, error) {
	a, b := normalizeCurrency(codeA), normalizeCurrency(codeB)
	if err := validateCurrencyCode(a); err != nil {
		return nil, err
	}
	if err := validateCurrencyCode(b); err != nil {
		return nil, err
	}
	if a == b {
		return nil, fmt.Errorf("%w: a pair needs two different currencies", apperrors.ErrValidation)
	}

	rates := make([]domain.ExchangeRate, 0, 2)
	for _, dir := range [][2]string{{a, b}, {b, a}} {
		rate, err := s.rateRepo.FindActiveRate(ctx, dir[0], dir[1])
		if errors.Is(err, apperrors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rates = append(rates, *rate)
	}
	return rates, nil
}

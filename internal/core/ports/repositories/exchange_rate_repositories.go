package repositories

import (
	"context"
	"time"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// ExchangeRateReader defines read operations for exchange rate data.
type ExchangeRateReader interface {
	// FindActiveRate returns the active row for the ordered pair or apperrors.ErrNotFound.
	FindActiveRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string) (*domain.ExchangeRate, error)
	FindRateByID(ctx context.Context, rateID string) (*domain.ExchangeRate, error)
	ListActiveRates(ctx context.Context) ([]domain.ExchangeRate, error)
	// ListRateHistory returns every row of the ordered pair, newest first.
	ListRateHistory(ctx context.Context, fromCurrencyCode, toCurrencyCode string) ([]domain.ExchangeRate, error)
}

// ExchangeRateTx is the handle available inside a rate unit of work.
type ExchangeRateTx interface {
	// DeactivateActiveRate closes the active row of the pair, if any, and returns it.
	DeactivateActiveRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string, userID string, now time.Time) (*domain.ExchangeRate, error)
	// SaveExchangeRate inserts a row. A second active row for a pair yields apperrors.ErrDuplicate.
	SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error
}

// ExchangeRateRepositoryFacade combines all exchange rate repository interfaces.
type ExchangeRateRepositoryFacade interface {
	ExchangeRateReader
	ExchangeRateUnitOfWork
}

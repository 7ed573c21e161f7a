package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uqar-pharmacy/moneybox/internal/apperrors"
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portsrepo "github.com/uqar-pharmacy/moneybox/internal/core/ports/repositories"
	"github.com/uqar-pharmacy/moneybox/internal/models"
	"github.com/uqar-pharmacy/moneybox/internal/utils/mapping"
)

const exchangeRateColumns = `exchange_rate_id, from_currency_code, to_currency_code, rate,
	effective_from, effective_to, is_active, source, notes,
	created_at, created_by, last_updated_at, last_updated_by`

// PgxExchangeRateRepository implements portsrepo.ExchangeRateRepositoryFacade using pgxpool.
type PgxExchangeRateRepository struct {
	BaseRepository
}

// NewPgxExchangeRateRepository creates a new PgxExchangeRateRepository.
func NewPgxExchangeRateRepository(db *pgxpool.Pool) *PgxExchangeRateRepository {
	return &PgxExchangeRateRepository{
		BaseRepository: BaseRepository{Pool: db},
	}
}

var _ portsrepo.ExchangeRateRepositoryFacade = (*PgxExchangeRateRepository)(nil)

func scanExchangeRate(row rowScanner) (*domain.ExchangeRate, error) {
	var m models.ExchangeRate
	err := row.Scan(
		&m.ExchangeRateID, &m.FromCurrencyCode, &m.ToCurrencyCode, &m.Rate,
		&m.EffectiveFrom, &m.EffectiveTo, &m.IsActive, &m.Source, &m.Notes,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	rate := mapping.ToDomainExchangeRate(m)
	return &rate, nil
}

func (r *PgxExchangeRateRepository) findOne(ctx context.Context, q querier, query, what string, args ...any) (*domain.ExchangeRate, error) {
	rate, err := scanExchangeRate(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(what)
		}
		return nil, dbError("failed to find "+what, err)
	}
	return rate, nil
}

func (r *PgxExchangeRateRepository) list(ctx context.Context, query string, args ...any) ([]domain.ExchangeRate, error) {
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to list exchange rates", err)
	}
	defer rows.Close()

	var rates []domain.ExchangeRate
	for rows.Next() {
		rate, err := scanExchangeRate(rows)
		if err != nil {
			return nil, dbError("failed to scan exchange rate", err)
		}
		rates = append(rates, *rate)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate exchange rates", err)
	}
	return rates, nil
}

// FindActiveRate retrieves the active rate of an ordered pair.
func (r *PgxExchangeRateRepository) FindActiveRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string) (*domain.ExchangeRate, error) {
	query := `
		SELECT ` + exchangeRateColumns + ` FROM exchange_rates
		WHERE from_currency_code = $1 AND to_currency_code = $2 AND is_active;
	`
	return r.findOne(ctx, r.Pool, query, "exchange rate "+fromCurrencyCode+"/"+toCurrencyCode, fromCurrencyCode, toCurrencyCode)
}

// FindRateByID retrieves an exchange rate by its ID.
func (r *PgxExchangeRateRepository) FindRateByID(ctx context.Context, rateID string) (*domain.ExchangeRate, error) {
	query := `SELECT ` + exchangeRateColumns + ` FROM exchange_rates WHERE exchange_rate_id = $1;`
	return r.findOne(ctx, r.Pool, query, "exchange rate "+rateID, rateID)
}

// ListActiveRates returns every active rate ordered by pair.
func (r *PgxExchangeRateRepository) ListActiveRates(ctx context.Context) ([]domain.ExchangeRate, error) {
	query := `
		SELECT ` + exchangeRateColumns + ` FROM exchange_rates
		WHERE is_active
		ORDER BY from_currency_code, to_currency_code;
	`
	return r.list(ctx, query)
}

// ListRateHistory returns every row of the pair, newest first.
func (r *PgxExchangeRateRepository) ListRateHistory(ctx context.Context, fromCurrencyCode, toCurrencyCode string) ([]domain.ExchangeRate, error) {
	query := `
		SELECT ` + exchangeRateColumns + ` FROM exchange_rates
		WHERE from_currency_code = $1 AND to_currency_code = $2
		ORDER BY effective_from DESC, created_at DESC;
	`
	return r.list(ctx, query, fromCurrencyCode, toCurrencyCode)
}

// RunInRateTx runs fn in one database transaction.
func (r *PgxExchangeRateRepository) RunInRateTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.ExchangeRateTx) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &pgxRateTx{repo: r, tx: tx})
	})
}

type pgxRateTx struct {
	repo *PgxExchangeRateRepository
	tx   pgx.Tx
}

// DeactivateActiveRate serialises writers of the pair on an advisory lock, then
// closes the active row, if any.
func (t *pgxRateTx) DeactivateActiveRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string, userID string, now time.Time) (*domain.ExchangeRate, error) {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1 || '/' || $2));`, fromCurrencyCode, toCurrencyCode); err != nil {
		return nil, dbError("failed to lock exchange rate pair", err)
	}

	query := `
		UPDATE exchange_rates
		SET is_active = FALSE, effective_to = $3, last_updated_at = $3, last_updated_by = $4
		WHERE from_currency_code = $1 AND to_currency_code = $2 AND is_active
		RETURNING ` + exchangeRateColumns + `;
	`
	rate, err := scanExchangeRate(t.tx.QueryRow(ctx, query, fromCurrencyCode, toCurrencyCode, now, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, dbError("failed to deactivate exchange rate", err)
	}
	return rate, nil
}

func (t *pgxRateTx) SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error {
	m := mapping.ToModelExchangeRate(rate)
	query := `
		INSERT INTO exchange_rates (` + exchangeRateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := t.tx.Exec(ctx, query,
		m.ExchangeRateID, m.FromCurrencyCode, m.ToCurrencyCode, m.Rate,
		m.EffectiveFrom, m.EffectiveTo, m.IsActive, m.Source, m.Notes,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: an active rate for %s/%s already exists", apperrors.ErrDuplicate, m.FromCurrencyCode, m.ToCurrencyCode)
		}
		return dbError("failed to save exchange rate", err)
	}
	return nil
}

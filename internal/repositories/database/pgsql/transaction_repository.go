package pgsql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uqar-pharmacy/moneybox/internal/apperrors"
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portsrepo "github.com/uqar-pharmacy/moneybox/internal/core/ports/repositories"
	"github.com/uqar-pharmacy/moneybox/internal/models"
	"github.com/uqar-pharmacy/moneybox/internal/utils/mapping"
	"github.com/uqar-pharmacy/moneybox/internal/utils/pagination"
)

const transactionColumns = `transaction_id, money_box_id, transaction_type, amount, balance_before, balance_after,
	description, reference_id, reference_type, original_amount, original_currency,
	converted_amount, converted_currency, exchange_rate, conversion_timestamp, conversion_source,
	operation_status, error_message, actor_user_id, actor_user_type, actor_ip_address,
	actor_user_agent, actor_session_id, metadata, created_at, created_by`

// PgxTransactionRepository implements portsrepo.TransactionRepositoryFacade using pgxpool.
type PgxTransactionRepository struct {
	BaseRepository
}

func newPgxTransactionRepository(pool *pgxpool.Pool) *PgxTransactionRepository {
	return &PgxTransactionRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

func insertTransaction(ctx context.Context, q querier, txn domain.Transaction) error {
	m := mapping.ToModelTransaction(txn)
	query := `
		INSERT INTO money_box_transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26);
	`
	_, err := q.Exec(ctx, query,
		m.TransactionID, m.MoneyBoxID, m.TransactionType, m.Amount, m.BalanceBefore, m.BalanceAfter,
		m.Description, m.ReferenceID, m.ReferenceType, m.OriginalAmount, m.OriginalCurrency,
		m.ConvertedAmount, m.ConvertedCurrency, m.ExchangeRate, m.ConversionTimestamp, m.ConversionSource,
		m.OperationStatus, m.ErrorMessage, m.ActorUserID, m.ActorUserType, m.ActorIPAddress,
		m.ActorUserAgent, m.ActorSessionID, m.Metadata, m.CreatedAt, m.CreatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: transaction %s already exists", apperrors.ErrDuplicate, m.TransactionID)
		}
		return dbError("failed to save transaction "+m.TransactionID, err)
	}
	return nil
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var m models.Transaction
	err := row.Scan(
		&m.TransactionID, &m.MoneyBoxID, &m.TransactionType, &m.Amount, &m.BalanceBefore, &m.BalanceAfter,
		&m.Description, &m.ReferenceID, &m.ReferenceType, &m.OriginalAmount, &m.OriginalCurrency,
		&m.ConvertedAmount, &m.ConvertedCurrency, &m.ExchangeRate, &m.ConversionTimestamp, &m.ConversionSource,
		&m.OperationStatus, &m.ErrorMessage, &m.ActorUserID, &m.ActorUserType, &m.ActorIPAddress,
		&m.ActorUserAgent, &m.ActorSessionID, &m.Metadata, &m.CreatedAt, &m.CreatedBy,
	)
	if err != nil {
		return domain.Transaction{}, err
	}
	return mapping.ToDomainTransaction(m), nil
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	var out []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, dbError("failed to scan transaction", err)
		}
		out = append(out, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate transactions", err)
	}
	return out, nil
}

// SaveTransaction inserts a row outside any ledger unit.
func (r *PgxTransactionRepository) SaveTransaction(ctx context.Context, txn domain.Transaction) error {
	return insertTransaction(ctx, r.Pool, txn)
}

// FindTransactionByID retrieves a transaction by its ID.
func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM money_box_transactions WHERE transaction_id = $1;`
	txn, err := scanTransaction(r.Pool.QueryRow(ctx, query, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("transaction " + transactionID)
		}
		return nil, dbError("failed to find transaction", err)
	}
	return &txn, nil
}

// ListTransactions pages through a box's rows newest first on (created_at, transaction_id).
func (r *PgxTransactionRepository) ListTransactions(ctx context.Context, filter domain.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error) {
	conds := []string{"money_box_id = $1"}
	args := []any{filter.MoneyBoxID}
	add := func(cond string, vals ...any) {
		for _, v := range vals {
			args = append(args, v)
			cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		conds = append(conds, cond)
	}

	if filter.Type != "" {
		add("transaction_type = ?", string(filter.Type))
	}
	if filter.Status != "" {
		add("operation_status = ?", string(filter.Status))
	}
	if filter.From != nil {
		add("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		add("created_at < ?", *filter.To)
	}
	if nextToken != nil && *nextToken != "" {
		createdAt, id, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		add("(created_at, transaction_id) < (?, ?)", createdAt, id)
	}

	args = append(args, limit+1)
	query := fmt.Sprintf(`
		SELECT %s FROM money_box_transactions
		WHERE %s
		ORDER BY created_at DESC, transaction_id DESC
		LIMIT $%d;`, transactionColumns, strings.Join(conds, " AND "), len(args))

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, dbError("failed to list transactions", err)
	}
	txns, err := collectTransactions(rows)
	if err != nil {
		return nil, nil, err
	}

	var next *string
	if len(txns) > limit {
		txns = txns[:limit]
		last := txns[len(txns)-1]
		token := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		next = &token
	}
	return txns, next, nil
}

// ListTransactionsByReference returns the audit trail of a business entity, oldest first.
func (r *PgxTransactionRepository) ListTransactionsByReference(ctx context.Context, moneyBoxID, referenceType, referenceID string) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM money_box_transactions
		WHERE money_box_id = $1 AND reference_type = $2 AND reference_id = $3
		ORDER BY created_at ASC, transaction_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, moneyBoxID, referenceType, referenceID)
	if err != nil {
		return nil, dbError("failed to list transactions by reference", err)
	}
	return collectTransactions(rows)
}

// ListTransactionsInPeriod returns the rows created in [from, to), oldest first.
func (r *PgxTransactionRepository) ListTransactionsInPeriod(ctx context.Context, moneyBoxID string, status domain.OperationStatus, from, to time.Time) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM money_box_transactions
		WHERE money_box_id = $1 AND created_at >= $2 AND created_at < $3
			AND ($4::text = '' OR operation_status = $4)
		ORDER BY created_at ASC, transaction_id ASC;
	`
	rows, err := r.Pool.Query(ctx, query, moneyBoxID, from, to, string(status))
	if err != nil {
		return nil, dbError("failed to list transactions in period", err)
	}
	return collectTransactions(rows)
}

// SummarizeTransactions aggregates rows created in [from, to).
func (r *PgxTransactionRepository) SummarizeTransactions(ctx context.Context, moneyBoxID string, from, to time.Time) ([]domain.TransactionTotal, error) {
	query := `
		SELECT transaction_type, operation_status, original_currency, COUNT(*),
			COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN amount < 0 THEN amount ELSE 0 END), 0),
			COALESCE(SUM(original_amount), 0)
		FROM money_box_transactions
		WHERE money_box_id = $1 AND created_at >= $2 AND created_at < $3
		GROUP BY transaction_type, operation_status, original_currency
		ORDER BY transaction_type, operation_status, original_currency;
	`
	rows, err := r.Pool.Query(ctx, query, moneyBoxID, from, to)
	if err != nil {
		return nil, dbError("failed to summarize transactions", err)
	}
	defer rows.Close()

	var totals []domain.TransactionTotal
	for rows.Next() {
		var t domain.TransactionTotal
		var txnType, status string
		if err := rows.Scan(&txnType, &status, &t.OriginalCurrency, &t.Count, &t.Inflow, &t.Outflow, &t.OriginalAmount); err != nil {
			return nil, dbError("failed to scan transaction summary", err)
		}
		t.TransactionType = domain.TransactionType(txnType)
		t.OperationStatus = domain.OperationStatus(status)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate transaction summary", err)
	}
	return totals, nil
}

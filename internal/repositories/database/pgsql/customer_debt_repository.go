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

const customerDebtColumns = `debt_id, pharmacy_id, customer_id, amount, paid_amount, remaining_amount,
	status, due_date, paid_at, payment_method, notes,
	created_at, created_by, last_updated_at, last_updated_by`

// PgxCustomerDebtRepository implements portsrepo.CustomerDebtRepositoryFacade using pgxpool.
type PgxCustomerDebtRepository struct {
	BaseRepository
}

func newPgxCustomerDebtRepository(pool *pgxpool.Pool) *PgxCustomerDebtRepository {
	return &PgxCustomerDebtRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.CustomerDebtRepositoryFacade = (*PgxCustomerDebtRepository)(nil)

func scanCustomerDebt(row rowScanner) (*domain.CustomerDebt, error) {
	var m models.CustomerDebt
	err := row.Scan(
		&m.DebtID, &m.PharmacyID, &m.CustomerID, &m.Amount, &m.PaidAmount, &m.RemainingAmount,
		&m.Status, &m.DueDate, &m.PaidAt, &m.PaymentMethod, &m.Notes,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	debt := mapping.ToDomainCustomerDebt(m)
	return &debt, nil
}

func findDebt(ctx context.Context, q querier, query, debtID string) (*domain.CustomerDebt, error) {
	debt, err := scanCustomerDebt(q.QueryRow(ctx, query, debtID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("customer debt " + debtID)
		}
		return nil, dbError("failed to find customer debt", err)
	}
	return debt, nil
}

func listDebts(ctx context.Context, q querier, query string, args ...any) ([]domain.CustomerDebt, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to list customer debts", err)
	}
	defer rows.Close()

	var debts []domain.CustomerDebt
	for rows.Next() {
		debt, err := scanCustomerDebt(rows)
		if err != nil {
			return nil, dbError("failed to scan customer debt", err)
		}
		debts = append(debts, *debt)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate customer debts", err)
	}
	return debts, nil
}

// FindDebtByID retrieves a debt by its ID.
func (r *PgxCustomerDebtRepository) FindDebtByID(ctx context.Context, debtID string) (*domain.CustomerDebt, error) {
	query := `SELECT ` + customerDebtColumns + ` FROM customer_debts WHERE debt_id = $1;`
	return findDebt(ctx, r.Pool, query, debtID)
}

// ListDebtsByCustomer returns all debts of a customer, oldest first.
func (r *PgxCustomerDebtRepository) ListDebtsByCustomer(ctx context.Context, pharmacyID, customerID string) ([]domain.CustomerDebt, error) {
	query := `
		SELECT ` + customerDebtColumns + ` FROM customer_debts
		WHERE pharmacy_id = $1 AND customer_id = $2
		ORDER BY created_at ASC, debt_id ASC;
	`
	return listDebts(ctx, r.Pool, query, pharmacyID, customerID)
}

// ListOverdueDebts returns unpaid debts due before asOf, earliest due first.
func (r *PgxCustomerDebtRepository) ListOverdueDebts(ctx context.Context, pharmacyID string, asOf time.Time) ([]domain.CustomerDebt, error) {
	query := `
		SELECT ` + customerDebtColumns + ` FROM customer_debts
		WHERE pharmacy_id = $1 AND status <> 'PAID' AND remaining_amount > 0 AND due_date < $2
		ORDER BY due_date ASC, debt_id ASC;
	`
	return listDebts(ctx, r.Pool, query, pharmacyID, asOf)
}

// SummarizeDebts aggregates a pharmacy's debts by status.
func (r *PgxCustomerDebtRepository) SummarizeDebts(ctx context.Context, pharmacyID string) ([]domain.DebtStatusTotal, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0), COALESCE(SUM(paid_amount), 0), COALESCE(SUM(remaining_amount), 0)
		FROM customer_debts
		WHERE pharmacy_id = $1
		GROUP BY status
		ORDER BY status;
	`
	rows, err := r.Pool.Query(ctx, query, pharmacyID)
	if err != nil {
		return nil, dbError("failed to summarize customer debts", err)
	}
	defer rows.Close()

	var totals []domain.DebtStatusTotal
	for rows.Next() {
		var t domain.DebtStatusTotal
		var status string
		if err := rows.Scan(&status, &t.Count, &t.Amount, &t.PaidAmount, &t.RemainingAmount); err != nil {
			return nil, dbError("failed to scan debt summary", err)
		}
		t.Status = domain.DebtStatus(status)
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate debt summary", err)
	}
	return totals, nil
}

// SaveDebt inserts a new debt.
func (r *PgxCustomerDebtRepository) SaveDebt(ctx context.Context, debt domain.CustomerDebt) error {
	m := mapping.ToModelCustomerDebt(debt)
	query := `
		INSERT INTO customer_debts (` + customerDebtColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.DebtID, m.PharmacyID, m.CustomerID, m.Amount, m.PaidAmount, m.RemainingAmount,
		m.Status, m.DueDate, m.PaidAt, m.PaymentMethod, m.Notes,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: customer debt %s already exists", apperrors.ErrDuplicate, m.DebtID)
		}
		return dbError("failed to save customer debt", err)
	}
	return nil
}

// RunInDebtTx runs fn in one database transaction.
func (r *PgxCustomerDebtRepository) RunInDebtTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.DebtTx) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &pgxDebtTx{tx: tx})
	})
}

type pgxDebtTx struct {
	tx pgx.Tx
}

func (t *pgxDebtTx) LockDebt(ctx context.Context, debtID string) (*domain.CustomerDebt, error) {
	query := `SELECT ` + customerDebtColumns + ` FROM customer_debts WHERE debt_id = $1 FOR UPDATE;`
	return findDebt(ctx, t.tx, query, debtID)
}

func (t *pgxDebtTx) LockActiveDebtsByCustomer(ctx context.Context, pharmacyID, customerID string) ([]domain.CustomerDebt, error) {
	query := `
		SELECT ` + customerDebtColumns + ` FROM customer_debts
		WHERE pharmacy_id = $1 AND customer_id = $2 AND status = 'ACTIVE'
		ORDER BY created_at ASC, debt_id ASC
		FOR UPDATE;
	`
	return listDebts(ctx, t.tx, query, pharmacyID, customerID)
}

func (t *pgxDebtTx) UpdateDebtPayment(ctx context.Context, debt domain.CustomerDebt) error {
	m := mapping.ToModelCustomerDebt(debt)
	query := `
		UPDATE customer_debts
		SET paid_amount = $2, remaining_amount = $3, status = $4, paid_at = $5,
			payment_method = $6, notes = $7, last_updated_at = $8, last_updated_by = $9
		WHERE debt_id = $1;
	`
	tag, err := t.tx.Exec(ctx, query,
		m.DebtID, m.PaidAmount, m.RemainingAmount, m.Status, m.PaidAt,
		m.PaymentMethod, m.Notes, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		return dbError("failed to update customer debt", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("customer debt " + m.DebtID)
	}
	return nil
}

func (t *pgxDebtTx) DeleteDebt(ctx context.Context, debtID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM customer_debts WHERE debt_id = $1;`, debtID)
	if err != nil {
		return dbError("failed to delete customer debt", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("customer debt " + debtID)
	}
	return nil
}

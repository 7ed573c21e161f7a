package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/apperrors"
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portsrepo "github.com/uqar-pharmacy/moneybox/internal/core/ports/repositories"
	"github.com/uqar-pharmacy/moneybox/internal/models"
	"github.com/uqar-pharmacy/moneybox/internal/utils/mapping"
)

const moneyBoxColumns = `money_box_id, pharmacy_id, status, current_balance, initial_balance,
	reconciled_balance, last_reconciled, currency,
	created_at, created_by, last_updated_at, last_updated_by`

// PgxMoneyBoxRepository implements portsrepo.MoneyBoxRepositoryFacade using pgxpool.
type PgxMoneyBoxRepository struct {
	BaseRepository
}

func newPgxMoneyBoxRepository(pool *pgxpool.Pool) *PgxMoneyBoxRepository {
	return &PgxMoneyBoxRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.MoneyBoxRepositoryFacade = (*PgxMoneyBoxRepository)(nil)

func scanMoneyBox(row rowScanner) (*domain.MoneyBox, error) {
	var m models.MoneyBox
	err := row.Scan(
		&m.MoneyBoxID, &m.PharmacyID, &m.Status, &m.CurrentBalance, &m.InitialBalance,
		&m.ReconciledBalance, &m.LastReconciled, &m.Currency,
		&m.CreatedAt, &m.CreatedBy, &m.LastUpdatedAt, &m.LastUpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	box := mapping.ToDomainMoneyBox(m)
	return &box, nil
}

func (r *PgxMoneyBoxRepository) findOne(ctx context.Context, q querier, query, what string, args ...any) (*domain.MoneyBox, error) {
	box, err := scanMoneyBox(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(what)
		}
		return nil, dbError("failed to find "+what, err)
	}
	return box, nil
}

// FindMoneyBoxByID retrieves a money box by its ID.
func (r *PgxMoneyBoxRepository) FindMoneyBoxByID(ctx context.Context, moneyBoxID string) (*domain.MoneyBox, error) {
	query := `SELECT ` + moneyBoxColumns + ` FROM money_boxes WHERE money_box_id = $1;`
	return r.findOne(ctx, r.Pool, query, "money box "+moneyBoxID, moneyBoxID)
}

// FindMoneyBoxByPharmacyID retrieves the money box of a pharmacy.
func (r *PgxMoneyBoxRepository) FindMoneyBoxByPharmacyID(ctx context.Context, pharmacyID string) (*domain.MoneyBox, error) {
	query := `SELECT ` + moneyBoxColumns + ` FROM money_boxes WHERE pharmacy_id = $1;`
	return r.findOne(ctx, r.Pool, query, "money box for pharmacy "+pharmacyID, pharmacyID)
}

func insertMoneyBox(ctx context.Context, q querier, box domain.MoneyBox) error {
	m := mapping.ToModelMoneyBox(box)
	query := `
		INSERT INTO money_boxes (` + moneyBoxColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := q.Exec(ctx, query,
		m.MoneyBoxID, m.PharmacyID, m.Status, m.CurrentBalance, m.InitialBalance,
		m.ReconciledBalance, m.LastReconciled, m.Currency,
		m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: money box for pharmacy %s already exists", apperrors.ErrDuplicate, m.PharmacyID)
		}
		return dbError("failed to save money box "+m.MoneyBoxID, err)
	}
	return nil
}

// SaveMoneyBox inserts a new money box.
func (r *PgxMoneyBoxRepository) SaveMoneyBox(ctx context.Context, box domain.MoneyBox) error {
	return insertMoneyBox(ctx, r.Pool, box)
}

func (r *PgxMoneyBoxRepository) execOne(ctx context.Context, q querier, moneyBoxID, op, query string, args ...any) error {
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return dbError(op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFoundError("money box " + moneyBoxID)
	}
	return nil
}

// UpdateMoneyBoxStatus opens or closes a box.
func (r *PgxMoneyBoxRepository) UpdateMoneyBoxStatus(ctx context.Context, moneyBoxID string, status domain.MoneyBoxStatus, userID string, now time.Time) error {
	query := `UPDATE money_boxes SET status = $2, last_updated_at = $3, last_updated_by = $4 WHERE money_box_id = $1;`
	return r.execOne(ctx, r.Pool, moneyBoxID, "failed to update money box status", query, moneyBoxID, string(status), now, userID)
}

// UpdateReconciliation stores the last physical count.
func (r *PgxMoneyBoxRepository) UpdateReconciliation(ctx context.Context, moneyBoxID string, reconciled decimal.Decimal, userID string, now time.Time) error {
	query := `
		UPDATE money_boxes
		SET reconciled_balance = $2, last_reconciled = $3, last_updated_at = $3, last_updated_by = $4
		WHERE money_box_id = $1;
	`
	return r.execOne(ctx, r.Pool, moneyBoxID, "failed to update reconciliation", query, moneyBoxID, reconciled, now, userID)
}

// RunInLedgerTx runs fn in one database transaction.
func (r *PgxMoneyBoxRepository) RunInLedgerTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.LedgerTx) error) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		return fn(ctx, &pgxLedgerTx{repo: r, tx: tx})
	})
}

type pgxLedgerTx struct {
	repo *PgxMoneyBoxRepository
	tx   pgx.Tx
}

func (t *pgxLedgerTx) InsertMoneyBox(ctx context.Context, box domain.MoneyBox) error {
	return insertMoneyBox(ctx, t.tx, box)
}

func (t *pgxLedgerTx) LockMoneyBox(ctx context.Context, moneyBoxID string) (*domain.MoneyBox, error) {
	query := `SELECT ` + moneyBoxColumns + ` FROM money_boxes WHERE money_box_id = $1 FOR UPDATE;`
	return t.repo.findOne(ctx, t.tx, query, "money box "+moneyBoxID, moneyBoxID)
}

func (t *pgxLedgerTx) UpdateMoneyBoxBalance(ctx context.Context, moneyBoxID string, balance decimal.Decimal, userID string, now time.Time) error {
	query := `UPDATE money_boxes SET current_balance = $2, last_updated_at = $3, last_updated_by = $4 WHERE money_box_id = $1;`
	return t.repo.execOne(ctx, t.tx, moneyBoxID, "failed to update money box balance", query, moneyBoxID, balance, now, userID)
}

func (t *pgxLedgerTx) SaveTransaction(ctx context.Context, txn domain.Transaction) error {
	return insertTransaction(ctx, t.tx, txn)
}

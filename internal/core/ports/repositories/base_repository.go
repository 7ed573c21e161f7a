package repositories

import "context"

// Unit-of-work ports. Each RunIn*Tx call executes fn inside one atomic unit:
// every write made through the tx handle commits together when fn returns nil
// and is discarded when fn returns an error. The rows a handle "locks" stay
// locked until the unit ends, so read-modify-write sequences on them cannot
// interleave with another unit touching the same rows.

// LedgerUnitOfWork runs money box read-modify-write sequences.
type LedgerUnitOfWork interface {
	RunInLedgerTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
}

// ExchangeRateUnitOfWork runs rate deactivate-then-activate sequences.
type ExchangeRateUnitOfWork interface {
	RunInRateTx(ctx context.Context, fn func(ctx context.Context, tx ExchangeRateTx) error) error
}

// DebtUnitOfWork runs debt payment sequences.
type DebtUnitOfWork interface {
	RunInDebtTx(ctx context.Context, fn func(ctx context.Context, tx DebtTx) error) error
}

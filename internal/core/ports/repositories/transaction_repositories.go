package repositories

import (
	"context"
	"time"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// TransactionReader defines read operations for money box transactions.
type TransactionReader interface {
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	// ListTransactions returns rows newest first. nextToken is the opaque cursor returned
	// by a previous call; the returned token is nil on the last page.
	ListTransactions(ctx context.Context, filter domain.TransactionFilter, limit int, nextToken *string) ([]domain.Transaction, *string, error)
	// ListTransactionsByReference returns every row pointing at a business entity, oldest first.
	ListTransactionsByReference(ctx context.Context, moneyBoxID, referenceType, referenceID string) ([]domain.Transaction, error)
	// ListTransactionsInPeriod returns the rows created in [from, to), oldest first.
	// An empty status matches every row.
	ListTransactionsInPeriod(ctx context.Context, moneyBoxID string, status domain.OperationStatus, from, to time.Time) ([]domain.Transaction, error)
	// SummarizeTransactions groups rows created in [from, to) by type, status and original currency.
	SummarizeTransactions(ctx context.Context, moneyBoxID string, from, to time.Time) ([]domain.TransactionTotal, error)
}

// TransactionWriter persists rows outside a ledger unit of work. It is used for
// compensating FAILED entries, which must survive the rollback of the failed unit.
type TransactionWriter interface {
	SaveTransaction(ctx context.Context, txn domain.Transaction) error
}

// TransactionRepositoryFacade combines all transaction repository interfaces.
type TransactionRepositoryFacade interface {
	TransactionReader
	TransactionWriter
}

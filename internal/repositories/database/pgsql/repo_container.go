package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/uqar-pharmacy/moneybox/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		MoneyBoxRepo:     newPgxMoneyBoxRepository(dbPool),
		TransactionRepo:  newPgxTransactionRepository(dbPool),
		ExchangeRateRepo: NewPgxExchangeRateRepository(dbPool),
		DebtRepo:         newPgxCustomerDebtRepository(dbPool),
	}
}

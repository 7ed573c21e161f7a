package services

import (
	portsrepo "github.com/uqar-pharmacy/moneybox/internal/core/ports/repositories"
	portssvc "github.com/uqar-pharmacy/moneybox/internal/core/ports/services"
	"github.com/uqar-pharmacy/moneybox/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies.
// notifier may be nil, in which case debt payments are not published.
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider, notifier portssvc.DebtPaymentNotifier, opts ...ServiceOption) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// The converter is needed by everything that touches money box balances.
	container.ExchangeRate = NewExchangeRateService(repos.ExchangeRateRepo, cfg.ConversionConfig(), opts...)

	container.Ledger = NewLedgerService(
		repos.MoneyBoxRepo,
		repos.TransactionRepo,
		container.ExchangeRate,
		opts...,
	)

	container.MoneyBox = NewMoneyBoxService(
		repos.MoneyBoxRepo,
		repos.TransactionRepo,
		container.Ledger,
		container.ExchangeRate,
		cfg.DisplayCurrencies,
		opts...,
	)

	container.Debt = NewDebtService(
		repos.DebtRepo,
		container.Ledger,
		notifier,
		container.ExchangeRate.BaseCurrency(),
		opts...,
	)

	return container
}

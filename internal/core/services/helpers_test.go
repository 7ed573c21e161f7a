package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portssvc "github.com/uqar-pharmacy/moneybox/internal/core/ports/services"
	"github.com/uqar-pharmacy/moneybox/internal/core/services"
	"github.com/uqar-pharmacy/moneybox/internal/repositories/memory"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *stepClock) Advance(dur time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(dur)
}

func testConversionConfig() domain.ConversionConfig {
	return domain.ConversionConfig{
		BaseCurrency:        "SYP",
		SupportedCurrencies: []string{"USD", "EUR", "TRY"},
		DisplayCurrencies:   []string{"USD"},
		FallbackAnchors: map[string]decimal.Decimal{
			"USD": d("13000"),
			"EUR": d("14000"),
		},
	}
}

// MockNotifier records debt payment notifications.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyDebtPayment(ctx context.Context, n domain.DebtPaymentNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// testEnv wires every service over one in-memory store.
type testEnv struct {
	clock    *stepClock
	store    *memory.Store
	rates    portssvc.ExchangeRateSvcFacade
	ledger   portssvc.LedgerSvc
	moneyBox portssvc.MoneyBoxSvcFacade
	debts    portssvc.DebtSvcFacade
}

func newTestEnv(notifier portssvc.DebtPaymentNotifier) *testEnv {
	clock := newStepClock()
	store := memory.NewStore()
	opt := services.WithClock(clock.Now)
	cfg := testConversionConfig()

	rates := services.NewExchangeRateService(store, cfg, opt)
	ledger := services.NewLedgerService(store, store, rates, opt)
	return &testEnv{
		clock:    clock,
		store:    store,
		rates:    rates,
		ledger:   ledger,
		moneyBox: services.NewMoneyBoxService(store, store, ledger, rates, cfg.DisplayCurrencies, opt),
		debts:    services.NewDebtService(store, ledger, notifier, cfg.BaseCurrency, opt),
	}
}

var testActor = domain.Actor{UserID: "user-1", UserType: "PHARMACIST", IPAddress: "10.0.0.1"}

package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/uqar-pharmacy/moneybox/internal/apperrors"
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	"github.com/uqar-pharmacy/moneybox/internal/core/services"
)

const pharmacyID = "pharmacy-1"

type MoneyBoxServiceTestSuite struct {
	suite.Suite
	env *testEnv
	ctx context.Context
}

func (suite *MoneyBoxServiceTestSuite) SetupTest() {
	suite.env = newTestEnv(nil)
	suite.ctx = context.Background()
}

func TestMoneyBoxServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MoneyBoxServiceTestSuite))
}

func (suite *MoneyBoxServiceTestSuite) createBox(initial string) *domain.MoneyBox {
	box, err := suite.env.moneyBox.CreateMoneyBox(suite.ctx, pharmacyID, d(initial), "", testActor)
	suite.Require().NoError(err)
	return box
}

func (suite *MoneyBoxServiceTestSuite) TestCreateMoneyBox_RecordsOpeningBalance() {
	box := suite.createBox("1000")

	suite.Equal(domain.MoneyBoxOpen, box.Status)
	suite.Equal("SYP", box.Currency)
	suite.True(d("1000").Equal(box.CurrentBalance))
	suite.True(d("1000").Equal(box.InitialBalance))
	suite.Equal(testActor.UserID, box.CreatedBy)

	trail, err := suite.env.moneyBox.AuditTrail(suite.ctx, pharmacyID, services.ReferenceMoneyBox, box.MoneyBoxID)
	suite.Require().NoError(err)
	suite.Require().Len(trail, 1)
	suite.Equal(domain.OpeningBalance, trail[0].TransactionType)
	suite.True(trail[0].BalanceBefore.IsZero())
	suite.True(d("1000").Equal(trail[0].BalanceAfter))
	suite.Equal(testActor, trail[0].Actor)
}

func (suite *MoneyBoxServiceTestSuite) TestCreateMoneyBox_ForeignOpeningBalance() {
	box, err := suite.env.moneyBox.CreateMoneyBox(suite.ctx, pharmacyID, d("10"), "USD", testActor)
	suite.Require().NoError(err)

	suite.True(d("130000").Equal(box.CurrentBalance), "got %s", box.CurrentBalance)
	suite.True(d("130000").Equal(box.InitialBalance))
}

func (suite *MoneyBoxServiceTestSuite) TestCreateMoneyBox_Duplicate() {
	suite.createBox("0")

	_, err := suite.env.moneyBox.CreateMoneyBox(suite.ctx, pharmacyID, d("50"), "", testActor)
	suite.ErrorIs(err, apperrors.ErrConflict)
}

func (suite *MoneyBoxServiceTestSuite) TestCreateMoneyBox_FailedOpeningLeavesNothing() {
	env := suite.env
	brokenLedger := services.NewLedgerService(failingLedgerRepo{Store: env.store, err: errors.New("tx aborted")}, env.store, env.rates)
	moneyBox := services.NewMoneyBoxService(env.store, env.store, brokenLedger, env.rates, nil)

	_, err := moneyBox.CreateMoneyBox(suite.ctx, pharmacyID, d("1000"), "", testActor)
	suite.ErrorIs(err, apperrors.ErrInternal)

	_, err = env.store.FindMoneyBoxByPharmacyID(suite.ctx, pharmacyID)
	suite.ErrorIs(err, apperrors.ErrNotFound, "no box survives a failed opening")

	box := suite.createBox("1000")
	suite.True(d("1000").Equal(box.CurrentBalance))
}

func (suite *MoneyBoxServiceTestSuite) TestCreateMoneyBox_Validation() {
	_, err := suite.env.moneyBox.CreateMoneyBox(suite.ctx, pharmacyID, d("-1"), "", testActor)
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.env.moneyBox.CreateMoneyBox(suite.ctx, pharmacyID, d("1"), "GBP", testActor)
	suite.ErrorIs(err, apperrors.ErrValidation)

	_, err = suite.env.moneyBox.CreateMoneyBox(suite.ctx, "", d("1"), "", testActor)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *MoneyBoxServiceTestSuite) TestGetMoneyBox_DisplayBalances() {
	suite.createBox("1000")

	view, err := suite.env.moneyBox.GetMoneyBox(suite.ctx, pharmacyID)
	suite.Require().NoError(err)
	suite.Require().Len(view.DisplayBalances, 2)

	suite.Equal(domain.ProvenanceIdentity, view.DisplayBalances[0].Provenance)
	suite.True(d("1000").Equal(view.DisplayBalances[0].Amount))

	usd := view.DisplayBalances[1]
	suite.Equal("USD", usd.To)
	suite.Equal(domain.ProvenanceFallback, usd.Provenance)
	suite.True(d("0.08").Equal(usd.Amount), "got %s", usd.Amount)

	_, err = suite.env.moneyBox.GetMoneyBox(suite.ctx, "other-pharmacy")
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *MoneyBoxServiceTestSuite) TestManualTransactions() {
	suite.createBox("1000")

	deposit, err := suite.env.moneyBox.AddManualTransaction(suite.ctx, pharmacyID, d("250"), "", "", testActor)
	suite.Require().NoError(err)
	suite.Equal(domain.CashDeposit, deposit.TransactionType)
	suite.Equal("Manual cash deposit", deposit.Description)
	suite.Equal(services.ReferenceManual, deposit.ReferenceType)

	withdrawal, err := suite.env.moneyBox.AddManualTransaction(suite.ctx, pharmacyID, d("-100"), "SYP", "float for change", testActor)
	suite.Require().NoError(err)
	suite.Equal(domain.CashWithdrawal, withdrawal.TransactionType)
	suite.True(d("-100").Equal(withdrawal.Amount))
	suite.True(d("1150").Equal(withdrawal.BalanceAfter))

	_, err = suite.env.moneyBox.AddManualTransaction(suite.ctx, pharmacyID, d("0"), "", "", testActor)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *MoneyBoxServiceTestSuite) TestManualTransaction_ClosedBox() {
	suite.createBox("1000")

	closed, err := suite.env.moneyBox.UpdateStatus(suite.ctx, pharmacyID, domain.MoneyBoxClosed, testActor)
	suite.Require().NoError(err)
	suite.Equal(domain.MoneyBoxClosed, closed.Status)

	_, err = suite.env.moneyBox.AddManualTransaction(suite.ctx, pharmacyID, d("10"), "", "", testActor)
	suite.ErrorIs(err, apperrors.ErrConflict)

	_, err = suite.env.moneyBox.Reconcile(suite.ctx, pharmacyID, d("1000"), "count", testActor)
	suite.ErrorIs(err, apperrors.ErrConflict)

	reopened, err := suite.env.moneyBox.UpdateStatus(suite.ctx, pharmacyID, domain.MoneyBoxOpen, testActor)
	suite.Require().NoError(err)
	suite.True(reopened.IsOpen())

	_, err = suite.env.moneyBox.UpdateStatus(suite.ctx, pharmacyID, domain.MoneyBoxStatus("PAUSED"), testActor)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *MoneyBoxServiceTestSuite) TestReconcile_BooksDifference() {
	suite.createBox("1000")

	rec, err := suite.env.moneyBox.Reconcile(suite.ctx, pharmacyID, d("900"), "end of day", testActor)
	suite.Require().NoError(err)

	suite.True(d("1000").Equal(rec.Expected))
	suite.True(d("-100").Equal(rec.Difference))
	suite.Require().NotNil(rec.Adjustment)
	suite.Equal(domain.Adjustment, rec.Adjustment.TransactionType)
	suite.True(d("-100").Equal(rec.Adjustment.Amount))
	suite.Equal("1000", rec.Adjustment.Metadata["expected_balance"])
	suite.Equal("900", rec.Adjustment.Metadata["actual_count"])

	suite.True(d("900").Equal(rec.MoneyBox.CurrentBalance))
	suite.Require().NotNil(rec.MoneyBox.ReconciledBalance)
	suite.True(d("900").Equal(*rec.MoneyBox.ReconciledBalance))
	suite.NotNil(rec.MoneyBox.LastReconciled)
}

func (suite *MoneyBoxServiceTestSuite) TestReconcile_MatchingCount() {
	suite.createBox("1000")

	rec, err := suite.env.moneyBox.Reconcile(suite.ctx, pharmacyID, d("1000"), "all good", testActor)
	suite.Require().NoError(err)
	suite.Nil(rec.Adjustment)
	suite.True(rec.Difference.IsZero())
	suite.NotNil(rec.MoneyBox.LastReconciled)

	_, err = suite.env.moneyBox.Reconcile(suite.ctx, pharmacyID, d("1000"), "  ", testActor)
	suite.ErrorIs(err, apperrors.ErrValidation)
	_, err = suite.env.moneyBox.Reconcile(suite.ctx, pharmacyID, d("-1"), "notes", testActor)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *MoneyBoxServiceTestSuite) TestListTransactions_Paginates() {
	suite.createBox("1000")
	for i := 0; i < 4; i++ {
		_, err := suite.env.moneyBox.AddManualTransaction(suite.ctx, pharmacyID, d("10"), "", "", testActor)
		suite.Require().NoError(err)
	}

	var seen []string
	var token *string
	for page := 0; page < 3; page++ {
		txns, next, err := suite.env.moneyBox.ListTransactions(suite.ctx, pharmacyID, domain.TransactionFilter{}, 2, token)
		suite.Require().NoError(err)
		for _, t := range txns {
			seen = append(seen, t.TransactionID)
		}
		token = next
		if page < 2 {
			suite.Len(txns, 2)
			suite.Require().NotNil(next)
		} else {
			suite.Len(txns, 1)
			suite.Nil(next)
		}
	}
	suite.Len(seen, 5)

	deposits, _, err := suite.env.moneyBox.ListTransactions(suite.ctx, pharmacyID, domain.TransactionFilter{Type: domain.CashDeposit}, 0, nil)
	suite.Require().NoError(err)
	suite.Len(deposits, 4)
	for i := 1; i < len(deposits); i++ {
		suite.True(deposits[i-1].CreatedAt.After(deposits[i].CreatedAt), "newest first")
	}
}

func (suite *MoneyBoxServiceTestSuite) TestListTransactions_Validation() {
	suite.createBox("1000")

	_, _, err := suite.env.moneyBox.ListTransactions(suite.ctx, pharmacyID, domain.TransactionFilter{Type: "BOGUS"}, 10, nil)
	suite.ErrorIs(err, apperrors.ErrValidation)

	now := time.Now()
	earlier := now.Add(-time.Hour)
	_, _, err = suite.env.moneyBox.ListTransactions(suite.ctx, pharmacyID, domain.TransactionFilter{From: &now, To: &earlier}, 10, nil)
	suite.ErrorIs(err, apperrors.ErrValidation)

	bad := "not-a-token"
	_, _, err = suite.env.moneyBox.ListTransactions(suite.ctx, pharmacyID, domain.TransactionFilter{}, 10, &bad)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *MoneyBoxServiceTestSuite) TestPeriodSummary() {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	box := suite.createBox("1000")

	_, err := suite.env.ledger.RecordForPharmacy(suite.ctx, pharmacyID, domain.RecordRequest{TransactionType: domain.SalePayment, OriginalAmount: d("500")})
	suite.Require().NoError(err)
	_, err = suite.env.ledger.RecordForPharmacy(suite.ctx, pharmacyID, domain.RecordRequest{TransactionType: domain.Expense, OriginalAmount: d("200")})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.env.store.SaveTransaction(suite.ctx, domain.Transaction{
		TransactionID:    "failed-1",
		MoneyBoxID:       box.MoneyBoxID,
		TransactionType:  domain.Expense,
		OriginalCurrency: "SYP",
		OperationStatus:  domain.OperationFailed,
		CreatedAt:        suite.env.clock.Now(),
	}))

	summary, err := suite.env.moneyBox.PeriodSummary(suite.ctx, pharmacyID, from, to)
	suite.Require().NoError(err)

	suite.True(d("500").Equal(summary.TotalRevenue), "revenue %s", summary.TotalRevenue)
	suite.True(d("200").Equal(summary.TotalExpense))
	suite.True(d("300").Equal(summary.NetAmount))
	suite.Equal(int64(4), summary.TransactionCount)
	suite.Equal(int64(1), summary.FailedCount)
	suite.True(d("75").Equal(summary.SuccessRate), "rate %s", summary.SuccessRate)
	suite.True(d("1000").Equal(summary.ByType[domain.OpeningBalance]))
	suite.Require().Len(summary.ByCurrency, 1)
	suite.Equal("SYP", summary.ByCurrency[0].Currency)
	suite.Equal(int64(3), summary.ByCurrency[0].Count)

	_, err = suite.env.moneyBox.PeriodSummary(suite.ctx, pharmacyID, to, from)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *MoneyBoxServiceTestSuite) TestAuditTrail_RequiresReference() {
	suite.createBox("1000")
	_, err := suite.env.moneyBox.AuditTrail(suite.ctx, pharmacyID, "", "x")
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *MoneyBoxServiceTestSuite) TestFailedOperations() {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.createBox("1000")

	env := suite.env
	brokenLedger := services.NewLedgerService(failingLedgerRepo{Store: env.store, err: errors.New("box locked")}, env.store, env.rates, services.WithClock(env.clock.Now))
	_, err := brokenLedger.RecordForPharmacy(suite.ctx, pharmacyID, domain.RecordRequest{
		TransactionType:  domain.SalePayment,
		OriginalAmount:   d("25"),
		OriginalCurrency: "USD",
		ReferenceType:    "SALE",
		ReferenceID:      "sale-9",
	})
	suite.ErrorIs(err, apperrors.ErrInternal)
	_, err = brokenLedger.RecordForPharmacy(suite.ctx, pharmacyID, domain.RecordRequest{TransactionType: domain.Expense, OriginalAmount: d("40")})
	suite.ErrorIs(err, apperrors.ErrInternal)
	_, err = env.ledger.RecordForPharmacy(suite.ctx, pharmacyID, domain.RecordRequest{TransactionType: domain.SalePayment, OriginalAmount: d("500")})
	suite.Require().NoError(err)

	analysis, err := env.moneyBox.FailedOperations(suite.ctx, pharmacyID, from, to)
	suite.Require().NoError(err)

	suite.Equal(int64(2), analysis.TotalFailed)
	suite.Equal(int64(1), analysis.ByType[domain.SalePayment])
	suite.Equal(int64(1), analysis.ByType[domain.Expense])
	suite.Equal(map[string]int64{"SALE": 1}, analysis.ByReferenceType)
	suite.Require().Len(analysis.Failures, 2)

	sale := analysis.Failures[0]
	suite.Equal(domain.SalePayment, sale.TransactionType)
	suite.Equal("sale-9", sale.ReferenceID)
	suite.True(d("25").Equal(sale.OriginalAmount))
	suite.Equal("USD", sale.OriginalCurrency)
	suite.Contains(sale.ErrorMessage, "box locked")
	suite.True(sale.CreatedAt.Before(analysis.Failures[1].CreatedAt))

	_, err = env.moneyBox.FailedOperations(suite.ctx, pharmacyID, to, from)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *MoneyBoxServiceTestSuite) TestFailedOperations_EmptyPeriod() {
	suite.createBox("1000")

	analysis, err := suite.env.moneyBox.FailedOperations(suite.ctx, pharmacyID,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	suite.Require().NoError(err)
	suite.Zero(analysis.TotalFailed)
	suite.Empty(analysis.Failures)
	suite.Empty(analysis.ByType)
}

func (suite *MoneyBoxServiceTestSuite) TestConversionAnalytics() {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.createBox("1000")

	sale := func(amount, currency string) {
		_, err := suite.env.ledger.RecordForPharmacy(suite.ctx, pharmacyID, domain.RecordRequest{
			TransactionType:  domain.SalePayment,
			OriginalAmount:   d(amount),
			OriginalCurrency: currency,
		})
		suite.Require().NoError(err)
	}
	setRate := func(rate string) {
		_, err := suite.env.rates.SetRate(suite.ctx, domain.SetRateRequest{FromCurrencyCode: "USD", ToCurrencyCode: "SYP", Rate: d(rate)}, "user-1")
		suite.Require().NoError(err)
	}

	setRate("15000")
	sale("10", "USD")
	setRate("14000")
	sale("20", "USD")
	sale("5", "EUR") // fallback anchor
	sale("700", "SYP")

	analytics, err := suite.env.moneyBox.ConversionAnalytics(suite.ctx, pharmacyID, from, to)
	suite.Require().NoError(err)

	suite.Equal(int64(3), analytics.TotalConversions)
	suite.Require().Len(analytics.Pairs, 2)

	eur := analytics.Pairs[0]
	suite.Equal("EUR", eur.From)
	suite.Equal("SYP", eur.To)
	suite.Equal(int64(1), eur.Count)
	suite.True(d("70000").Equal(eur.TotalConverted), "got %s", eur.TotalConverted)
	suite.True(eur.FirstConversion.Equal(eur.LastConversion))

	usd := analytics.Pairs[1]
	suite.Equal("USD", usd.From)
	suite.Equal(int64(2), usd.Count)
	suite.True(d("30").Equal(usd.TotalOriginal))
	suite.True(d("430000").Equal(usd.TotalConverted), "got %s", usd.TotalConverted)
	suite.True(d("14500").Equal(usd.AverageRate), "got %s", usd.AverageRate)
	suite.True(d("14000").Equal(usd.MinRate))
	suite.True(d("15000").Equal(usd.MaxRate))
	suite.True(usd.FirstConversion.Before(usd.LastConversion))
}

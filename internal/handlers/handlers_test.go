package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/uqar-pharmacy/moneybox/internal/apperrors"
	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portssvc "github.com/uqar-pharmacy/moneybox/internal/core/ports/services"
	"github.com/uqar-pharmacy/moneybox/internal/dto"
	"github.com/uqar-pharmacy/moneybox/internal/handlers"
	"github.com/uqar-pharmacy/moneybox/internal/middleware"
	"github.com/uqar-pharmacy/moneybox/internal/platform/config"
)

const (
	testJWTSecret = "test-secret-for-handlers"
	testIssuer    = "pharmacy-identity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decEq(expected string) interface{} {
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(dec(expected)) })
}

// HandlerTestSuite drives the real router with mocked services.
type HandlerTestSuite struct {
	suite.Suite
	router       *gin.Engine
	moneyBox     *MockMoneyBoxService
	ledger       *MockLedgerService
	exchangeRate *MockExchangeRateService
	debt         *MockDebtService
	userID       string
	pharmacyID   string
	token        string
}

func (s *HandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.moneyBox = new(MockMoneyBoxService)
	s.ledger = new(MockLedgerService)
	s.exchangeRate = new(MockExchangeRateService)
	s.debt = new(MockDebtService)
	s.userID = uuid.NewString()
	s.pharmacyID = uuid.NewString()

	cfg := &config.Config{JWTSecret: testJWTSecret, JWTIssuer: testIssuer}
	s.router = gin.New()
	handlers.RegisterRoutes(s.router, cfg, &portssvc.ServiceContainer{
		ExchangeRate: s.exchangeRate,
		Ledger:       s.ledger,
		MoneyBox:     s.moneyBox,
		Debt:         s.debt,
	})
	s.token = s.generateTestToken(s.userID, s.pharmacyID)
}

func (s *HandlerTestSuite) TearDownTest() {
	s.moneyBox.AssertExpectations(s.T())
	s.ledger.AssertExpectations(s.T())
	s.exchangeRate.AssertExpectations(s.T())
	s.debt.AssertExpectations(s.T())
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) generateTestToken(userID, pharmacyID string) string {
	claims := middleware.Claims{
		PharmacyID: pharmacyID,
		UserType:   "PHARMACIST",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	s.Require().NoError(err)
	return signed
}

func (s *HandlerTestSuite) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlerTestSuite) actorMatcher() interface{} {
	return mock.MatchedBy(func(a domain.Actor) bool { return a.UserID == s.userID && a.UserType == "PHARMACIST" })
}

func (s *HandlerTestSuite) sampleBox() *domain.MoneyBox {
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	return &domain.MoneyBox{
		MoneyBoxID:     uuid.NewString(),
		PharmacyID:     s.pharmacyID,
		Status:         domain.MoneyBoxOpen,
		CurrentBalance: dec("1000"),
		InitialBalance: dec("1000"),
		Currency:       "SYP",
		AuditFields:    domain.AuditFields{CreatedAt: now, CreatedBy: s.userID, LastUpdatedAt: now, LastUpdatedBy: s.userID},
	}
}

// --- Auth ---

func (s *HandlerTestSuite) TestMissingTokenIsUnauthorized() {
	s.token = ""
	w := s.do(http.MethodGet, "/api/v1/money-box", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerTestSuite) TestTokenWithoutPharmacyIsUnauthorized() {
	s.token = s.generateTestToken(s.userID, "")
	w := s.do(http.MethodGet, "/api/v1/money-box", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlerTestSuite) TestHealthIsPublic() {
	s.token = ""
	w := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal("OK", w.Body.String())
}

// --- Money box ---

func (s *HandlerTestSuite) TestCreateMoneyBox_Success() {
	box := s.sampleBox()
	s.moneyBox.On("CreateMoneyBox", mock.Anything, s.pharmacyID, decEq("1000"), "SYP", s.actorMatcher()).Return(box, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/money-box", map[string]interface{}{"initialBalance": "1000", "currency": "SYP"})

	s.Equal(http.StatusCreated, w.Code)
	var resp dto.MoneyBoxResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(box.MoneyBoxID, resp.MoneyBoxID)
	s.Equal("OPEN", resp.Status)
	s.True(dec("1000").Equal(resp.CurrentBalance))
}

func (s *HandlerTestSuite) TestCreateMoneyBox_AlreadyExists() {
	s.moneyBox.On("CreateMoneyBox", mock.Anything, s.pharmacyID, decEq("0"), "", mock.Anything).
		Return(nil, fmt.Errorf("%w: pharmacy already has a money box", apperrors.ErrConflict)).Once()

	w := s.do(http.MethodPost, "/api/v1/money-box", map[string]interface{}{})

	s.Equal(http.StatusConflict, w.Code)
	s.Contains(w.Body.String(), "already has a money box")
}

func (s *HandlerTestSuite) TestGetMoneyBox_WithDisplayBalances() {
	box := s.sampleBox()
	view := &domain.MoneyBoxView{
		MoneyBox: *box,
		DisplayBalances: []domain.Conversion{
			{OriginalAmount: dec("1000"), Amount: dec("1000"), From: "SYP", To: "SYP", Rate: dec("1"), Provenance: domain.ProvenanceIdentity},
			{OriginalAmount: dec("1000"), Amount: dec("0.08"), From: "SYP", To: "USD", Rate: dec("0.00008"), Provenance: domain.ProvenanceFallback},
		},
	}
	s.moneyBox.On("GetMoneyBox", mock.Anything, s.pharmacyID).Return(view, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/money-box", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp dto.MoneyBoxResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.DisplayBalances, 2)
	s.Equal("FALLBACK", resp.DisplayBalances[1].Provenance)
}

func (s *HandlerTestSuite) TestGetMoneyBox_NotFound() {
	s.moneyBox.On("GetMoneyBox", mock.Anything, s.pharmacyID).
		Return(nil, fmt.Errorf("%w: money box not found", apperrors.ErrNotFound)).Once()

	w := s.do(http.MethodGet, "/api/v1/money-box", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerTestSuite) TestUpdateStatus_RejectsUnknownStatus() {
	w := s.do(http.MethodPatch, "/api/v1/money-box/status", map[string]string{"status": "PAUSED"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestUpdateStatus_Close() {
	box := s.sampleBox()
	box.Status = domain.MoneyBoxClosed
	s.moneyBox.On("UpdateStatus", mock.Anything, s.pharmacyID, domain.MoneyBoxClosed, mock.Anything).Return(box, nil).Once()

	w := s.do(http.MethodPatch, "/api/v1/money-box/status", map[string]string{"status": "CLOSED"})

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"status":"CLOSED"`)
}

func (s *HandlerTestSuite) TestManualTransaction_ClosedBox() {
	s.moneyBox.On("AddManualTransaction", mock.Anything, s.pharmacyID, decEq("-50"), "SYP", "", mock.Anything).
		Return(nil, fmt.Errorf("%w: money box is closed", apperrors.ErrConflict)).Once()

	w := s.do(http.MethodPost, "/api/v1/money-box/transactions", map[string]string{"amount": "-50", "currency": "SYP"})
	s.Equal(http.StatusConflict, w.Code)
}

func (s *HandlerTestSuite) TestRecordOperation_PassesTypedRequest() {
	txn := &domain.Transaction{
		TransactionID:   uuid.NewString(),
		TransactionType: domain.SalePayment,
		Amount:          dec("150000"),
		OperationStatus: domain.OperationSuccess,
	}
	s.ledger.On("RecordForPharmacy", mock.Anything, s.pharmacyID, mock.MatchedBy(func(req domain.RecordRequest) bool {
		return req.TransactionType == domain.SalePayment &&
			req.OriginalAmount.Equal(dec("10")) &&
			req.OriginalCurrency == "USD" &&
			req.ReferenceID == "sale-42" &&
			req.Actor.UserID == s.userID &&
			req.Metadata["invoice"] == "INV-1"
	})).Return(txn, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/money-box/operations", map[string]interface{}{
		"transactionType": "SALE_PAYMENT",
		"amount":          "10",
		"currency":        "USD",
		"referenceID":     "sale-42",
		"referenceType":   "SALE",
		"metadata":        map[string]string{"invoice": "INV-1"},
	})

	s.Equal(http.StatusCreated, w.Code)
	var resp dto.TransactionResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(txn.TransactionID, resp.TransactionID)
}

func (s *HandlerTestSuite) TestRecordOperation_ReturnsCompensatingRow() {
	failed := &domain.Transaction{
		TransactionID:   uuid.NewString(),
		TransactionType: domain.Expense,
		Amount:          decimal.Zero,
		OperationStatus: domain.OperationFailed,
		ErrorMessage:    "connection reset",
	}
	s.ledger.On("RecordForPharmacy", mock.Anything, s.pharmacyID, mock.Anything).
		Return(failed, fmt.Errorf("%w: failed to record EXPENSE transaction: connection reset", apperrors.ErrInternal)).Once()

	w := s.do(http.MethodPost, "/api/v1/money-box/operations", map[string]string{"transactionType": "EXPENSE", "amount": "20"})

	s.Equal(http.StatusInternalServerError, w.Code)
	var body struct {
		Error       string                  `json:"error"`
		Transaction dto.TransactionResponse `json:"transaction"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal(failed.TransactionID, body.Transaction.TransactionID)
	s.Equal("FAILED", body.Transaction.OperationStatus)
	s.NotContains(body.Error, "connection reset")
}

func (s *HandlerTestSuite) TestListTransactions_FiltersAndToken() {
	token := "next-page"
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s.moneyBox.On("ListTransactions", mock.Anything, s.pharmacyID, mock.MatchedBy(func(f domain.TransactionFilter) bool {
		return f.Type == domain.SalePayment && f.Status == domain.OperationSuccess && f.From != nil && f.From.Equal(from) && f.To == nil
	}), 10, (*string)(nil)).Return([]domain.Transaction{{TransactionID: "t1"}}, &token, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/money-box/transactions?type=SALE_PAYMENT&status=SUCCESS&from=2024-03-01T00:00:00Z&limit=10", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp dto.ListTransactionsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Transactions, 1)
	s.Require().NotNil(resp.NextToken)
	s.Equal(token, *resp.NextToken)
}

func (s *HandlerTestSuite) TestListTransactions_BadStatus() {
	w := s.do(http.MethodGet, "/api/v1/money-box/transactions?status=PENDING", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestReconcile_RequiresNotes() {
	w := s.do(http.MethodPost, "/api/v1/money-box/reconcile", map[string]string{"actualCount": "900"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestReconcile_BooksAdjustment() {
	box := s.sampleBox()
	adj := &domain.Transaction{TransactionID: uuid.NewString(), TransactionType: domain.Adjustment, Amount: dec("-100")}
	s.moneyBox.On("Reconcile", mock.Anything, s.pharmacyID, decEq("900"), "evening count", mock.Anything).Return(&domain.Reconciliation{
		MoneyBox:   *box,
		Expected:   dec("1000"),
		Actual:     dec("900"),
		Difference: dec("-100"),
		Adjustment: adj,
	}, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/money-box/reconcile", map[string]string{"actualCount": "900", "notes": "evening count"})

	s.Equal(http.StatusOK, w.Code)
	var resp dto.ReconciliationResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.True(dec("-100").Equal(resp.Difference))
	s.Require().NotNil(resp.Adjustment)
	s.Equal(adj.TransactionID, resp.Adjustment.TransactionID)
}

func (s *HandlerTestSuite) TestPeriodSummary_RequiresRange() {
	w := s.do(http.MethodGet, "/api/v1/money-box/summary?from=2024-03-01T00:00:00Z", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestAuditTrail() {
	s.moneyBox.On("AuditTrail", mock.Anything, s.pharmacyID, "CUSTOMER_DEBT", "debt-1").
		Return([]domain.Transaction{{TransactionID: "t1"}, {TransactionID: "t2"}}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/money-box/audit/CUSTOMER_DEBT/debt-1", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp []dto.TransactionResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp, 2)
}

func timeEq(expected time.Time) interface{} {
	return mock.MatchedBy(func(t time.Time) bool { return t.Equal(expected) })
}

func (s *HandlerTestSuite) TestFailedOperations() {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	s.moneyBox.On("FailedOperations", mock.Anything, s.pharmacyID, timeEq(from), timeEq(to)).Return(&domain.FailedOperationsAnalysis{
		MoneyBoxID:      "box-1",
		From:            from,
		To:              to,
		TotalFailed:     1,
		ByType:          map[domain.TransactionType]int64{domain.SalePayment: 1},
		ByReferenceType: map[string]int64{"SALE": 1},
		Failures: []domain.FailureDetail{{
			TransactionID:    "t1",
			TransactionType:  domain.SalePayment,
			ReferenceType:    "SALE",
			ReferenceID:      "sale-9",
			OriginalAmount:   dec("25"),
			OriginalCurrency: "USD",
			ErrorMessage:     "box locked",
		}},
	}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/money-box/analytics/failures?from=2024-03-01T00:00:00Z&to=2024-04-01T00:00:00Z", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp dto.FailedOperationsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(int64(1), resp.TotalFailed)
	s.Equal(int64(1), resp.ByType["SALE_PAYMENT"])
	s.Equal(int64(1), resp.ByReferenceType["SALE"])
	s.Require().Len(resp.Failures, 1)
	s.Equal("box locked", resp.Failures[0].ErrorMessage)
}

func (s *HandlerTestSuite) TestFailedOperations_RequiresRange() {
	w := s.do(http.MethodGet, "/api/v1/money-box/analytics/failures?to=2024-04-01T00:00:00Z", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestConversionAnalytics() {
	first := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	s.moneyBox.On("ConversionAnalytics", mock.Anything, s.pharmacyID, mock.Anything, mock.Anything).Return(&domain.ConversionAnalytics{
		MoneyBoxID:       "box-1",
		TotalConversions: 2,
		Pairs: []domain.CurrencyPairStats{{
			From:            "USD",
			To:              "SYP",
			Count:           2,
			TotalOriginal:   dec("20"),
			TotalConverted:  dec("290000"),
			AverageRate:     dec("14500"),
			MinRate:         dec("14000"),
			MaxRate:         dec("15000"),
			FirstConversion: first,
			LastConversion:  first.Add(time.Hour),
		}},
	}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/money-box/analytics/conversions?from=2024-03-01T00:00:00Z&to=2024-04-01T00:00:00Z", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp dto.ConversionAnalyticsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(int64(2), resp.TotalConversions)
	s.Require().Len(resp.Pairs, 1)
	s.Equal("USD_SYP", resp.Pairs[0].Pair)
	s.True(dec("14500").Equal(resp.Pairs[0].AverageRate))
	s.True(first.Equal(resp.Pairs[0].FirstConversion))
}

func (s *HandlerTestSuite) TestConversionAnalytics_InvalidRange() {
	s.moneyBox.On("ConversionAnalytics", mock.Anything, s.pharmacyID, mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: 'from' must be before 'to'", apperrors.ErrValidation)).Once()

	w := s.do(http.MethodGet, "/api/v1/money-box/analytics/conversions?from=2024-04-01T00:00:00Z&to=2024-03-01T00:00:00Z", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

// --- Exchange rates ---

func (s *HandlerTestSuite) TestSetExchangeRate_Success() {
	rate := &domain.ExchangeRate{
		ExchangeRateID:   uuid.NewString(),
		FromCurrencyCode: "USD",
		ToCurrencyCode:   "SYP",
		Rate:             dec("15000"),
		IsActive:         true,
		Source:           domain.RateSourceManual,
	}
	s.exchangeRate.On("SetRate", mock.Anything, mock.MatchedBy(func(req domain.SetRateRequest) bool {
		return req.FromCurrencyCode == "USD" && req.ToCurrencyCode == "SYP" && req.Rate.Equal(dec("15000"))
	}), s.userID).Return(rate, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/exchange-rates", map[string]string{"fromCurrencyCode": "USD", "toCurrencyCode": "SYP", "rate": "15000"})

	s.Equal(http.StatusCreated, w.Code)
	var resp dto.ExchangeRateResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(rate.ExchangeRateID, resp.ExchangeRateID)
	s.True(resp.IsActive)
}

func (s *HandlerTestSuite) TestSetExchangeRate_ValidationError() {
	s.exchangeRate.On("SetRate", mock.Anything, mock.Anything, s.userID).
		Return(nil, fmt.Errorf("%w: rate must be positive", apperrors.ErrValidation)).Once()

	w := s.do(http.MethodPost, "/api/v1/exchange-rates", map[string]string{"fromCurrencyCode": "USD", "toCurrencyCode": "SYP", "rate": "-1"})

	s.Equal(http.StatusBadRequest, w.Code)
	s.Contains(w.Body.String(), "rate must be positive")
}

func (s *HandlerTestSuite) TestSetExchangeRate_UnknownCurrencyCode() {
	w := s.do(http.MethodPost, "/api/v1/exchange-rates", map[string]string{"fromCurrencyCode": "QQQ", "toCurrencyCode": "SYP", "rate": "2"})

	s.Equal(http.StatusBadRequest, w.Code)
	s.exchangeRate.AssertNotCalled(s.T(), "SetRate", mock.Anything, mock.Anything, mock.Anything)
}

func (s *HandlerTestSuite) TestQuote_UnsupportedPair() {
	s.exchangeRate.On("Rate", mock.Anything, "GBP", "JPY").
		Return(domain.RateQuote{}, fmt.Errorf("%w: no rate for GBP/JPY", apperrors.ErrNotFound)).Once()

	w := s.do(http.MethodGet, "/api/v1/exchange-rates/quote/GBP/JPY", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlerTestSuite) TestQuote_BadCode() {
	w := s.do(http.MethodGet, "/api/v1/exchange-rates/quote/US/SYP", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestConvert() {
	s.exchangeRate.On("Convert", mock.Anything, decEq("10"), "USD", "SYP").Return(domain.Conversion{
		OriginalAmount: dec("10"),
		Amount:         dec("150000"),
		From:           "USD",
		To:             "SYP",
		Rate:           dec("15000"),
		Provenance:     domain.ProvenanceDirect,
	}).Once()

	w := s.do(http.MethodPost, "/api/v1/exchange-rates/convert", map[string]string{"amount": "10", "fromCurrencyCode": "USD", "toCurrencyCode": "SYP"})

	s.Equal(http.StatusOK, w.Code)
	var resp dto.ConversionResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.True(dec("150000").Equal(resp.Amount))
	s.Equal("DIRECT", resp.Provenance)
}

func (s *HandlerTestSuite) TestDeactivateExchangeRate() {
	s.exchangeRate.On("DeactivateRate", mock.Anything, "rate-1", s.userID).Return(nil).Once()

	w := s.do(http.MethodDelete, "/api/v1/exchange-rates/rate-1", nil)
	s.Equal(http.StatusNoContent, w.Code)
}

func (s *HandlerTestSuite) TestRateHistoryRouteDoesNotHitGetByID() {
	s.exchangeRate.On("RateHistory", mock.Anything, "USD", "SYP").Return([]domain.ExchangeRate{}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/exchange-rates/history/USD/SYP", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq("[]", w.Body.String())
}

func (s *HandlerTestSuite) TestRatePair() {
	s.exchangeRate.On("RatePair", mock.Anything, "USD", "SYP").Return([]domain.ExchangeRate{
		{ExchangeRateID: "r1", FromCurrencyCode: "USD", ToCurrencyCode: "SYP", Rate: dec("15000"), IsActive: true},
		{ExchangeRateID: "r2", FromCurrencyCode: "SYP", ToCurrencyCode: "USD", Rate: dec("0.000067"), IsActive: true},
	}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/exchange-rates/pair/USD/SYP", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp []dto.ExchangeRateResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp, 2)
	s.Equal("r1", resp[0].ExchangeRateID)
	s.Equal("r2", resp[1].ExchangeRateID)
}

func (s *HandlerTestSuite) TestRatePair_BadCode() {
	w := s.do(http.MethodGet, "/api/v1/exchange-rates/pair/USDX/SYP", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

// --- Debts ---

func (s *HandlerTestSuite) TestCreateDebt() {
	due := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	debt := &domain.CustomerDebt{
		DebtID:          uuid.NewString(),
		PharmacyID:      s.pharmacyID,
		CustomerID:      "cust-1",
		Amount:          dec("50"),
		PaidAmount:      decimal.Zero,
		RemainingAmount: dec("50"),
		Status:          domain.DebtActive,
		DueDate:         due,
		PaymentMethod:   domain.PaymentCash,
	}
	s.debt.On("CreateDebt", mock.Anything, s.pharmacyID, mock.MatchedBy(func(req domain.CreateDebtRequest) bool {
		return req.CustomerID == "cust-1" && req.Amount.Equal(dec("50")) && req.DueDate.Equal(due)
	}), s.actorMatcher()).Return(debt, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/debts", map[string]interface{}{"customerID": "cust-1", "amount": "50", "dueDate": due})

	s.Equal(http.StatusCreated, w.Code)
	var resp dto.DebtResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(debt.DebtID, resp.DebtID)
	s.Equal("ACTIVE", resp.Status)
}

func (s *HandlerTestSuite) TestCreateDebt_RejectsUnknownMethod() {
	w := s.do(http.MethodPost, "/api/v1/debts", map[string]interface{}{
		"customerID": "cust-1", "amount": "50", "dueDate": time.Now(), "paymentMethod": "CHEQUE",
	})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlerTestSuite) TestPayDebt_Overpayment() {
	s.debt.On("PayDebt", mock.Anything, s.pharmacyID, "debt-1", decEq("80"), domain.PaymentCash, "", mock.Anything).
		Return(nil, fmt.Errorf("%w: payment exceeds remaining debt amount", apperrors.ErrConflict)).Once()

	w := s.do(http.MethodPost, "/api/v1/debts/debt-1/payments", map[string]string{"amount": "80", "paymentMethod": "CASH"})
	s.Equal(http.StatusConflict, w.Code)
}

func (s *HandlerTestSuite) TestAutoPay() {
	report := &domain.SettlementReport{
		PharmacyID:         s.pharmacyID,
		CustomerID:         "cust-1",
		RequestedAmount:    dec("70"),
		TotalAllocated:     dec("70"),
		TotalRemainingDebt: dec("30"),
		PaymentMethod:      domain.PaymentCash,
		Allocations: []domain.DebtAllocation{
			{DebtID: "d1", OriginalAmount: dec("50"), AmountPaid: dec("50"), RemainingAmount: decimal.Zero, Status: domain.DebtPaid},
			{DebtID: "d2", OriginalAmount: dec("30"), AmountPaid: dec("20"), RemainingAmount: dec("10"), Status: domain.DebtActive},
		},
	}
	s.debt.On("AutoPay", mock.Anything, s.pharmacyID, "cust-1", decEq("70"), domain.PaymentMethod(""), "", mock.Anything).Return(report, nil).Once()

	w := s.do(http.MethodPost, "/api/v1/customers/cust-1/debts/auto-pay", map[string]string{"amount": "70"})

	s.Equal(http.StatusOK, w.Code)
	var resp dto.SettlementResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Len(resp.Allocations, 2)
	s.True(dec("30").Equal(resp.TotalRemainingDebt))
	s.Nil(resp.LedgerEntry)
}

func (s *HandlerTestSuite) TestOverdueRouteDoesNotHitGetDebt() {
	s.debt.On("ListOverdueDebts", mock.Anything, s.pharmacyID).Return([]domain.CustomerDebt{}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/debts/overdue", nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlerTestSuite) TestDebtStatistics() {
	s.debt.On("DebtStatistics", mock.Anything, s.pharmacyID).Return(&domain.DebtStatistics{
		TotalDebts:     3,
		ActiveDebts:    2,
		PaidDebts:      1,
		TotalAmount:    dec("100"),
		TotalPaid:      dec("50"),
		TotalRemaining: dec("50"),
	}, nil).Once()

	w := s.do(http.MethodGet, "/api/v1/debts/statistics", nil)

	s.Equal(http.StatusOK, w.Code)
	var resp dto.DebtStatisticsResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(int64(3), resp.TotalDebts)
}

func (s *HandlerTestSuite) TestDeleteDebt_PaidIsConflict() {
	s.debt.On("DeleteDebt", mock.Anything, s.pharmacyID, "debt-1", mock.Anything).
		Return(fmt.Errorf("%w: paid debts cannot be deleted", apperrors.ErrConflict)).Once()

	w := s.do(http.MethodDelete, "/api/v1/debts/debt-1", nil)
	s.Equal(http.StatusConflict, w.Code)
}

func (s *HandlerTestSuite) TestInternalErrorsAreNotLeaked() {
	s.debt.On("GetDebt", mock.Anything, s.pharmacyID, "debt-1").
		Return(nil, fmt.Errorf("%w: pq: connection refused on 10.0.0.5", apperrors.ErrInternal)).Once()

	w := s.do(http.MethodGet, "/api/v1/debts/debt-1", nil)

	s.Equal(http.StatusInternalServerError, w.Code)
	s.NotContains(w.Body.String(), "10.0.0.5")
}

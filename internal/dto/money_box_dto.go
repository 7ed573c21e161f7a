package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

// CreateMoneyBoxRequest opens the pharmacy's money box.
type CreateMoneyBoxRequest struct {
	InitialBalance decimal.Decimal `json:"initialBalance"`
	Currency       string          `json:"currency" binding:"omitempty,currency"`
}

// UpdateMoneyBoxStatusRequest opens or closes the box.
type UpdateMoneyBoxStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=OPEN CLOSED"`
}

// ManualTransactionRequest is a cash deposit (positive) or withdrawal (negative).
type ManualTransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" binding:"omitempty,currency"`
	Description string          `json:"description" binding:"max=500"`
}

// RecordOperationRequest books a typed business operation such as a sale or an expense.
type RecordOperationRequest struct {
	TransactionType string            `json:"transactionType" binding:"required"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency" binding:"omitempty,currency"`
	Description     string            `json:"description" binding:"max=500"`
	ReferenceID     string            `json:"referenceID" binding:"max=64"`
	ReferenceType   string            `json:"referenceType" binding:"max=32"`
	Metadata        map[string]string `json:"metadata"`
}

// ReconcileRequest carries a physical cash count.
type ReconcileRequest struct {
	ActualCount decimal.Decimal `json:"actualCount"`
	Notes       string          `json:"notes" binding:"required,max=500"`
}

// ListTransactionsParams are the query parameters of the transaction listing.
type ListTransactionsParams struct {
	Type      string     `form:"type"`
	Status    string     `form:"status" binding:"omitempty,oneof=SUCCESS FAILED"`
	From      *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit     int        `form:"limit" binding:"omitempty,min=1"`
	NextToken *string    `form:"nextToken"`
}

// PeriodParams bound a summary query.
type PeriodParams struct {
	From time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To   time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

// MoneyBoxResponse defines the API representation of a money box.
type MoneyBoxResponse struct {
	MoneyBoxID        string               `json:"moneyBoxID"`
	PharmacyID        string               `json:"pharmacyID"`
	Status            string               `json:"status"`
	CurrentBalance    decimal.Decimal      `json:"currentBalance"`
	InitialBalance    decimal.Decimal      `json:"initialBalance"`
	ReconciledBalance *decimal.Decimal     `json:"reconciledBalance,omitempty"`
	LastReconciled    *time.Time           `json:"lastReconciled,omitempty"`
	Currency          string               `json:"currency"`
	DisplayBalances   []ConversionResponse `json:"displayBalances,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	CreatedBy         string               `json:"createdBy"`
	LastUpdatedAt     time.Time            `json:"lastUpdatedAt"`
	LastUpdatedBy     string               `json:"lastUpdatedBy"`
}

// ToMoneyBoxResponse converts a domain.MoneyBox to MoneyBoxResponse DTO
func ToMoneyBoxResponse(box *domain.MoneyBox) MoneyBoxResponse {
	return MoneyBoxResponse{
		MoneyBoxID:        box.MoneyBoxID,
		PharmacyID:        box.PharmacyID,
		Status:            string(box.Status),
		CurrentBalance:    box.CurrentBalance,
		InitialBalance:    box.InitialBalance,
		ReconciledBalance: box.ReconciledBalance,
		LastReconciled:    box.LastReconciled,
		Currency:          box.Currency,
		CreatedAt:         box.CreatedAt,
		CreatedBy:         box.CreatedBy,
		LastUpdatedAt:     box.LastUpdatedAt,
		LastUpdatedBy:     box.LastUpdatedBy,
	}
}

// ToMoneyBoxViewResponse adds the display-currency balances.
func ToMoneyBoxViewResponse(view *domain.MoneyBoxView) MoneyBoxResponse {
	resp := ToMoneyBoxResponse(&view.MoneyBox)
	for _, conv := range view.DisplayBalances {
		resp.DisplayBalances = append(resp.DisplayBalances, ToConversionResponse(conv))
	}
	return resp
}

// TransactionResponse defines the API representation of a ledger row.
type TransactionResponse struct {
	TransactionID       string            `json:"transactionID"`
	MoneyBoxID          string            `json:"moneyBoxID"`
	TransactionType     string            `json:"transactionType"`
	Amount              decimal.Decimal   `json:"amount"`
	BalanceBefore       decimal.Decimal   `json:"balanceBefore"`
	BalanceAfter        decimal.Decimal   `json:"balanceAfter"`
	Description         string            `json:"description"`
	ReferenceID         string            `json:"referenceID,omitempty"`
	ReferenceType       string            `json:"referenceType,omitempty"`
	OriginalAmount      decimal.Decimal   `json:"originalAmount"`
	OriginalCurrency    string            `json:"originalCurrency"`
	ConvertedAmount     decimal.Decimal   `json:"convertedAmount"`
	ConvertedCurrency   string            `json:"convertedCurrency"`
	ExchangeRate        decimal.Decimal   `json:"exchangeRate"`
	ConversionTimestamp time.Time         `json:"conversionTimestamp"`
	ConversionSource    string            `json:"conversionSource"`
	OperationStatus     string            `json:"operationStatus"`
	ErrorMessage        string            `json:"errorMessage,omitempty"`
	Actor               domain.Actor      `json:"actor"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	CreatedBy           string            `json:"createdBy"`
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO
func ToTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID:       t.TransactionID,
		MoneyBoxID:          t.MoneyBoxID,
		TransactionType:     string(t.TransactionType),
		Amount:              t.Amount,
		BalanceBefore:       t.BalanceBefore,
		BalanceAfter:        t.BalanceAfter,
		Description:         t.Description,
		ReferenceID:         t.ReferenceID,
		ReferenceType:       t.ReferenceType,
		OriginalAmount:      t.OriginalAmount,
		OriginalCurrency:    t.OriginalCurrency,
		ConvertedAmount:     t.ConvertedAmount,
		ConvertedCurrency:   t.ConvertedCurrency,
		ExchangeRate:        t.ExchangeRate,
		ConversionTimestamp: t.ConversionTimestamp,
		ConversionSource:    string(t.ConversionSource),
		OperationStatus:     string(t.OperationStatus),
		ErrorMessage:        t.ErrorMessage,
		Actor:               t.Actor,
		Metadata:            t.Metadata,
		CreatedAt:           t.CreatedAt,
		CreatedBy:           t.CreatedBy,
	}
}

// ToListTransactionResponse converts a slice of domain transactions.
func ToListTransactionResponse(txns []domain.Transaction) []TransactionResponse {
	responses := make([]TransactionResponse, len(txns))
	for i := range txns {
		responses[i] = ToTransactionResponse(&txns[i])
	}
	return responses
}

// ListTransactionsResponse is one page of ledger rows.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// ReconciliationResponse reports the outcome of a cash count.
type ReconciliationResponse struct {
	MoneyBox   MoneyBoxResponse     `json:"moneyBox"`
	Expected   decimal.Decimal      `json:"expected"`
	Actual     decimal.Decimal      `json:"actual"`
	Difference decimal.Decimal      `json:"difference"`
	Adjustment *TransactionResponse `json:"adjustment,omitempty"`
}

// ToReconciliationResponse converts a domain.Reconciliation.
func ToReconciliationResponse(r *domain.Reconciliation) ReconciliationResponse {
	resp := ReconciliationResponse{
		MoneyBox:   ToMoneyBoxResponse(&r.MoneyBox),
		Expected:   r.Expected,
		Actual:     r.Actual,
		Difference: r.Difference,
	}
	if r.Adjustment != nil {
		adj := ToTransactionResponse(r.Adjustment)
		resp.Adjustment = &adj
	}
	return resp
}

// PeriodSummaryResponse is the activity of a money box between two instants.
type PeriodSummaryResponse struct {
	MoneyBoxID       string                     `json:"moneyBoxID"`
	From             time.Time                  `json:"from"`
	To               time.Time                  `json:"to"`
	TotalRevenue     decimal.Decimal            `json:"totalRevenue"`
	TotalExpense     decimal.Decimal            `json:"totalExpense"`
	NetAmount        decimal.Decimal            `json:"netAmount"`
	TransactionCount int64                      `json:"transactionCount"`
	FailedCount      int64                      `json:"failedCount"`
	SuccessRate      decimal.Decimal            `json:"successRate"`
	ByType           map[string]decimal.Decimal `json:"byType"`
	ByCurrency       []domain.CurrencyBreakdown `json:"byCurrency"`
}

// ToPeriodSummaryResponse converts a domain.PeriodSummary.
func ToPeriodSummaryResponse(s *domain.PeriodSummary) PeriodSummaryResponse {
	byType := make(map[string]decimal.Decimal, len(s.ByType))
	for k, v := range s.ByType {
		byType[string(k)] = v
	}
	byCurrency := s.ByCurrency
	if byCurrency == nil {
		byCurrency = []domain.CurrencyBreakdown{}
	}
	return PeriodSummaryResponse{
		MoneyBoxID:       s.MoneyBoxID,
		From:             s.From,
		To:               s.To,
		TotalRevenue:     s.TotalRevenue,
		TotalExpense:     s.TotalExpense,
		NetAmount:        s.NetAmount,
		TransactionCount: s.TransactionCount,
		FailedCount:      s.FailedCount,
		SuccessRate:      s.SuccessRate,
		ByType:           byType,
		ByCurrency:       byCurrency,
	}
}

// FailedOperationsResponse groups the failed ledger rows of a period.
type FailedOperationsResponse struct {
	MoneyBoxID      string                 `json:"moneyBoxID"`
	From            time.Time              `json:"from"`
	To              time.Time              `json:"to"`
	TotalFailed     int64                  `json:"totalFailed"`
	ByType          map[string]int64       `json:"byType"`
	ByReferenceType map[string]int64       `json:"byReferenceType"`
	Failures        []domain.FailureDetail `json:"failures"`
}

// ToFailedOperationsResponse converts a domain.FailedOperationsAnalysis.
func ToFailedOperationsResponse(a *domain.FailedOperationsAnalysis) FailedOperationsResponse {
	byType := make(map[string]int64, len(a.ByType))
	for k, v := range a.ByType {
		byType[string(k)] = v
	}
	failures := a.Failures
	if failures == nil {
		failures = []domain.FailureDetail{}
	}
	return FailedOperationsResponse{
		MoneyBoxID:      a.MoneyBoxID,
		From:            a.From,
		To:              a.To,
		TotalFailed:     a.TotalFailed,
		ByType:          byType,
		ByReferenceType: a.ByReferenceType,
		Failures:        failures,
	}
}

// CurrencyPairStatsResponse is the conversion activity of one ordered pair.
type CurrencyPairStatsResponse struct {
	Pair            string          `json:"pair"`
	From            string          `json:"fromCurrencyCode"`
	To              string          `json:"toCurrencyCode"`
	Count           int64           `json:"conversionCount"`
	TotalOriginal   decimal.Decimal `json:"totalOriginalAmount"`
	TotalConverted  decimal.Decimal `json:"totalConvertedAmount"`
	AverageRate     decimal.Decimal `json:"avgExchangeRate"`
	MinRate         decimal.Decimal `json:"minExchangeRate"`
	MaxRate         decimal.Decimal `json:"maxExchangeRate"`
	FirstConversion time.Time       `json:"firstConversion"`
	LastConversion  time.Time       `json:"lastConversion"`
}

// ConversionAnalyticsResponse is the multi-currency activity of a period.
type ConversionAnalyticsResponse struct {
	MoneyBoxID       string                      `json:"moneyBoxID"`
	From             time.Time                   `json:"from"`
	To               time.Time                   `json:"to"`
	TotalConversions int64                       `json:"totalConversions"`
	Pairs            []CurrencyPairStatsResponse `json:"conversionPairs"`
}

// ToConversionAnalyticsResponse converts a domain.ConversionAnalytics.
func ToConversionAnalyticsResponse(a *domain.ConversionAnalytics) ConversionAnalyticsResponse {
	pairs := make([]CurrencyPairStatsResponse, 0, len(a.Pairs))
	for _, p := range a.Pairs {
		pairs = append(pairs, CurrencyPairStatsResponse{
			Pair:            p.From + "_" + p.To,
			From:            p.From,
			To:              p.To,
			Count:           p.Count,
			TotalOriginal:   p.TotalOriginal,
			TotalConverted:  p.TotalConverted,
			AverageRate:     p.AverageRate,
			MinRate:         p.MinRate,
			MaxRate:         p.MaxRate,
			FirstConversion: p.FirstConversion,
			LastConversion:  p.LastConversion,
		})
	}
	return ConversionAnalyticsResponse{
		MoneyBoxID:       a.MoneyBoxID,
		From:             a.From,
		To:               a.To,
		TotalConversions: a.TotalConversions,
		Pairs:            pairs,
	}
}

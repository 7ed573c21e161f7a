package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a money box movement.
type TransactionType string

const (
	OpeningBalance  TransactionType = "OPENING_BALANCE"
	CashDeposit     TransactionType = "CASH_DEPOSIT"
	CashWithdrawal  TransactionType = "CASH_WITHDRAWAL"
	Adjustment      TransactionType = "ADJUSTMENT"
	SalePayment     TransactionType = "SALE_PAYMENT"
	SaleRefund      TransactionType = "SALE_REFUND"
	PurchasePayment TransactionType = "PURCHASE_PAYMENT"
	DebtPayment     TransactionType = "DEBT_PAYMENT"
	Income          TransactionType = "INCOME"
	Expense         TransactionType = "EXPENSE"
	TransferIn      TransactionType = "TRANSFER_IN"
	TransferOut     TransactionType = "TRANSFER_OUT"
	ClosingBalance  TransactionType = "CLOSING_BALANCE"
)

// SignPolicy describes how a transaction type moves the balance.
type SignPolicy int

const (
	// SignAbsolute sets the balance to abs(amount).
	SignAbsolute SignPolicy = iota
	// SignAsGiven adds the amount with the sign supplied by the caller.
	SignAsGiven
	// SignCredit adds abs(amount).
	SignCredit
	// SignDebit subtracts abs(amount).
	SignDebit
)

var signPolicies = map[TransactionType]SignPolicy{
	OpeningBalance:  SignAbsolute,
	CashDeposit:     SignAsGiven,
	CashWithdrawal:  SignAsGiven,
	Adjustment:      SignAsGiven,
	SalePayment:     SignCredit,
	DebtPayment:     SignCredit,
	Income:          SignCredit,
	TransferIn:      SignCredit,
	PurchasePayment: SignDebit,
	SaleRefund:      SignDebit,
	Expense:         SignDebit,
	TransferOut:     SignDebit,
	ClosingBalance:  SignDebit,
}

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	_, ok := signPolicies[t]
	return ok
}

// SignPolicy returns the balance rule for t. Unknown types are treated as SignAsGiven;
// callers are expected to check IsValid first.
func (t TransactionType) SignPolicy() SignPolicy {
	if p, ok := signPolicies[t]; ok {
		return p
	}
	return SignAsGiven
}

// TransactionTypes lists every known type in a stable order.
func TransactionTypes() []TransactionType {
	return []TransactionType{
		OpeningBalance, CashDeposit, CashWithdrawal, Adjustment,
		SalePayment, SaleRefund, PurchasePayment, DebtPayment,
		Income, Expense, TransferIn, TransferOut, ClosingBalance,
	}
}

// ApplyToBalance returns the stored (signed) amount and the resulting balance
// for a movement of amount (already in base currency) against balanceBefore.
func (t TransactionType) ApplyToBalance(balanceBefore, amount decimal.Decimal) (signed, balanceAfter decimal.Decimal) {
	switch t.SignPolicy() {
	case SignAbsolute:
		signed = amount.Abs()
		return signed, signed
	case SignCredit:
		signed = amount.Abs()
	case SignDebit:
		signed = amount.Abs().Neg()
	default:
		signed = amount
	}
	return signed, balanceBefore.Add(signed)
}

// OperationStatus records whether the financial operation completed.
type OperationStatus string

const (
	OperationSuccess OperationStatus = "SUCCESS"
	OperationFailed  OperationStatus = "FAILED"
)

// ConversionSource tags where a transaction's base-currency amount came from.
type ConversionSource string

const (
	SourceNoConversion     ConversionSource = "NO_CONVERSION"
	SourceExchangeRate     ConversionSource = "EXCHANGE_RATE_SERVICE"
	SourceConversionFailed ConversionSource = "CONVERSION_FAILED"
	SourceFallbackRate     ConversionSource = "FALLBACK_RATE"
)

// Transaction is an immutable money box ledger row.
type Transaction struct {
	TransactionID       string            `json:"transactionID"`
	MoneyBoxID          string            `json:"moneyBoxID"`
	TransactionType     TransactionType   `json:"transactionType"`
	Amount              decimal.Decimal   `json:"amount"` // signed, base currency
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
	ConversionSource    ConversionSource  `json:"conversionSource"`
	OperationStatus     OperationStatus   `json:"operationStatus"`
	ErrorMessage        string            `json:"errorMessage,omitempty"`
	Actor               Actor             `json:"actor"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	CreatedBy           string            `json:"createdBy"`
}

// IsMultiCurrency reports whether the movement was entered in a foreign currency.
func (t Transaction) IsMultiCurrency() bool {
	return t.OriginalCurrency != "" && t.ConvertedCurrency != "" && t.OriginalCurrency != t.ConvertedCurrency
}

// RecordRequest is the input of the ledger's single recording entry point.
type RecordRequest struct {
	MoneyBoxID       string
	TransactionType  TransactionType
	OriginalAmount   decimal.Decimal
	OriginalCurrency string
	Description      string
	ReferenceID      string
	ReferenceType    string
	Actor            Actor
	Metadata         map[string]string
}

// TransactionFilter narrows a transaction listing. Zero values mean "any".
type TransactionFilter struct {
	MoneyBoxID string
	Type       TransactionType
	Status     OperationStatus
	From       *time.Time
	To         *time.Time
}

// TransactionTotal is one aggregate bucket of money box activity.
type TransactionTotal struct {
	TransactionType  TransactionType
	OperationStatus  OperationStatus
	OriginalCurrency string
	Count            int64
	Inflow           decimal.Decimal // sum of positive base amounts
	Outflow          decimal.Decimal // sum of negative base amounts, <= 0
	OriginalAmount   decimal.Decimal // sum of original amounts
}

// Net returns the signed base-currency total of the bucket.
func (t TransactionTotal) Net() decimal.Decimal {
	return t.Inflow.Add(t.Outflow)
}

// CurrencyBreakdown is the activity entered in one original currency.
type CurrencyBreakdown struct {
	Currency       string          `json:"currency"`
	Count          int64           `json:"count"`
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	BaseAmount     decimal.Decimal `json:"baseAmount"`
}

// PeriodSummary aggregates money box activity between two instants.
type PeriodSummary struct {
	MoneyBoxID       string
	From             time.Time
	To               time.Time
	TotalRevenue     decimal.Decimal
	TotalExpense     decimal.Decimal
	NetAmount        decimal.Decimal
	TransactionCount int64
	FailedCount      int64
	SuccessRate      decimal.Decimal // percentage, 2dp
	ByType           map[TransactionType]decimal.Decimal
	ByCurrency       []CurrencyBreakdown
}

// FailureDetail describes one FAILED row.
type FailureDetail struct {
	TransactionID    string          `json:"transactionID"`
	TransactionType  TransactionType `json:"transactionType"`
	ReferenceType    string          `json:"referenceType,omitempty"`
	ReferenceID      string          `json:"referenceID,omitempty"`
	OriginalAmount   decimal.Decimal `json:"originalAmount"`
	OriginalCurrency string          `json:"originalCurrency"`
	ErrorMessage     string          `json:"errorMessage"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// FailedOperationsAnalysis groups the FAILED rows of a period.
type FailedOperationsAnalysis struct {
	MoneyBoxID      string
	From            time.Time
	To              time.Time
	TotalFailed     int64
	ByType          map[TransactionType]int64
	ByReferenceType map[string]int64 // rows without a reference type are not counted here
	Failures        []FailureDetail
}

// CurrencyPairStats aggregates the conversions of one ordered pair.
type CurrencyPairStats struct {
	From            string
	To              string
	Count           int64
	TotalOriginal   decimal.Decimal
	TotalConverted  decimal.Decimal
	AverageRate     decimal.Decimal // 6dp
	MinRate         decimal.Decimal
	MaxRate         decimal.Decimal
	FirstConversion time.Time
	LastConversion  time.Time
}

// ConversionAnalytics is the multi-currency activity of a period.
type ConversionAnalytics struct {
	MoneyBoxID       string
	From             time.Time
	To               time.Time
	TotalConversions int64
	Pairs            []CurrencyPairStats
}

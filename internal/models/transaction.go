package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a row of money_box_transactions. Rows are never updated.
type Transaction struct {
	TransactionID       string            `json:"transactionID"` // Primary Key (UUID)
	MoneyBoxID          string            `json:"moneyBoxID"`    // FK -> money_boxes.money_box_id
	TransactionType     string            `json:"transactionType"`
	Amount              decimal.Decimal   `json:"amount"` // Signed, base currency
	BalanceBefore       decimal.Decimal   `json:"balanceBefore"`
	BalanceAfter        decimal.Decimal   `json:"balanceAfter"`
	Description         string            `json:"description"`
	ReferenceID         *string           `json:"referenceID"`   // Nullable
	ReferenceType       *string           `json:"referenceType"` // Nullable
	OriginalAmount      decimal.Decimal   `json:"originalAmount"`
	OriginalCurrency    string            `json:"originalCurrency"`
	ConvertedAmount     decimal.Decimal   `json:"convertedAmount"`
	ConvertedCurrency   string            `json:"convertedCurrency"`
	ExchangeRate        decimal.Decimal   `json:"exchangeRate"` // NUMERIC(20,6)
	ConversionTimestamp time.Time         `json:"conversionTimestamp"`
	ConversionSource    string            `json:"conversionSource"`
	OperationStatus     string            `json:"operationStatus"`
	ErrorMessage        *string           `json:"errorMessage"` // Nullable
	ActorUserID         string            `json:"actorUserID"`
	ActorUserType       string            `json:"actorUserType"`
	ActorIPAddress      *string           `json:"actorIPAddress"`
	ActorUserAgent      *string           `json:"actorUserAgent"`
	ActorSessionID      *string           `json:"actorSessionID"`
	Metadata            map[string]string `json:"metadata"` // JSONB
	CreatedAt           time.Time         `json:"createdAt"`
	CreatedBy           string            `json:"createdBy"`
}

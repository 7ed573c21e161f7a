// Package notify publishes committed debt payments on an asynq queue and
// processes them in the notification worker.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	"github.com/uqar-pharmacy/moneybox/internal/middleware"
)

const (
	// QueueDefault is the default queue name for notifications.
	QueueDefault = "default"
	// TaskDebtPaymentNotification is emitted once per debt touched by a payment.
	TaskDebtPaymentNotification = "debt:payment_notification"
)

// NewDebtPaymentTask constructs an asynq task for a debt payment.
func NewDebtPaymentTask(n domain.DebtPaymentNotification) (*asynq.Task, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDebtPaymentNotification, data), nil
}

// HandleDebtPaymentTask processes TaskDebtPaymentNotification tasks.
func HandleDebtPaymentTask(ctx context.Context, t *asynq.Task) error {
	var n domain.DebtPaymentNotification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return asynq.SkipRetry
	}
	middleware.GetLoggerFromCtx(ctx).Info("Debt payment notification delivered",
		slog.String("pharmacy_id", n.PharmacyID),
		slog.String("customer_id", n.CustomerID),
		slog.String("debt_id", n.DebtID),
		slog.String("amount_paid", n.AmountPaid.String()),
		slog.String("remaining", n.RemainingAmount.String()),
		slog.String("status", string(n.Status)),
		slog.String("payment_method", string(n.PaymentMethod)))
	return nil
}

package notify

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portssvc "github.com/uqar-pharmacy/moneybox/internal/core/ports/services"
	"github.com/uqar-pharmacy/moneybox/internal/middleware"
)

// Enqueuer is the part of *asynq.Client used by QueueNotifier.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier publishes debt payments as asynq tasks.
type QueueNotifier struct {
	enq   Enqueuer
	queue string
}

// NewQueueNotifier creates a notifier on the given queue.
func NewQueueNotifier(enq Enqueuer, queue string) *QueueNotifier {
	if queue == "" {
		queue = QueueDefault
	}
	return &QueueNotifier{enq: enq, queue: queue}
}

var _ portssvc.DebtPaymentNotifier = (*QueueNotifier)(nil)

func (q *QueueNotifier) NotifyDebtPayment(ctx context.Context, n domain.DebtPaymentNotification) error {
	task, err := NewDebtPaymentTask(n)
	if err != nil {
		return err
	}
	info, err := q.enq.EnqueueContext(ctx, task, asynq.Queue(q.queue), asynq.MaxRetry(5))
	if err != nil {
		return err
	}
	middleware.GetLoggerFromCtx(ctx).Debug("Debt payment notification enqueued",
		slog.String("task_id", info.ID), slog.String("debt_id", n.DebtID))
	return nil
}

// LogNotifier writes notifications to the request logger. It is used when no
// Redis is configured.
type LogNotifier struct{}

var _ portssvc.DebtPaymentNotifier = LogNotifier{}

func (LogNotifier) NotifyDebtPayment(ctx context.Context, n domain.DebtPaymentNotification) error {
	middleware.GetLoggerFromCtx(ctx).Info("Debt payment",
		slog.String("debt_id", n.DebtID),
		slog.String("customer_id", n.CustomerID),
		slog.String("amount_paid", n.AmountPaid.String()),
		slog.String("status", string(n.Status)))
	return nil
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
)

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

func sampleNotification() domain.DebtPaymentNotification {
	return domain.DebtPaymentNotification{
		PharmacyID:      "ph-1",
		CustomerID:      "cust-1",
		DebtID:          "debt-1",
		AmountPaid:      decimal.RequireFromString("30"),
		RemainingAmount: decimal.RequireFromString("20"),
		Status:          domain.DebtActive,
		PaymentMethod:   domain.PaymentCash,
		PaidAt:          time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestQueueNotifier_EnqueuesTask(t *testing.T) {
	enq := new(MockEnqueuer)
	n := sampleNotification()

	enq.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		if task.Type() != TaskDebtPaymentNotification {
			return false
		}
		var got domain.DebtPaymentNotification
		if err := json.Unmarshal(task.Payload(), &got); err != nil {
			return false
		}
		return got.DebtID == n.DebtID && got.AmountPaid.Equal(n.AmountPaid)
	}), mock.Anything).Return(&asynq.TaskInfo{ID: "task-1"}, nil).Once()

	err := NewQueueNotifier(enq, "notifications").NotifyDebtPayment(context.Background(), n)
	require.NoError(t, err)
	enq.AssertExpectations(t)
}

func TestQueueNotifier_PropagatesEnqueueError(t *testing.T) {
	enq := new(MockEnqueuer)
	enq.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("redis down")).Once()

	err := NewQueueNotifier(enq, "").NotifyDebtPayment(context.Background(), sampleNotification())
	assert.EqualError(t, err, "redis down")
	enq.AssertExpectations(t)
}

func TestHandleDebtPaymentTask(t *testing.T) {
	task, err := NewDebtPaymentTask(sampleNotification())
	require.NoError(t, err)
	assert.NoError(t, HandleDebtPaymentTask(context.Background(), task))

	bad := asynq.NewTask(TaskDebtPaymentNotification, []byte("{not json"))
	assert.ErrorIs(t, HandleDebtPaymentTask(context.Background(), bad), asynq.SkipRetry)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.NotifyDebtPayment(context.Background(), sampleNotification()))
}

package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// TaskTypeMatchSweep reruns reconciliation over unsettled invoices.
	TaskTypeMatchSweep = "match:sweep"
)

// NewMatchSweepTask builds a sweep task for the scheduler.
func NewMatchSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeMatchSweep, nil, asynq.Queue(QueueDefault))
}

// Reconciler reruns the three-way match over outstanding invoices.
type Reconciler interface {
	ReconcileOutstanding(ctx context.Context) (int, error)
}

// NewMatchSweepHandler returns the handler for the nightly sweep.
func NewMatchSweepHandler(reconciler Reconciler, logger *slog.Logger) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		matched, err := reconciler.ReconcileOutstanding(ctx)
		if err != nil {
			return err
		}
		logger.Info("match sweep complete", slog.Int("orders_matched", matched))
		return nil
	}
}

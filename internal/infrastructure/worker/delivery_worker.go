package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/corporatepay/approval-engine/internal/application/service"
)

// DeliveryWorker drains the reminder queue and resolves each queued reminder
// to DELIVERED or FAILED through the channel's provider. Runs outside any
// request transaction so an in-flight send never holds a lock.
type DeliveryWorker struct {
	reminders service.ReminderService
	logger    *zap.Logger

	wg   sync.WaitGroup
	stop chan struct{}
}

// NewDeliveryWorker creates a new reminder delivery worker
func NewDeliveryWorker(reminders service.ReminderService, logger *zap.Logger) *DeliveryWorker {
	return &DeliveryWorker{
		reminders: reminders,
		stop:      make(chan struct{}),
		logger:    logger,
	}
}

// Name returns the worker name
func (w *DeliveryWorker) Name() string {
	return "reminder-delivery"
}

// Start launches the delivery loop
func (w *DeliveryWorker) Start(ctx context.Context) error {
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop waits for the delivery loop to drain
func (w *DeliveryWorker) Stop() error {
	close(w.stop)
	w.wg.Wait()
	return nil
}

func (w *DeliveryWorker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case id := <-w.reminders.Queue():
			if err := w.reminders.Deliver(ctx, id); err != nil {
				w.logger.Error("Failed to deliver reminder",
					zap.Int64("reminder_id", id),
					zap.Error(err))
			}
		}
	}
}

package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/corporatepay/approval-engine/internal/application/port"
	"github.com/corporatepay/approval-engine/internal/application/service"
)

// ExpiryWorker periodically sweeps non-terminal requests past their expiry
// deadline. Interval matches the presentation layer's polling cadence.
type ExpiryWorker struct {
	requests service.RequestService
	clock    port.Clock
	interval time.Duration
	logger   *zap.Logger

	wg   sync.WaitGroup
	stop chan struct{}
}

// NewExpiryWorker creates a new expiry sweep worker
func NewExpiryWorker(requests service.RequestService, clock port.Clock, interval time.Duration, logger *zap.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		requests: requests,
		clock:    clock,
		interval: interval,
		stop:     make(chan struct{}),
		logger:   logger,
	}
}

// Name returns the worker name
func (w *ExpiryWorker) Name() string {
	return "expiry-sweeper"
}

// Start launches the sweep loop
func (w *ExpiryWorker) Start(ctx context.Context) error {
	w.wg.Add(1)
	go w.run(ctx)
	return nil
}

// Stop waits for the sweep loop to drain
func (w *ExpiryWorker) Stop() error {
	close(w.stop)
	w.wg.Wait()
	return nil
}

func (w *ExpiryWorker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			// Sweep errors are logged inside the service and retried on the
			// next tick; they are never fatal to the loop.
			if _, err := w.requests.SweepExpirations(ctx, w.clock.Now()); err != nil {
				w.logger.Error("Expiry sweep failed", zap.Error(err))
			}
		}
	}
}

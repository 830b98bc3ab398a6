package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ticketops/ticket-notifier/internal/service"
)

// Sweeper runs one SLA sweep. Satisfied by service.SLAService.
type Sweeper interface {
	RunSweep(ctx context.Context) (service.SweepStats, error)
}

// SLAWorker fires the SLA sweep on a fixed interval. Runs are strictly
// sequential; a tick that arrives while a sweep is in flight waits for it.
type SLAWorker struct {
	svc      Sweeper
	interval time.Duration
	logger   *zap.Logger
}

// NewSLAWorker constructs the worker.
func NewSLAWorker(svc Sweeper, interval time.Duration, logger *zap.Logger) *SLAWorker {
	return &SLAWorker{svc: svc, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (w *SLAWorker) Run(ctx context.Context) {
	w.logger.Info("sla sweep worker started",
		zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sla sweep worker stopped")
			return
		case <-ticker.C:
			if _, err := w.svc.RunSweep(ctx); err != nil {
				w.logger.Error("sla sweep failed", zap.Error(err))
			}
		}
	}
}

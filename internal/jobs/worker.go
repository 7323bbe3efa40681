package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/codmer/pulsedoc/internal/logging"
	"github.com/codmer/pulsedoc/internal/telemetry"
)

// JobProcessor defines the interface for processing jobs
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker represents a background job worker
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	logger       *slog.Logger
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(processor JobProcessor, pollInterval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		logger:       logger,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start begins the worker's polling loop
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	w.logger.Info("worker started", "poll_interval", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped", "reason", "context cancelled")
			return
		case <-w.stopChan:
			w.logger.Info("worker stopped", "reason", "stop signal")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	ctx, span := telemetry.StartTransaction(ctx, "jobs.ProcessJobs", "worker.process")
	defer span.End()

	if err := w.processor.ProcessJobs(ctx); err != nil {
		span.SetError(err)
		telemetry.CaptureError(ctx, err)
		w.logger.Error("processing jobs failed", "error", err)
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}

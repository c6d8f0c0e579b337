package sweep

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WorkerConfig contains scheduler configuration.
type WorkerConfig struct {
	Interval   time.Duration
	RunOnStart bool
}

// DefaultWorkerConfig returns default scheduler configuration: one sweep
// per day, starting with an immediate run.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Interval:   24 * time.Hour,
		RunOnStart: true,
	}
}

// Worker runs the expiration sweep on a schedule.
type Worker struct {
	config  WorkerConfig
	service *Service

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorker creates a new sweep worker.
func NewWorker(config WorkerConfig, service *Service) *Worker {
	if config.Interval <= 0 {
		config.Interval = DefaultWorkerConfig().Interval
	}
	return &Worker{
		config:  config,
		service: service,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the scheduler goroutine.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("starting sweep worker",
		"interval", w.config.Interval,
		"run_on_start", w.config.RunOnStart,
	)

	w.wg.Add(1)
	go w.run(ctx)
}

// Stop gracefully stops the scheduler, waiting for an in-flight sweep.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	w.wg.Wait()
	slog.Info("sweep worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	if w.config.RunOnStart {
		w.sweep(ctx)
	}

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	if _, err := w.service.Run(ctx); err != nil {
		slog.Error("scheduled sweep failed", "error", err)
	}
}

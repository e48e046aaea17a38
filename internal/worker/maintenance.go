package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gamecrate-api/internal/config"
	"github.com/gamecrate-api/internal/domain"
)

// MaintenanceRunner executes one cleanup pass over the stores
type MaintenanceRunner interface {
	RunMaintenance(ctx context.Context) (domain.MaintenanceReport, error)
}

// MaintenanceWorker triggers periodic cleanup passes: expired cache
// entries and activity entries past the retention window
type MaintenanceWorker struct {
	runner  MaintenanceRunner
	config  *config.MaintenanceConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewMaintenanceWorker creates a new maintenance worker
func NewMaintenanceWorker(runner MaintenanceRunner, cfg *config.MaintenanceConfig, logger *slog.Logger) *MaintenanceWorker {
	return &MaintenanceWorker{
		runner: runner,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background maintenance process
func (w *MaintenanceWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("maintenance worker started", "interval", w.config.Interval)

	if w.config.RunOnStartup {
		w.runPass(ctx)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the background maintenance process
func (w *MaintenanceWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("maintenance worker stopped")
	return nil
}

// run is the main worker loop
func (w *MaintenanceWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

// runPass executes a single maintenance cycle. A failed pass is logged
// and retried on the next tick; it never stops the worker.
func (w *MaintenanceWorker) runPass(ctx context.Context) {
	startTime := time.Now()

	report, err := w.runner.RunMaintenance(ctx)
	if err != nil {
		w.logger.Error("maintenance pass failed", "error", err)
		return
	}

	if report.Skipped {
		return
	}

	w.logger.Info("maintenance cycle completed",
		"duration", time.Since(startTime),
		"expired_cache_entries", report.ExpiredCacheEntries,
		"archived_log_entries", report.ArchivedLogEntries,
	)
}

// IsRunning returns whether the worker is currently running
func (w *MaintenanceWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single maintenance cycle (useful for manual triggers)
func (w *MaintenanceWorker) RunOnce(ctx context.Context) (domain.MaintenanceReport, error) {
	return w.runner.RunMaintenance(ctx)
}

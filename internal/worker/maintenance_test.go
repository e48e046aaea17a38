package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gamecrate-api/internal/config"
	"github.com/gamecrate-api/internal/domain"
)

type fakeRunner struct {
	calls  atomic.Int64
	report domain.MaintenanceReport
	err    error
}

func (f *fakeRunner) RunMaintenance(ctx context.Context) (domain.MaintenanceReport, error) {
	f.calls.Add(1)
	return f.report, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunOnce(t *testing.T) {
	runner := &fakeRunner{report: domain.MaintenanceReport{ExpiredCacheEntries: 4}}
	w := NewMaintenanceWorker(runner, &config.MaintenanceConfig{Interval: time.Hour}, testLogger())

	report, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if report.ExpiredCacheEntries != 4 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if runner.calls.Load() != 1 {
		t.Fatalf("expected 1 call, got %d", runner.calls.Load())
	}
}

func TestStartStopLifecycle(t *testing.T) {
	runner := &fakeRunner{}
	cfg := &config.MaintenanceConfig{Interval: 10 * time.Millisecond, RunOnStartup: true}
	w := NewMaintenanceWorker(runner, cfg, testLogger())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !w.IsRunning() {
		t.Fatal("expected worker to be running")
	}

	// RunOnStartup fires a pass synchronously; the ticker adds more.
	time.Sleep(50 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if w.IsRunning() {
		t.Fatal("expected worker to be stopped")
	}
	if runner.calls.Load() < 2 {
		t.Fatalf("expected startup pass plus ticks, got %d calls", runner.calls.Load())
	}
}

func TestFailedPassKeepsWorkerAlive(t *testing.T) {
	runner := &fakeRunner{err: errors.New("store down")}
	cfg := &config.MaintenanceConfig{Interval: 10 * time.Millisecond}
	w := NewMaintenanceWorker(runner, cfg, testLogger())

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if runner.calls.Load() < 2 {
		t.Fatalf("expected repeated passes despite failures, got %d", runner.calls.Load())
	}
}

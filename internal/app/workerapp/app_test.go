package workerapp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/porcelaincode/mocha-admin-sub000/internal/config"
)

type countingJob struct {
	runs atomic.Int32
	err  error
}

func (j *countingJob) Run(context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestRunSweepLoopRunsImmediatelyAndOnTicks(t *testing.T) {
	cfg := config.Default()
	cfg.Worker.SweepInterval = 10 * time.Millisecond
	job := &countingJob{err: errors.New("transient")}
	app := &App{cfg: cfg, logger: zap.NewNop(), sweepJob: job}

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := job.runs.Load(); got < 2 {
		t.Fatalf("expected the job to keep running after failures, got %d runs", got)
	}
}

func TestIntervalFallsBackToDefault(t *testing.T) {
	cfg := config.Default()
	cfg.Worker.SweepInterval = 0
	app := &App{cfg: cfg, logger: zap.NewNop()}
	if got := app.interval(); got != defaultSweepInterval {
		t.Fatalf("expected default interval, got %s", got)
	}
}

package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"
	"github.com/porcelaincode/mocha-admin-sub000/internal/services/swipequeue"
)

const LockName = "swipequeue:sweep"

type Engine interface {
	SweepExpired(ctx context.Context) (swipequeue.SweepResult, error)
	FindLowQueueUsers(ctx context.Context, threshold int) ([]model.LowQueueUser, error)
}

type Locker interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (string, error)
	Release(ctx context.Context, name, token string) error
}

type Report struct {
	Skipped       bool
	Expired       int64
	LowQueueUsers int
}

type Job struct {
	engine            Engine
	locker            Locker
	lockTTL           time.Duration
	lowQueueThreshold int
	logger            *zap.Logger
}

// New builds the job. A nil locker runs every tick unguarded.
func New(engine Engine, locker Locker, lockTTL time.Duration, lowQueueThreshold int, logger *zap.Logger) *Job {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		engine:            engine,
		locker:            locker,
		lockTTL:           lockTTL,
		lowQueueThreshold: lowQueueThreshold,
		logger:            logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	_, err := j.RunOnce(ctx)
	return err
}

func (j *Job) RunOnce(ctx context.Context) (Report, error) {
	if j.engine == nil {
		return Report{}, fmt.Errorf("swipe queue engine is nil")
	}

	if j.locker != nil {
		token, err := j.locker.TryAcquire(ctx, LockName, j.lockTTL)
		if err != nil {
			return Report{}, fmt.Errorf("acquire sweep lock: %w", err)
		}
		if token == "" {
			j.logger.Debug("sweep skipped, lock held by another runner")
			return Report{Skipped: true}, nil
		}
		defer func() {
			if err := j.locker.Release(context.WithoutCancel(ctx), LockName, token); err != nil {
				j.logger.Warn("release sweep lock failed", zap.Error(err))
			}
		}()
	}

	result, err := j.engine.SweepExpired(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("sweep expired swipes: %w", err)
	}
	report := Report{Expired: result.Updated}
	if result.Updated > 0 {
		j.logger.Info("expired stale swipes", zap.Int64("updated", result.Updated))
	}

	if j.lowQueueThreshold > 0 {
		users, err := j.engine.FindLowQueueUsers(ctx, j.lowQueueThreshold)
		if err != nil {
			return report, fmt.Errorf("find low queue users: %w", err)
		}
		report.LowQueueUsers = len(users)
		j.logger.Info("low queue users",
			zap.Int("threshold", j.lowQueueThreshold),
			zap.Int("count", len(users)),
		)
	}

	return report, nil
}

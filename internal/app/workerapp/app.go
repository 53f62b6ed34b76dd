package workerapp

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/porcelaincode/mocha-admin-sub000/internal/config"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/enums"
	"github.com/porcelaincode/mocha-admin-sub000/internal/jobs/sweep"
	pgrepo "github.com/porcelaincode/mocha-admin-sub000/internal/repo/postgres"
	redrepo "github.com/porcelaincode/mocha-admin-sub000/internal/repo/redis"
	"github.com/porcelaincode/mocha-admin-sub000/internal/services/swipequeue"
)

const defaultSweepInterval = 15 * time.Minute

type runner interface {
	Run(ctx context.Context) error
}

type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	redis    *goredis.Client
	sweepJob runner
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("init postgres for worker app: %w", err)
	}

	engine := swipequeue.NewService(swipequeue.Dependencies{
		Tx:         pgrepo.NewTxManager(pool),
		SwipeStore: pgrepo.NewSwipeRepo(pool),
		UserStore:  pgrepo.NewUserRepo(pool),
		Logger:     logger,
	}, swipequeue.Config{
		Capacity:         cfg.Queue.Capacity,
		Expiry:           cfg.Queue.Expiry,
		ExclusionPolicy:  enums.ExclusionPolicy(cfg.Queue.ExclusionPolicy),
		BatchConcurrency: cfg.Queue.BatchConcurrency,
	})

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	var locker sweep.Locker
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, sweep runs without lock", zap.Error(err))
		_ = redisClient.Close()
		redisClient = nil
	} else {
		locker = redrepo.NewLockRepo(redisClient)
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		postgres: pool,
		redis:    redisClient,
		sweepJob: sweep.New(engine, locker, cfg.Worker.LockTTL, cfg.Worker.LowQueueThreshold, logger),
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("worker app started", zap.Duration("sweep_interval", a.interval()))
	err := a.runSweepLoop(ctx)
	a.logger.Info("worker app stopped")
	return err
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

func (a *App) interval() time.Duration {
	if a.cfg.Worker.SweepInterval <= 0 {
		return defaultSweepInterval
	}
	return a.cfg.Worker.SweepInterval
}

// runSweepLoop runs the job now and on every tick. Failed runs are logged and retried next tick.
func (a *App) runSweepLoop(ctx context.Context) error {
	if a.sweepJob == nil {
		return nil
	}

	a.runSweep(ctx)

	ticker := time.NewTicker(a.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.runSweep(ctx)
		}
	}
}

func (a *App) runSweep(ctx context.Context) {
	if err := a.sweepJob.Run(ctx); err != nil && ctx.Err() == nil {
		a.logger.Error("sweep run failed", zap.Error(err))
	}
}

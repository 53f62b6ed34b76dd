package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/porcelaincode/mocha-admin-sub000/internal/config"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/enums"
	pgrepo "github.com/porcelaincode/mocha-admin-sub000/internal/repo/postgres"
	redrepo "github.com/porcelaincode/mocha-admin-sub000/internal/repo/redis"
	authsvc "github.com/porcelaincode/mocha-admin-sub000/internal/services/auth"
	ratesvc "github.com/porcelaincode/mocha-admin-sub000/internal/services/rate"
	"github.com/porcelaincode/mocha-admin-sub000/internal/services/swipequeue"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}
	if pool != nil && cfg.Postgres.AutoMigrate {
		if err := pgrepo.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
	}

	var rateLimiter swipequeue.RateLimiter
	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, generate rate limit disabled", zap.Error(err))
		_ = redisClient.Close()
		redisClient = nil
	} else {
		rateLimiter = ratesvc.NewLimiter(redrepo.NewRateRepo(redisClient), cfg.Queue.GeneratePerMinute)
	}

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, 0)
	authService := authsvc.NewService(jwtManager)

	engine := swipequeue.NewService(swipequeue.Dependencies{
		Tx:          pgrepo.NewTxManager(pool),
		SwipeStore:  pgrepo.NewSwipeRepo(pool),
		UserStore:   pgrepo.NewUserRepo(pool),
		RateLimiter: rateLimiter,
		Logger:      log,
	}, EngineConfig(cfg.Queue))

	RegisterRoutes(r, Dependencies{
		AuthService: authService,
		SwipeQueue:  engine,
		Logger:      log,
		Config:      cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

// EngineConfig maps the queue section of the config file onto the engine.
func EngineConfig(q config.QueueConfig) swipequeue.Config {
	return swipequeue.Config{
		Capacity:            q.Capacity,
		Expiry:              q.Expiry,
		CandidateMultiplier: q.CandidateMultiplier,
		DefaultAgeMin:       q.DefaultAgeMin,
		DefaultAgeMax:       q.DefaultAgeMax,
		DefaultMaxDistance:  q.DefaultMaxDistance,
		ApplyDistanceFilter: q.ApplyDistanceFilter,
		ExclusionPolicy:     enums.ExclusionPolicy(q.ExclusionPolicy),
		BatchConcurrency:    q.BatchConcurrency,
	}
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

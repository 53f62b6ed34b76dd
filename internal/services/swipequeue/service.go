package swipequeue

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/enums"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/rules"
	pgrepo "github.com/porcelaincode/mocha-admin-sub000/internal/repo/postgres"
)

const (
	DefaultCapacity            = 5
	DefaultExpiry              = 24 * time.Hour
	DefaultCandidateMultiplier = 3
	DefaultBatchConcurrency    = 8
	MaxBatchSize               = 500
)

type SwipeStore interface {
	CountActiveByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error)
	Create(ctx context.Context, tx pgx.Tx, in pgrepo.NewSwipe) (model.Swipe, error)
	ListActiveQueue(ctx context.Context, userID uuid.UUID) ([]model.QueueEntry, error)
	UpdateStatus(ctx context.Context, swipeID uuid.UUID, status enums.SwipeStatus, now time.Time) (model.Swipe, error)
	Delete(ctx context.Context, swipeID uuid.UUID) error
	ExpireCreatedBefore(ctx context.Context, cutoff, now time.Time) (int64, error)
	List(ctx context.Context, f pgrepo.SwipeFilter) (pgrepo.SwipePage, error)
}

type UserStore interface {
	LockByID(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (model.User, error)
	GetFilter(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*model.UserFilter, error)
	ListCandidates(ctx context.Context, tx pgx.Tx, q pgrepo.CandidateQuery) ([]model.User, error)
	ListLowQueue(ctx context.Context, threshold int) ([]model.LowQueueUser, error)
}

type TxRunner interface {
	WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error
}

type RateLimiter interface {
	AllowGenerate(ctx context.Context, userID uuid.UUID) (int64, bool, error)
}

type Config struct {
	Capacity            int
	Expiry              time.Duration
	CandidateMultiplier int
	DefaultAgeMin       int
	DefaultAgeMax       int
	DefaultMaxDistance  int
	ApplyDistanceFilter bool
	ExclusionPolicy     enums.ExclusionPolicy
	BatchConcurrency    int
}

type Dependencies struct {
	Tx          TxRunner
	SwipeStore  SwipeStore
	UserStore   UserStore
	RateLimiter RateLimiter
	Logger      *zap.Logger
}

type GenerateResult struct {
	Created   int
	Remaining int
}

type SweepResult struct {
	Updated int64
}

type Service struct {
	tx          TxRunner
	swipes      SwipeStore
	users       UserStore
	rateLimiter RateLimiter
	logger      *zap.Logger
	cfg         Config
	now         func() time.Time
	jitter      func() float64
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = DefaultExpiry
	}
	if cfg.CandidateMultiplier <= 0 {
		cfg.CandidateMultiplier = DefaultCandidateMultiplier
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = DefaultBatchConcurrency
	}
	if _, ok := enums.ParseExclusionPolicy(string(cfg.ExclusionPolicy)); !ok {
		cfg.ExclusionPolicy = enums.ExclusionActiveOnly
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		tx:          deps.Tx,
		swipes:      deps.SwipeStore,
		users:       deps.UserStore,
		rateLimiter: deps.RateLimiter,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
		jitter: func() float64 {
			return rand.Float64() * rules.JitterMax
		},
	}
}

func (s *Service) Config() Config {
	return s.cfg
}

func (s *Service) GetQueue(ctx context.Context, userID uuid.UUID) ([]model.QueueEntry, error) {
	if userID == uuid.Nil {
		return nil, validationError("user id is required")
	}
	if s.swipes == nil {
		return nil, s.storeFailure("get queue", errors.New("swipe store is nil"))
	}

	entries, err := s.swipes.ListActiveQueue(ctx, userID)
	if err != nil {
		return nil, s.storeFailure("get queue", err)
	}
	return entries, nil
}

// UpdateStatus applies any status to any swipe; admins may move swipes freely between states.
func (s *Service) UpdateStatus(ctx context.Context, swipeID uuid.UUID, status enums.SwipeStatus) (model.Swipe, error) {
	if swipeID == uuid.Nil {
		return model.Swipe{}, validationError("swipe id is required")
	}
	parsed, ok := enums.ParseSwipeStatus(string(status))
	if !ok {
		return model.Swipe{}, validationError("unsupported status %q", status)
	}
	if s.swipes == nil {
		return model.Swipe{}, s.storeFailure("update swipe status", errors.New("swipe store is nil"))
	}

	swipe, err := s.swipes.UpdateStatus(ctx, swipeID, parsed, s.now().UTC())
	if err != nil {
		if errors.Is(err, pgrepo.ErrSwipeNotFound) {
			return model.Swipe{}, ErrNotFound
		}
		return model.Swipe{}, s.storeFailure("update swipe status", err)
	}
	return swipe, nil
}

func (s *Service) DeleteSwipe(ctx context.Context, swipeID uuid.UUID) error {
	if swipeID == uuid.Nil {
		return validationError("swipe id is required")
	}
	if s.swipes == nil {
		return s.storeFailure("delete swipe", errors.New("swipe store is nil"))
	}

	if err := s.swipes.Delete(ctx, swipeID); err != nil {
		if errors.Is(err, pgrepo.ErrSwipeNotFound) {
			return ErrNotFound
		}
		return s.storeFailure("delete swipe", err)
	}
	return nil
}

// SweepExpired moves active swipes older than the configured expiry to expired.
func (s *Service) SweepExpired(ctx context.Context) (SweepResult, error) {
	if s.swipes == nil {
		return SweepResult{}, s.storeFailure("sweep expired", errors.New("swipe store is nil"))
	}

	now := s.now().UTC()
	updated, err := s.swipes.ExpireCreatedBefore(ctx, now.Add(-s.cfg.Expiry), now)
	if err != nil {
		return SweepResult{}, s.storeFailure("sweep expired", err)
	}
	return SweepResult{Updated: updated}, nil
}

func (s *Service) FindLowQueueUsers(ctx context.Context, threshold int) ([]model.LowQueueUser, error) {
	if threshold < 0 {
		return nil, validationError("threshold must not be negative")
	}
	if s.users == nil {
		return nil, s.storeFailure("find low queue users", errors.New("user store is nil"))
	}
	if threshold == 0 {
		return []model.LowQueueUser{}, nil
	}

	users, err := s.users.ListLowQueue(ctx, threshold)
	if err != nil {
		return nil, s.storeFailure("find low queue users", err)
	}
	return users, nil
}

type ListSwipesQuery struct {
	FromUserID *uuid.UUID
	ToUserID   *uuid.UUID
	Status     string
	Action     string
	Limit      int
	Offset     int
}

func (s *Service) ListSwipes(ctx context.Context, q ListSwipesQuery) (pgrepo.SwipePage, error) {
	filter := pgrepo.SwipeFilter{
		FromUserID: q.FromUserID,
		ToUserID:   q.ToUserID,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
	if q.Status != "" {
		status, ok := enums.ParseSwipeStatus(q.Status)
		if !ok {
			return pgrepo.SwipePage{}, validationError("unsupported status %q", q.Status)
		}
		filter.Status = status
	}
	if q.Action != "" {
		action, ok := enums.ParseSwipeAction(q.Action)
		if !ok {
			return pgrepo.SwipePage{}, validationError("unsupported action %q", q.Action)
		}
		filter.Action = action
	}
	if q.Limit < 0 || q.Offset < 0 {
		return pgrepo.SwipePage{}, validationError("limit and offset must not be negative")
	}
	if s.swipes == nil {
		return pgrepo.SwipePage{}, s.storeFailure("list swipes", errors.New("swipe store is nil"))
	}

	page, err := s.swipes.List(ctx, filter)
	if err != nil {
		return pgrepo.SwipePage{}, s.storeFailure("list swipes", err)
	}
	return page, nil
}

// storeFailure logs the cause and returns a StoreError unless err already is one.
func (s *Service) storeFailure(op string, err error) error {
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		storeErr = &StoreError{Op: op, Err: err}
	}
	s.logger.Error("swipe queue store failure", zap.String("op", op), zap.Error(storeErr.Err))
	return storeErr
}

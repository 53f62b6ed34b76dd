package swipequeue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/enums"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/model"
	"github.com/porcelaincode/mocha-admin-sub000/internal/domain/rules"
	pgrepo "github.com/porcelaincode/mocha-admin-sub000/internal/repo/postgres"
)

// memoryStore mirrors the SQL repos: pair uniqueness with in-place
// reactivation, candidate filters and rollback of everything written inside a
// failed transaction.
type memoryStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]model.User
	filters map[uuid.UUID]model.UserFilter
	swipes  map[uuid.UUID]model.Swipe

	createCalls     int
	failCreateAfter int
	failOn          map[string]error
	lastQuery       pgrepo.CandidateQuery
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:   make(map[uuid.UUID]model.User),
		filters: make(map[uuid.UUID]model.UserFilter),
		swipes:  make(map[uuid.UUID]model.Swipe),
		failOn:  make(map[string]error),
	}
}

func (m *memoryStore) addUser(u model.User) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.ID] = u
	return u
}

func (m *memoryStore) addSwipe(from, to uuid.UUID, status enums.SwipeStatus, createdAt time.Time) model.Swipe {
	m.mu.Lock()
	defer m.mu.Unlock()
	swipe := model.Swipe{
		ID:         uuid.New(),
		FromUserID: from,
		ToUserID:   to,
		Action:     enums.SwipeActionLike,
		Status:     status,
		CreatedAt:  createdAt,
	}
	m.swipes[swipe.ID] = swipe
	return swipe
}

func (m *memoryStore) activeCount(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.swipes {
		if s.FromUserID == userID && s.Status == enums.SwipeStatusActive {
			count++
		}
	}
	return count
}

func (m *memoryStore) swipesFrom(userID uuid.UUID) []model.Swipe {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Swipe, 0)
	for _, s := range m.swipes {
		if s.FromUserID == userID {
			out = append(out, s)
		}
	}
	return out
}

func (m *memoryStore) fail(op string) error {
	return m.failOn[op]
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, pgx.Tx) error) error {
	m.mu.Lock()
	snapshot := make(map[uuid.UUID]model.Swipe, len(m.swipes))
	for id, s := range m.swipes {
		snapshot[id] = s
	}
	m.mu.Unlock()

	if err := fn(ctx, nil); err != nil {
		m.mu.Lock()
		m.swipes = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memoryStore) CountActiveByUser(_ context.Context, _ pgx.Tx, userID uuid.UUID) (int, error) {
	if err := m.fail("count"); err != nil {
		return 0, err
	}
	return m.activeCount(userID), nil
}

func (m *memoryStore) Create(_ context.Context, _ pgx.Tx, in pgrepo.NewSwipe) (model.Swipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if err := m.failOn["create"]; err != nil {
		return model.Swipe{}, err
	}
	if m.failCreateAfter > 0 && m.createCalls > m.failCreateAfter {
		return model.Swipe{}, errStoreDown
	}
	for id, s := range m.swipes {
		if s.FromUserID != in.FromUserID || s.ToUserID != in.ToUserID {
			continue
		}
		if s.Status == enums.SwipeStatusActive {
			return model.Swipe{}, pgrepo.ErrSwipePairExists
		}
		s.Action = in.Action
		s.Status = in.Status
		s.CreatedAt = in.CreatedAt
		s.ExpiresAt = in.ExpiresAt
		m.swipes[id] = s
		return s, nil
	}
	swipe := model.Swipe{
		ID:         uuid.New(),
		FromUserID: in.FromUserID,
		ToUserID:   in.ToUserID,
		Action:     in.Action,
		Status:     in.Status,
		CreatedAt:  in.CreatedAt,
		ExpiresAt:  in.ExpiresAt,
	}
	m.swipes[swipe.ID] = swipe
	return swipe, nil
}

func (m *memoryStore) ListActiveQueue(_ context.Context, userID uuid.UUID) ([]model.QueueEntry, error) {
	if err := m.fail("queue"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.QueueEntry, 0)
	for _, s := range m.swipes {
		if s.FromUserID != userID || s.Status != enums.SwipeStatusActive {
			continue
		}
		to := m.users[s.ToUserID]
		out = append(out, model.QueueEntry{Swipe: s, ToUser: summary(to)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, swipeID uuid.UUID, status enums.SwipeStatus, _ time.Time) (model.Swipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failOn["update:"+swipeID.String()]; err != nil {
		return model.Swipe{}, err
	}
	s, ok := m.swipes[swipeID]
	if !ok {
		return model.Swipe{}, pgrepo.ErrSwipeNotFound
	}
	s.Status = status
	m.swipes[swipeID] = s
	return s, nil
}

func (m *memoryStore) Delete(_ context.Context, swipeID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.swipes[swipeID]; !ok {
		return pgrepo.ErrSwipeNotFound
	}
	delete(m.swipes, swipeID)
	return nil
}

func (m *memoryStore) ExpireCreatedBefore(_ context.Context, cutoff, _ time.Time) (int64, error) {
	if err := m.fail("expire"); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for id, s := range m.swipes {
		if s.Status == enums.SwipeStatusActive && s.CreatedAt.Before(cutoff) {
			s.Status = enums.SwipeStatusExpired
			m.swipes[id] = s
			updated++
		}
	}
	return updated, nil
}

func (m *memoryStore) List(_ context.Context, f pgrepo.SwipeFilter) (pgrepo.SwipePage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]model.Swipe, 0)
	for _, s := range m.swipes {
		if f.FromUserID != nil && s.FromUserID != *f.FromUserID {
			continue
		}
		if f.ToUserID != nil && s.ToUserID != *f.ToUserID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.Action != "" && s.Action != f.Action {
			continue
		}
		items = append(items, s)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if f.Limit <= 0 {
		f.Limit = pgrepo.DefaultSwipePageSize
	}
	if f.Limit > pgrepo.MaxSwipePageSize {
		f.Limit = pgrepo.MaxSwipePageSize
	}
	total := len(items)
	if f.Offset >= len(items) {
		items = items[:0]
	} else {
		items = items[f.Offset:]
	}
	if len(items) > f.Limit {
		items = items[:f.Limit]
	}
	return pgrepo.SwipePage{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

func (m *memoryStore) LockByID(_ context.Context, _ pgx.Tx, userID uuid.UUID) (model.User, error) {
	if err := m.fail("lock"); err != nil {
		return model.User{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return model.User{}, pgrepo.ErrUserNotFound
	}
	return u, nil
}

func (m *memoryStore) GetFilter(_ context.Context, _ pgx.Tx, userID uuid.UUID) (*model.UserFilter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.filters[userID]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (m *memoryStore) ListCandidates(_ context.Context, _ pgx.Tx, q pgrepo.CandidateQuery) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery = q

	excluded := make(map[uuid.UUID]struct{})
	for _, s := range m.swipes {
		if s.FromUserID != q.UserID {
			continue
		}
		if q.ExcludeAllPrior || s.Status == enums.SwipeStatusActive {
			excluded[s.ToUserID] = struct{}{}
		}
	}

	applyDistance := q.OriginLat != nil && q.OriginLon != nil && q.MaxDistanceKM > 0
	out := make([]model.User, 0)
	for _, u := range m.users {
		if u.ID == q.UserID || u.IsDummyUser || u.IsTestUser {
			continue
		}
		if u.Age < q.AgeMin || u.Age > q.AgeMax {
			continue
		}
		if q.VerifiedOnly && !u.Verified {
			continue
		}
		if _, ok := excluded[u.ID]; ok {
			continue
		}
		if applyDistance && u.HasCoordinates() &&
			rules.DistanceKM(*q.OriginLat, *q.OriginLon, *u.Latitude, *u.Longitude) > float64(q.MaxDistanceKM) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memoryStore) ListLowQueue(_ context.Context, threshold int) ([]model.LowQueueUser, error) {
	if err := m.fail("low"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[uuid.UUID]int)
	for _, s := range m.swipes {
		if s.Status == enums.SwipeStatusActive {
			counts[s.FromUserID]++
		}
	}
	out := make([]model.LowQueueUser, 0)
	for _, u := range m.users {
		if u.IsTestUser || u.IsDummyUser {
			continue
		}
		if counts[u.ID] < threshold {
			out = append(out, model.LowQueueUser{User: summary(u), ActiveSwipes: counts[u.ID]})
		}
	}
	return out, nil
}

func summary(u model.User) model.UserSummary {
	return model.UserSummary{
		ID:       u.ID,
		Name:     u.Name,
		Email:    u.Email,
		Phone:    u.Phone,
		Age:      u.Age,
		Bio:      u.Bio,
		Location: u.Location,
		Verified: u.Verified,
	}
}

type stubLimiter struct {
	allowed    bool
	retryAfter int64
	err        error
	calls      int
}

func (l *stubLimiter) AllowGenerate(context.Context, uuid.UUID) (int64, bool, error) {
	l.calls++
	return l.retryAfter, l.allowed, l.err
}

var errStoreDown = errors.New("connection refused")

func newTestService(store *memoryStore, cfg Config) *Service {
	svc := NewService(Dependencies{
		Tx:         store,
		SwipeStore: store,
		UserStore:  store,
	}, cfg)
	svc.now = func() time.Time { return testNow }
	svc.jitter = func() float64 { return 0 }
	return svc
}

var testNow = time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
